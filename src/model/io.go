package model

import (
	"fmt"
	"io"
	"math"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

type fileModel struct {
	ID           string             `yaml:"id"`
	Compartments []Compartment      `yaml:"compartments"`
	Metabolites  []Metabolite       `yaml:"metabolites"`
	Reactions    []fileReaction     `yaml:"reactions"`
	Objective    map[string]float64 `yaml:"objective"`
}

// Omitted bounds default to [0, +inf), or (-inf, +inf) when reversible.
type fileReaction struct {
	ID            string             `yaml:"id"`
	Name          string             `yaml:"name,omitempty"`
	Stoichiometry map[string]float64 `yaml:"stoichiometry"`
	Lower         *float64           `yaml:"lower,omitempty"`
	Upper         *float64           `yaml:"upper,omitempty"`
	Reversible    bool               `yaml:"reversible,omitempty"`
	Genes         []string           `yaml:"genes,omitempty"`
}

func LoadFile(path string) (*Model, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	m, err := Decode(file)
	if err != nil {
		return nil, fmt.Errorf("model file %q: %w", path, err)
	}
	return m, nil
}

func Decode(r io.Reader) (*Model, error) {
	var fm fileModel
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fm); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if fm.ID == "" {
		return nil, fmt.Errorf("model has no id")
	}

	m := New(fm.ID)
	for _, c := range fm.Compartments {
		if err := m.AddCompartment(c); err != nil {
			return nil, err
		}
	}
	for _, met := range fm.Metabolites {
		if err := m.AddMetabolite(met); err != nil {
			return nil, err
		}
	}
	for _, fr := range fm.Reactions {
		r := Reaction{
			ID:            fr.ID,
			Name:          fr.Name,
			Stoichiometry: fr.Stoichiometry,
			Lower:         0,
			Upper:         math.Inf(1),
			Genes:         fr.Genes,
		}
		if fr.Reversible {
			r.Lower = math.Inf(-1)
		}
		if fr.Lower != nil {
			r.Lower = *fr.Lower
		}
		if fr.Upper != nil {
			r.Upper = *fr.Upper
		}
		if err := m.AddReaction(r); err != nil {
			return nil, err
		}
	}
	if err := m.SetObjective(fm.Objective); err != nil {
		return nil, err
	}
	return m, nil
}

func Encode(w io.Writer, m *Model) error {
	fm := fileModel{
		ID:           m.id,
		Compartments: m.Compartments(),
		Metabolites:  slices.Clone(m.metabolites),
		Objective:    m.Objective(),
	}
	for _, r := range m.reactions {
		lower, upper := r.Lower, r.Upper
		fm.Reactions = append(fm.Reactions, fileReaction{
			ID:            r.ID,
			Name:          r.Name,
			Stoichiometry: r.Stoichiometry,
			Lower:         &lower,
			Upper:         &upper,
			Genes:         r.Genes,
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return err
	}
	return enc.Close()
}
