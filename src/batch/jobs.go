package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

const (
	MetricSteadyCom = "steadycom"
	MetricVA        = "va"
	MetricSC        = "sc"
	MetricMU        = "mu"
	MetricMP        = "mp"
	MetricMIP       = "mip"
	MetricMRO       = "mro"
	// MetricSmetana computes every SMETANA score and the detailed
	// interactions as one record.
	MetricSmetana = "smetana"
)

var metrics = []string{MetricSteadyCom, MetricVA, MetricSC, MetricMU, MetricMP, MetricMIP, MetricMRO, MetricSmetana}

// DefaultMetrics are computed for jobs that name none.
var DefaultMetrics = []string{MetricSteadyCom, MetricSmetana}

// Job is one community to analyze. Organisms are model file paths.
type Job struct {
	Name            string             `yaml:"name"`
	Organisms       []string           `yaml:"organisms"`
	MergeBiomasses  bool               `yaml:"merge_biomasses"`
	AddCompartments bool               `yaml:"add_compartments"`
	Environment     map[string]float64 `yaml:"environment,omitempty"`
	Metrics         []string           `yaml:"metrics"`
}

func (j *Job) validate() error {
	if j.Name == "" {
		return fmt.Errorf("job has no name")
	}
	if len(j.Organisms) == 0 {
		return fmt.Errorf("job %s: no organisms", j.Name)
	}
	if len(j.Metrics) == 0 {
		j.Metrics = slices.Clone(DefaultMetrics)
	}
	for _, m := range j.Metrics {
		if !slices.Contains(metrics, m) {
			return fmt.Errorf("job %s: unknown metric %q, valid metrics are %v", j.Name, m, metrics)
		}
	}
	return nil
}

type jobFile struct {
	Jobs []Job `yaml:"jobs"`
}

// LoadJobs reads a batch file. Relative organism paths are resolved against
// the directory of the file.
func LoadJobs(path string) ([]Job, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var jf jobFile
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&jf); err != nil {
		return nil, fmt.Errorf("batch file %q: %w", path, err)
	}
	if len(jf.Jobs) == 0 {
		return nil, fmt.Errorf("batch file %q has no jobs", path)
	}

	dir := filepath.Dir(path)
	seen := make(map[string]bool)
	for i := range jf.Jobs {
		j := &jf.Jobs[i]
		if err := j.validate(); err != nil {
			return nil, fmt.Errorf("batch file %q: %w", path, err)
		}
		if seen[j.Name] {
			return nil, fmt.Errorf("batch file %q: duplicate job %s", path, j.Name)
		}
		seen[j.Name] = true
		for k, org := range j.Organisms {
			if !filepath.IsAbs(org) {
				j.Organisms[k] = filepath.Join(dir, org)
			}
		}
	}
	return jf.Jobs, nil
}
