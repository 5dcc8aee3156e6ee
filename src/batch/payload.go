package batch

import "microcom/src/smetana"

// Pair keyed maps do not encode as YAML mappings, so overlaps are keyed by
// "A+B" in stored payloads.
type mro struct {
	Score      *float64            `yaml:"score"`
	Individual map[string][]string `yaml:"individual"`
	Overlap    map[string]int      `yaml:"overlap"`
}

type report struct {
	SC           map[string]smetana.Coupling   `yaml:"sc"`
	MU           map[string]smetana.Uptake     `yaml:"mu"`
	MP           map[string]smetana.Production `yaml:"mp"`
	MIP          *smetana.MIPResult            `yaml:"mip"`
	MRO          mro                           `yaml:"mro"`
	Interactions []smetana.Interaction         `yaml:"interactions"`
}

func mroPayload(r *smetana.MROResult) mro {
	overlap := make(map[string]int, len(r.Overlap))
	for pair, n := range r.Overlap {
		overlap[pair.A+"+"+pair.B] = n
	}
	return mro{Score: r.Score, Individual: r.Individual, Overlap: overlap}
}

func reportPayload(r *smetana.Report) report {
	return report{
		SC:           r.SC,
		MU:           r.MU,
		MP:           r.MP,
		MIP:          r.MIP,
		MRO:          mroPayload(r.MRO),
		Interactions: r.Interactions,
	}
}
