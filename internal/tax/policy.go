package tax

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Slab is one band of the presumptive schedule. A nil UpTo is unbounded.
type Slab struct {
	UpTo        *float64 `yaml:"up_to"`
	RatePercent float64  `yaml:"rate_percent"`
}

// Policy holds the rates the calculator applies.
type Policy struct {
	GSTRatePercent   float64 `yaml:"gst_rate_percent"`
	PresumptiveSlabs []Slab  `yaml:"presumptive_slabs"`
}

// DefaultPolicy is 18% GST and a flat 10% presumptive rate.
func DefaultPolicy() Policy {
	return Policy{
		GSTRatePercent:   18,
		PresumptiveSlabs: []Slab{{RatePercent: 10}},
	}
}

// Validate rejects negative rates and unordered slabs.
func (p Policy) Validate() error {
	if p.GSTRatePercent < 0 || p.GSTRatePercent > 100 {
		return fmt.Errorf("%w: gst rate %.2f outside [0,100]", ErrConfiguration, p.GSTRatePercent)
	}
	if len(p.PresumptiveSlabs) == 0 {
		return fmt.Errorf("%w: presumptive schedule is empty", ErrConfiguration)
	}
	prev := 0.0
	for i, slab := range p.PresumptiveSlabs {
		if slab.RatePercent < 0 || slab.RatePercent > 100 {
			return fmt.Errorf("%w: slab %d rate %.2f outside [0,100]", ErrConfiguration, i+1, slab.RatePercent)
		}
		if slab.UpTo == nil {
			if i != len(p.PresumptiveSlabs)-1 {
				return fmt.Errorf("%w: only the last slab may be unbounded", ErrConfiguration)
			}
			continue
		}
		if *slab.UpTo <= prev {
			return fmt.Errorf("%w: slab %d bound %.2f not ascending", ErrConfiguration, i+1, *slab.UpTo)
		}
		prev = *slab.UpTo
	}
	return nil
}

// LoadPolicy reads a YAML policy file. An empty path yields DefaultPolicy.
// Fields missing from the file keep their defaults.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("tax: read policy: %w", err)
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, fmt.Errorf("%w: parse policy %s: %v", ErrConfiguration, path, err)
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}
