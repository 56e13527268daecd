package fleet

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Catalog is the vessel reference data loaded from a YAML file.
type Catalog struct {
	Vessels []Vessel `yaml:"vessels"`
}

// DefaultCatalog returns the built-in single-vessel demo fleet.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Vessels: []Vessel{
			{
				IMO:       9999999,
				Name:      "Demo Vessel",
				Type:      "Tanker",
				Country:   "SC",
				BuildYear: 2015,
				DWT:       220000.0,
				Beam:      55.0,
				LOA:       300.0,
				MCR:       21900.0,
				MaxRPM:    60.0,
			},
		},
	}
}

// LoadCatalog reads a vessel catalog from a YAML file.
// A missing file yields the default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultCatalog(), nil
		}
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(c.Vessels) == 0 {
		return nil, fmt.Errorf("catalog %s declares no vessels", path)
	}

	for i, v := range c.Vessels {
		if v.IMO < 1000000 || v.IMO > 9999999 {
			return nil, fmt.Errorf("catalog vessel %d: IMO must be a 7-digit number, got %d", i, v.IMO)
		}
		if v.Name == "" {
			return nil, fmt.Errorf("catalog vessel %d: name required", i)
		}
	}

	SortVessels(c.Vessels)
	return &c, nil
}

// Find returns the vessel with the given IMO number.
func (c *Catalog) Find(imo int) (Vessel, bool) {
	for _, v := range c.Vessels {
		if v.IMO == imo {
			return v, true
		}
	}
	return Vessel{}, false
}

// FindByName returns the vessel whose name matches case-insensitively.
func (c *Catalog) FindByName(name string) (Vessel, bool) {
	for _, v := range c.Vessels {
		if strings.EqualFold(v.Name, name) {
			return v, true
		}
	}
	return Vessel{}, false
}
