package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/couchcryptid/restaurant-staging-etl/internal/domain"
	"gopkg.in/yaml.v3"
)

// Cuisine map validation errors.
var (
	ErrEmptyCuisineMap = errors.New("cuisine map must define at least one cuisine with aliases")
	ErrDuplicateAlias  = errors.New("category alias mapped to more than one cuisine")
)

// cuisineFile is the on-disk shape of a cuisine map:
//
//	cuisines:
//	  Indian: [indpak, pakistani, himalayan, indianfusion]
//	  Thai: [thai]
type cuisineFile struct {
	Cuisines map[string][]string `yaml:"cuisines"`
}

// LoadCuisineMapping returns the built-in mapping when path is empty, and the
// mapping described by the YAML file at path otherwise.
func LoadCuisineMapping(path string) (domain.CuisineMapping, error) {
	if path == "" {
		return domain.DefaultCuisineMapping(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read cuisine map %q: %w", path, err)
	}
	return ParseCuisineMapping(data)
}

// ParseCuisineMapping decodes a YAML cuisine map and inverts it to alias -> label.
func ParseCuisineMapping(data []byte) (domain.CuisineMapping, error) {
	var f cuisineFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse cuisine map: %w", err)
	}

	mapping := make(domain.CuisineMapping)
	for label, aliases := range f.Cuisines {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		for _, alias := range aliases {
			alias = strings.TrimSpace(alias)
			if alias == "" {
				continue
			}
			if existing, ok := mapping[alias]; ok && existing != label {
				return nil, fmt.Errorf("%w: %q (%s, %s)", ErrDuplicateAlias, alias, existing, label)
			}
			mapping[alias] = label
		}
	}

	if len(mapping) == 0 {
		return nil, ErrEmptyCuisineMap
	}
	return mapping, nil
}
