// Package catalog loads the versioned exercise registry.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"example.com/fitplan/internal/domain"
)

//go:embed exercises.yaml
var defaultDocument []byte

// ErrInvalidCatalog reports a document that cannot serve as a registry.
var ErrInvalidCatalog = errors.New("invalid exercise catalog")

type document struct {
	Version     string                      `yaml:"version"`
	Strength    []domain.MuscleBucket       `yaml:"strength"`
	Cardio      []domain.ExerciseDefinition `yaml:"cardio"`
	Flexibility []domain.ExerciseDefinition `yaml:"flexibility"`
}

// Default returns the embedded catalog.
func Default() (domain.Catalog, error) {
	return Parse(defaultDocument)
}

// Load reads a catalog file, falling back to the embedded one for an empty path.
func Load(path string) (domain.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (domain.Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.Catalog{}, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	cat := domain.Catalog{
		Version:     doc.Version,
		Strength:    doc.Strength,
		Cardio:      doc.Cardio,
		Flexibility: doc.Flexibility,
	}
	if err := validate(cat); err != nil {
		return domain.Catalog{}, err
	}
	return cat, nil
}

func validate(cat domain.Catalog) error {
	if cat.Version == "" {
		return fmt.Errorf("%w: missing version", ErrInvalidCatalog)
	}
	if cat.Size() == 0 {
		return fmt.Errorf("%w: no exercises", ErrInvalidCatalog)
	}
	buckets := make(map[string]struct{}, len(cat.Strength))
	for _, b := range cat.Strength {
		if b.Name == "" {
			return fmt.Errorf("%w: strength bucket without name", ErrInvalidCatalog)
		}
		if _, dup := buckets[b.Name]; dup {
			return fmt.Errorf("%w: duplicate bucket %q", ErrInvalidCatalog, b.Name)
		}
		buckets[b.Name] = struct{}{}
		if err := validateList("strength/"+b.Name, b.Exercises); err != nil {
			return err
		}
	}
	if err := validateList("cardio", cat.Cardio); err != nil {
		return err
	}
	return validateList("flexibility", cat.Flexibility)
}

func validateList(section string, exercises []domain.ExerciseDefinition) error {
	seen := make(map[string]struct{}, len(exercises))
	for _, ex := range exercises {
		if strings.TrimSpace(ex.Name) == "" {
			return fmt.Errorf("%w: %s: exercise without name", ErrInvalidCatalog, section)
		}
		if !ex.Difficulty.Valid() {
			return fmt.Errorf("%w: %s: %s has difficulty %q", ErrInvalidCatalog, section, ex.Name, ex.Difficulty)
		}
		if _, dup := seen[ex.Name]; dup {
			return fmt.Errorf("%w: %s: duplicate exercise %q", ErrInvalidCatalog, section, ex.Name)
		}
		seen[ex.Name] = struct{}{}
	}
	return nil
}
