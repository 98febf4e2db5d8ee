package catalogue

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nutriplan/backend/internal/domain"
)

// catalogueFile is the on-disk catalogue format
type catalogueFile struct {
	Foods []domain.FoodItem `yaml:"foods"`
}

// LoadFile reads a YAML catalogue file and builds a validated in-memory
// catalogue from it
func LoadFile(path string) (*MemoryCatalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue file: %w", err)
	}

	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalogue file %s: %w", path, err)
	}

	if len(file.Foods) == 0 {
		return nil, fmt.Errorf("catalogue file %s: %w", path, domain.ErrEmptyCatalogue)
	}

	return New(file.Foods)
}
