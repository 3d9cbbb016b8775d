package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xhad/vision-sync/internal/models"
)

//go:embed furniture.yaml
var defaultCatalog []byte

type catalogFile struct {
	Products []models.Product `yaml:"products"`
}

// Default returns the furniture catalog bundled with the binary.
func Default() ([]models.Product, error) {
	return parse(defaultCatalog)
}

// LoadFile reads a catalog with the same schema as the bundled one.
func LoadFile(path string) ([]models.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading catalog file: %w", err)
	}
	return parse(data)
}

func parse(data []byte) ([]models.Product, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing catalog: %w", err)
	}
	if err := validate(file.Products); err != nil {
		return nil, err
	}
	return file.Products, nil
}

func validate(products []models.Product) error {
	if len(products) == 0 {
		return fmt.Errorf("catalog has no products")
	}
	seen := make(map[string]bool, len(products))
	for i, p := range products {
		if p.ID == "" {
			return fmt.Errorf("product %d: id is required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("product %s: duplicate id", p.ID)
		}
		seen[p.ID] = true
		if p.Description == "" {
			return fmt.Errorf("product %s: description is required", p.ID)
		}
	}
	return nil
}
