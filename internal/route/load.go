package route

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/avvvet/sightline/internal/models"
)

type tableFile struct {
	Routes map[string][]models.RouteStep `yaml:"routes"`
}

// Parse builds a table from YAML of the form
//
//	routes:
//	  cafeteria:
//	    - action: FORWARD
//	      description: Walk straight down the hallway
func Parse(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse route table: %w", err)
	}
	return NewTable(f.Routes)
}

// LoadFile reads a YAML route table from disk
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read route table: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
