package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aluiziolira/go-scrape-catalog/models"
	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

// Schema describes where records live in a page and how each field is read.
type Schema struct {
	// Container selects one block per record.
	Container string  `yaml:"container"`
	Fields    []Field `yaml:"fields"`
}

// Field locates one value inside a container block. The first element
// matching Selector is used; its Attr is read when set, its text otherwise.
type Field struct {
	Name     string `yaml:"name"`
	Selector string `yaml:"selector"`
	Attr     string `yaml:"attr,omitempty"`
	Trim     bool   `yaml:"trim,omitempty"`
}

// DefaultSchema reads product cards from a books.toscrape.com catalogue page.
func DefaultSchema() *Schema {
	return &Schema{
		Container: "article.product_pod",
		Fields: []Field{
			{Name: models.ColumnTitle, Selector: "h3 a", Attr: "title"},
			{Name: models.ColumnPrice, Selector: "p.price_color"},
			{Name: models.ColumnAvailability, Selector: "p.instock.availability", Trim: true},
		},
	}
}

// LoadSchema reads and validates a YAML schema file.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}

	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema file %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("schema %s: %w", path, err)
	}
	return &s, nil
}

var errInvalidSchema = errors.New("invalid schema")

// Validate checks the schema has a container, uniquely named fields, and
// selectors that compile.
func (s *Schema) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: schema is nil", errInvalidSchema)
	}
	if strings.TrimSpace(s.Container) == "" {
		return fmt.Errorf("%w: container selector cannot be empty", errInvalidSchema)
	}
	if _, err := cascadia.Compile(s.Container); err != nil {
		return fmt.Errorf("%w: container selector %q: %v", errInvalidSchema, s.Container, err)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("%w: at least one field is required", errInvalidSchema)
	}

	seen := make(map[string]struct{}, len(s.Fields))
	for i, f := range s.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("%w: field[%d] has no name", errInvalidSchema, i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate field name %q", errInvalidSchema, f.Name)
		}
		seen[f.Name] = struct{}{}

		if strings.TrimSpace(f.Selector) == "" {
			return fmt.Errorf("%w: field %q has no selector", errInvalidSchema, f.Name)
		}
		if _, err := cascadia.Compile(f.Selector); err != nil {
			return fmt.Errorf("%w: field %q selector %q: %v", errInvalidSchema, f.Name, f.Selector, err)
		}
	}
	return nil
}

// Columns returns the field names in declaration order.
func (s *Schema) Columns() []string {
	cols := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = f.Name
	}
	return cols
}
