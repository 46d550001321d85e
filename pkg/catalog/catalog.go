// Package catalog provides the read-only lookup table of node templates.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dukex/flowcanvas/pkg/models"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var defaultTemplates []byte

var (
	ErrDuplicateTemplate = errors.New("duplicate template id")
	ErrInvalidTemplate   = errors.New("invalid template")
	ErrEmptyCatalog      = errors.New("catalog has no templates")
)

// Resolver resolves a template reference to its display metadata.
type Resolver interface {
	Lookup(id string) (models.Template, bool)
}

// Catalog is an immutable, ordered set of templates.
type Catalog struct {
	templates []models.Template
	byID      map[string]int
}

type file struct {
	Templates []models.Template `yaml:"templates"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the built-in catalog.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(defaultTemplates)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded templates are invalid: %v", err))
		}

		defaultCatalog = c
	})

	return defaultCatalog
}

// New builds a catalog from templates, validating each of them.
func New(templates ...models.Template) (*Catalog, error) {
	if len(templates) == 0 {
		return nil, ErrEmptyCatalog
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	c := &Catalog{
		templates: make([]models.Template, 0, len(templates)),
		byID:      make(map[string]int, len(templates)),
	}

	for i, template := range templates {
		if err := validate.Struct(template); err != nil {
			return nil, fmt.Errorf("%w at index %d (%q): %w", ErrInvalidTemplate, i, template.ID, err)
		}

		if _, exists := c.byID[template.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTemplate, template.ID)
		}

		c.byID[template.ID] = len(c.templates)
		c.templates = append(c.templates, template)
	}

	return c, nil
}

// Parse reads a YAML document with a top level "templates" list.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	return New(f.Templates...)
}

// Load reads a YAML catalog from r.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	return Parse(data)
}

func (c *Catalog) Lookup(id string) (models.Template, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return models.Template{}, false
	}

	return c.templates[idx], true
}

// Templates returns every template in declaration order.
func (c *Catalog) Templates() []models.Template {
	return append([]models.Template(nil), c.templates...)
}

// ByKind returns the templates of one kind in declaration order.
func (c *Catalog) ByKind(kind models.NodeKind) []models.Template {
	var templates []models.Template

	for _, template := range c.templates {
		if template.Kind == kind {
			templates = append(templates, template)
		}
	}

	return templates
}

func (c *Catalog) Len() int {
	return len(c.templates)
}
