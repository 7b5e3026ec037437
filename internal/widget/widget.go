// Package widget defines the catalog of placeable dashboard widgets:
// their type tags, default configuration layers, and the configuration
// paths that act as data-binding parameters.
package widget

import (
	"fmt"
	"sort"
	"sync"
)

// Category groups widgets in the editor's palette.
type Category string

// Palette categories.
const (
	CategoryChart   Category = "chart"
	CategoryControl Category = "control"
	CategoryDisplay Category = "display"
	CategoryMedia   Category = "media"
)

// Definition describes one widget type.
type Definition struct {
	// Type is the widget's stable type tag.
	Type string `yaml:"type" json:"type"`

	// Name is the human-readable palette label.
	Name string `yaml:"name" json:"name"`

	Category Category `yaml:"category" json:"category"`

	// DefaultBase seeds the base configuration layer on placement.
	DefaultBase map[string]any `yaml:"defaultBase,omitempty" json:"defaultBase,omitempty"`

	// DefaultComponent seeds the component configuration layer.
	DefaultComponent map[string]any `yaml:"defaultComponent,omitempty" json:"defaultComponent,omitempty"`

	// BindingPaths are the dotted configuration paths whose changes
	// require data re-acquisition.
	BindingPaths []string `yaml:"bindingPaths,omitempty" json:"bindingPaths,omitempty"`
}

// Validate checks the definition's structural requirements.
func (d *Definition) Validate() error {
	if d.Type == "" {
		return fmt.Errorf("widget definition missing type")
	}
	if d.Name == "" {
		return fmt.Errorf("widget %q missing name", d.Type)
	}
	return nil
}

// Catalog is a registry of widget definitions.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewCatalog creates a catalog preloaded with the built-in widget set.
func NewCatalog() *Catalog {
	c := &Catalog{defs: make(map[string]Definition)}
	for _, def := range builtins {
		c.defs[def.Type] = def
	}
	return c
}

// Register adds or replaces a definition.
func (c *Catalog) Register(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	c.defs[def.Type] = def
	c.mu.Unlock()
	return nil
}

// Lookup returns the definition for a widget type.
func (c *Catalog) Lookup(widgetType string) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.defs[widgetType]
	return def, ok
}

// Types returns all registered type tags, sorted.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.defs))
	for t := range c.defs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// builtins is the standard widget set.
var builtins = []Definition{
	{
		Type:     "chart-bar",
		Name:     "Bar Chart",
		Category: CategoryChart,
		DefaultBase: map[string]any{
			"title":   "Bar Chart",
			"visible": true,
			"opacity": 1.0,
		},
		DefaultComponent: map[string]any{
			"showLegend": true,
			"stacked":    false,
			"barWidth":   20,
		},
		BindingPaths: []string{"component.aggregation", "component.timeRange"},
	},
	{
		Type:     "chart-curve",
		Name:     "Curve Chart",
		Category: CategoryChart,
		DefaultBase: map[string]any{
			"title":   "Curve Chart",
			"visible": true,
			"opacity": 1.0,
		},
		DefaultComponent: map[string]any{
			"smooth":     true,
			"showLegend": true,
			"fillArea":   false,
		},
		BindingPaths: []string{"component.aggregation", "component.timeRange"},
	},
	{
		Type:     "gauge-dashboard",
		Name:     "Gauge",
		Category: CategoryDisplay,
		DefaultBase: map[string]any{
			"title":   "Gauge",
			"visible": true,
			"opacity": 1.0,
		},
		DefaultComponent: map[string]any{
			"min":  0,
			"max":  100,
			"unit": "",
		},
		BindingPaths: []string{"component.metric"},
	},
	{
		Type:     "switch",
		Name:     "Switch",
		Category: CategoryControl,
		DefaultBase: map[string]any{
			"title":   "Switch",
			"visible": true,
			"opacity": 1.0,
		},
		DefaultComponent: map[string]any{
			"onLabel":  "On",
			"offLabel": "Off",
		},
		BindingPaths: []string{"component.commandKey"},
	},
	{
		Type:     "text-info",
		Name:     "Text",
		Category: CategoryDisplay,
		DefaultBase: map[string]any{
			"title":   "Text",
			"visible": true,
			"opacity": 1.0,
		},
		DefaultComponent: map[string]any{
			"fontSize": 14,
			"align":    "left",
		},
	},
	{
		Type:     "video-player",
		Name:     "Video",
		Category: CategoryMedia,
		DefaultBase: map[string]any{
			"title":   "Video",
			"visible": true,
			"opacity": 1.0,
		},
		DefaultComponent: map[string]any{
			"autoplay": false,
			"muted":    true,
		},
		BindingPaths: []string{"component.streamUrl"},
	},
}
