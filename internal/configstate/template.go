package configstate

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/sjson"
	"go.uber.org/zap"
)

// TemplateParam declares one substitutable slot in a template.
type TemplateParam struct {
	// Name is the caller-facing parameter name.
	Name string `json:"name" yaml:"name"`

	// Path is the dotted path in the configuration document the value is
	// written to, e.g. "base.deviceId" or "component.series.0.color".
	Path string `json:"path" yaml:"path"`

	// Default is used when the caller provides no value. A nil default on
	// an optional parameter leaves the template's own value in place.
	Default any `json:"default,omitempty" yaml:"default,omitempty"`

	Required bool `json:"required,omitempty" yaml:"required,omitempty"`
}

// Template is a named, parameterized default configuration.
type Template struct {
	ID          string              `json:"id" yaml:"id"`
	Name        string              `json:"name" yaml:"name"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	Config      WidgetConfiguration `json:"config" yaml:"config"`
	Params      []TemplateParam     `json:"params,omitempty" yaml:"params,omitempty"`
}

// RegisterTemplate adds a template to the manager's registry.
func (m *Manager) RegisterTemplate(t Template) error {
	if t.ID == "" {
		return fmt.Errorf("template id required")
	}
	m.tmplMu.Lock()
	defer m.tmplMu.Unlock()

	if _, exists := m.templates[t.ID]; exists {
		return fmt.Errorf("%w: %s", ErrTemplateExists, t.ID)
	}
	m.templates[t.ID] = t
	return nil
}

// GetTemplate returns a registered template.
func (m *Manager) GetTemplate(id string) (Template, bool) {
	m.tmplMu.RLock()
	defer m.tmplMu.RUnlock()
	t, ok := m.templates[id]
	return t, ok
}

// ListTemplates returns all registered templates.
func (m *Manager) ListTemplates() []Template {
	m.tmplMu.RLock()
	defer m.tmplMu.RUnlock()

	out := make([]Template, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, t)
	}
	return out
}

// ApplyTemplate instantiates a template for componentID, substituting
// parameter values by dotted path, and writes the result through
// SetConfiguration. Missing required parameters fail before any write.
func (m *Manager) ApplyTemplate(templateID, componentID string, params map[string]any) error {
	m.tmplMu.RLock()
	t, ok := m.templates[templateID]
	m.tmplMu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, templateID)
	}

	doc, err := json.Marshal(t.Config)
	if err != nil {
		return fmt.Errorf("template %s: %w", templateID, err)
	}

	for _, p := range t.Params {
		value, provided := params[p.Name]
		if !provided {
			if p.Required && p.Default == nil {
				return fmt.Errorf("%w: %s", ErrMissingParameter, p.Name)
			}
			if p.Default == nil {
				continue
			}
			value = p.Default
		}

		doc, err = sjson.SetBytes(doc, p.Path, value)
		if err != nil {
			return fmt.Errorf("template %s parameter %s: %w", templateID, p.Name, err)
		}
	}

	var cfg WidgetConfiguration
	if err := json.Unmarshal(doc, &cfg); err != nil {
		return fmt.Errorf("template %s produced invalid configuration: %w", templateID, err)
	}

	if !m.SetConfiguration(componentID, cfg, SourceSystem) {
		m.logger.Debug("template application was a no-op",
			zap.String("templateId", templateID),
			zap.String("componentId", componentID))
	}
	return nil
}
