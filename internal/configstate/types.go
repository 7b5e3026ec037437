package configstate

import (
	"encoding/json"
	"time"

	"github.com/sashad/cardcore/internal/interaction"
)

// Section identifies one of the four independently-owned configuration
// layers of a widget.
type Section string

// Configuration sections.
const (
	SectionBase        Section = "base"
	SectionComponent   Section = "component"
	SectionDataSource  Section = "dataSource"
	SectionInteraction Section = "interaction"
)

// Sections lists all configuration sections in canonical order.
var Sections = []Section{SectionBase, SectionComponent, SectionDataSource, SectionInteraction}

// Valid reports whether s names a known configuration section.
func (s Section) Valid() bool {
	switch s {
	case SectionBase, SectionComponent, SectionDataSource, SectionInteraction:
		return true
	}
	return false
}

// Source identifies where a configuration write originated.
type Source string

// Write sources.
const (
	SourceUser        Source = "user"
	SourceSystem      Source = "system"
	SourceImport      Source = "import"
	SourceRestore     Source = "restore"
	SourceInteraction Source = "interaction"
)

// BaseConfig is the display/style/layout/device-binding layer shared by all
// widget types. Known fields are typed; anything else a panel writes lands
// in Extra and survives serialization round trips.
type BaseConfig struct {
	Title           string   `json:"title,omitempty"`
	Visible         *bool    `json:"visible,omitempty"`
	Opacity         *float64 `json:"opacity,omitempty"`
	BackgroundColor string   `json:"backgroundColor,omitempty"`
	BorderColor     string   `json:"borderColor,omitempty"`
	BorderRadius    *int     `json:"borderRadius,omitempty"`
	Padding         *int     `json:"padding,omitempty"`
	Margin          *int     `json:"margin,omitempty"`

	// Device binding. Lives in base since the layer migration; legacy
	// documents carrying these under component are reshaped by the bridge.
	DeviceID    string   `json:"deviceId,omitempty"`
	MetricsList []string `json:"metricsList,omitempty"`

	// Extra holds free-form base properties with no typed field.
	Extra map[string]any `json:"-"`
}

// baseKnownKeys are the JSON keys owned by BaseConfig's typed fields.
var baseKnownKeys = []string{
	"title", "visible", "opacity", "backgroundColor", "borderColor",
	"borderRadius", "padding", "margin", "deviceId", "metricsList",
}

// MarshalJSON flattens Extra alongside the typed fields. Typed fields win
// on key collision.
func (b BaseConfig) MarshalJSON() ([]byte, error) {
	type plain BaseConfig
	raw, err := json.Marshal(plain(b))
	if err != nil {
		return nil, err
	}

	if len(b.Extra) == 0 {
		return raw, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, err
	}
	for k, v := range b.Extra {
		if _, owned := merged[k]; !owned {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON splits incoming keys into typed fields and Extra.
func (b *BaseConfig) UnmarshalJSON(data []byte) error {
	type plain BaseConfig
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range baseKnownKeys {
		delete(all, k)
	}
	if len(all) > 0 {
		p.Extra = all
	}

	*b = BaseConfig(p)
	return nil
}

// Metadata carries versioning and migration markers for a configuration
// document. CreatedAt and UpdatedAt are volatile and excluded from content
// hashing; LastForcedUpdate deliberately is not.
type Metadata struct {
	Version          string     `json:"version,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	MigrationVersion string     `json:"migrationVersion,omitempty"`
	MigratedAt       *time.Time `json:"migratedAt,omitempty"`
	LastForcedUpdate int64      `json:"lastForcedUpdate,omitempty"`
}

// SchemaVersion is the current configuration document schema version.
const SchemaVersion = "2.1"

// WidgetConfiguration is the full persisted state of one widget instance.
// All four layers are non-nil after initialization.
type WidgetConfiguration struct {
	Base        BaseConfig           `json:"base"`
	Component   map[string]any       `json:"component"`
	DataSource  map[string]any       `json:"dataSource"`
	Interaction []interaction.Config `json:"interaction"`
	Metadata    Metadata             `json:"metadata"`
}

// NewWidgetConfiguration returns an empty configuration with all layers
// present and metadata stamped.
func NewWidgetConfiguration() WidgetConfiguration {
	now := time.Now()
	return WidgetConfiguration{
		Component:   map[string]any{},
		DataSource:  map[string]any{},
		Interaction: []interaction.Config{},
		Metadata: Metadata{
			Version:   SchemaVersion,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// normalize guarantees the all-layers-present invariant.
func (c *WidgetConfiguration) normalize() {
	if c.Component == nil {
		c.Component = map[string]any{}
	}
	if c.DataSource == nil {
		c.DataSource = map[string]any{}
	}
	if c.Interaction == nil {
		c.Interaction = []interaction.Config{}
	}
	if c.Metadata.Version == "" {
		c.Metadata.Version = SchemaVersion
	}
}

// Clone returns a deep copy of the configuration.
func (c WidgetConfiguration) Clone() WidgetConfiguration {
	raw, err := json.Marshal(c)
	if err != nil {
		// A stored configuration is always serializable; it entered the
		// store through a JSON-checked write path.
		return c
	}
	var out WidgetConfiguration
	if err := json.Unmarshal(raw, &out); err != nil {
		return c
	}
	out.normalize()
	return out
}

// asMap returns the configuration as a normalized document map.
func (c WidgetConfiguration) asMap() (map[string]any, error) {
	return toMap(c)
}

// Version is one entry in a component's version history.
type Version struct {
	Number      int64     `json:"number"`
	ContentHash string    `json:"contentHash"`
	Timestamp   time.Time `json:"timestamp"`
	Source      Source    `json:"source"`
	ChangeType  string    `json:"changeType,omitempty"`
}

// Change is the manager's debounced change notification.
type Change struct {
	// ComponentID is the widget instance the change applies to.
	ComponentID string

	// Section is the updated layer, or empty for a full-document replace.
	Section Section

	// Old and New are deep copies of the configuration before and after.
	Old WidgetConfiguration
	New WidgetConfiguration

	// Version is the version number assigned to New.
	Version int64

	Source Source

	// Forced marks a cross-component interaction write that bypassed
	// deduplication.
	Forced bool
}
