package widget

import (
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk catalog document.
type catalogFile struct {
	Widgets []Definition `yaml:"widgets"`
}

// LoadCatalog reads widget definitions from a YAML document and merges
// them into the catalog, replacing built-ins with the same type tag.
func (c *Catalog) LoadCatalog(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	for i, def := range file.Widgets {
		if err := c.Register(def); err != nil {
			return fmt.Errorf("catalog entry %d: %w", i, err)
		}
	}
	return nil
}

// LoadCatalogFile loads a catalog from a YAML file on disk.
func (c *Catalog) LoadCatalogFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return c.LoadCatalog(f)
}

// Export serializes the catalog to YAML.
func (c *Catalog) Export() ([]byte, error) {
	c.mu.RLock()
	file := catalogFile{Widgets: make([]Definition, 0, len(c.defs))}
	for _, t := range c.typesLocked() {
		file.Widgets = append(file.Widgets, c.defs[t])
	}
	c.mu.RUnlock()
	return yaml.Marshal(file)
}

func (c *Catalog) typesLocked() []string {
	out := make([]string, 0, len(c.defs))
	for t := range c.defs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
