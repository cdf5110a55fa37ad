package planner

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/study-plan-api/internal/models"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	Subjects []catalogSubject `yaml:"subjects"`
}

type catalogSubject struct {
	Name      string                         `yaml:"name"`
	Aliases   []string                       `yaml:"aliases"`
	Topics    map[models.Difficulty][]string `yaml:"topics"`
	Resources []models.Resource              `yaml:"resources"`
}

type topicKey struct {
	subject    string
	difficulty models.Difficulty
}

// Catalog is an immutable snapshot of curated topics and resources.
// It is safe to share across goroutines once built.
type Catalog struct {
	topics    map[topicKey][]string
	resources map[string][]models.Resource
}

// DefaultCatalog parses the embedded curated catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// LoadCatalog reads a catalog from a YAML file. An empty path yields the embedded default.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog builds a Catalog from YAML. Subject names and aliases are matched case-insensitively.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		topics:    make(map[topicKey][]string),
		resources: make(map[string][]models.Resource),
	}
	for _, subject := range file.Subjects {
		name := normalizeSubject(subject.Name)
		if name == "" {
			return nil, fmt.Errorf("parse catalog: subject without name")
		}
		keys := append([]string{name}, subject.Aliases...)
		for _, key := range keys {
			key = normalizeSubject(key)
			for difficulty, topics := range subject.Topics {
				// empty lists fall through to generic synthesis
				if len(topics) == 0 {
					continue
				}
				c.topics[topicKey{subject: key, difficulty: difficulty}] = append([]string(nil), topics...)
			}
			if len(subject.Resources) > 0 {
				c.resources[key] = append([]models.Resource(nil), subject.Resources...)
			}
		}
	}
	return c, nil
}

// Curated returns the curated topic list for a subject and difficulty, if any.
func (c *Catalog) Curated(subject string, difficulty models.Difficulty) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	topics, ok := c.topics[topicKey{subject: normalizeSubject(subject), difficulty: difficulty}]
	if !ok {
		return nil, false
	}
	return append([]string(nil), topics...), true
}

// Resources returns curated resources for a subject, or an empty list.
func (c *Catalog) Resources(subject string) []models.Resource {
	if c == nil {
		return []models.Resource{}
	}
	res, ok := c.resources[normalizeSubject(subject)]
	if !ok {
		return []models.Resource{}
	}
	return append([]models.Resource(nil), res...)
}

func normalizeSubject(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}
