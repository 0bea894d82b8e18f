package orchestrator

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var templatesYAML []byte

// RuntimeTemplate describes how to provision and start one runtime
type RuntimeTemplate struct {
	Name    string   `yaml:"name"`
	Base    string   `yaml:"base"`
	Port    int      `yaml:"port"`
	Install string   `yaml:"install"`
	Start   string   `yaml:"start"`
	Detect  []string `yaml:"detect"`
}

type templateCatalog struct {
	Templates []RuntimeTemplate `yaml:"templates"`
}

var (
	catalog     templateCatalog
	catalogOnce sync.Once
	catalogErr  error
)

func loadTemplates() ([]RuntimeTemplate, error) {
	catalogOnce.Do(func() {
		catalogErr = yaml.Unmarshal(templatesYAML, &catalog)
		if catalogErr == nil && len(catalog.Templates) == 0 {
			catalogErr = fmt.Errorf("template catalog is empty")
		}
	})
	return catalog.Templates, catalogErr
}

// AnalyzeProject picks the runtime template whose marker files appear
// in the project. Falls back to the node template when nothing matches.
func AnalyzeProject(files map[string]string) (*RuntimeTemplate, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to load runtime templates: %w", err)
	}

	for i := range templates {
		for _, marker := range templates[i].Detect {
			if _, ok := files[marker]; ok {
				return &templates[i], nil
			}
		}
	}
	return &templates[0], nil
}

// TemplateByName returns a template from the catalog
func TemplateByName(name string) (*RuntimeTemplate, error) {
	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	for i := range templates {
		if templates[i].Name == name {
			return &templates[i], nil
		}
	}
	return nil, fmt.Errorf("unknown runtime template %q", name)
}
