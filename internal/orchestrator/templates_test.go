package orchestrator

import "testing"

func TestAnalyzeProject(t *testing.T) {
	cases := []struct {
		name  string
		files map[string]string
		want  string
	}{
		{"node", map[string]string{"package.json": "{}"}, "node"},
		{"python", map[string]string{"requirements.txt": "flask"}, "python"},
		{"go", map[string]string{"go.mod": "module app"}, "go"},
		{"static", map[string]string{"index.html": "<html>"}, "static"},
		{"fallback", map[string]string{"README.md": "hi"}, "node"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			template, err := AnalyzeProject(tc.files)
			if err != nil {
				t.Fatalf("AnalyzeProject failed: %v", err)
			}
			if template.Name != tc.want {
				t.Errorf("template = %s, want %s", template.Name, tc.want)
			}
			if template.Base == "" || template.Port == 0 || template.Start == "" {
				t.Errorf("template %s is incomplete: %+v", template.Name, template)
			}
		})
	}
}

func TestTemplateByName(t *testing.T) {
	if _, err := TemplateByName("python"); err != nil {
		t.Errorf("expected python template: %v", err)
	}
	if _, err := TemplateByName("cobol"); err == nil {
		t.Error("expected unknown template error")
	}
}
