package watcher

import "testing"

func TestFilterMatch(t *testing.T) {
	f, err := NewFilter(nil)
	if err != nil {
		t.Fatalf("NewFilter() error = %v", err)
	}

	tests := []struct {
		path string
		want bool
	}{
		{"examples/cylinder.yaml", true},
		{"examples/cylinder.yml", true},
		{"templates/example.html", true},
		{"static/style.css", true},
		{"static/logo.svg", true},
		{"examples/notes.txt", false},
		{"examples/.cylinder.yaml.swp", false},
		{"examples/.hidden.yaml", false},
		{"examples/cylinder.yaml~", false},
		{"examples/#cylinder.yaml#", false},
	}
	for _, tt := range tests {
		if got := f.Match(tt.path); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFilterCustomPatterns(t *testing.T) {
	f, err := NewFilter([]string{"*.py"})
	if err != nil {
		t.Fatal(err)
	}
	if !f.Match("examples/laplace.py") || f.Match("examples/x.yaml") {
		t.Error("custom patterns should replace the defaults")
	}
}

func TestNewFilterInvalidPattern(t *testing.T) {
	_, err := NewFilter([]string{"[unclosed"})
	if _, ok := err.(*PatternError); !ok {
		t.Errorf("NewFilter() error = %v, want *PatternError", err)
	}
}
