package selector

import (
	"reflect"
	"testing"
)

func intPtr(i int) *int { return &i }

func TestDiscoveryModeSelectsLastPerName(t *testing.T) {
	s := New(nil)
	s.Add("x", "h1.png")
	s.Add("x", "h2.png")
	s.Add("y", "h3.jpg")

	got := s.Select(nil)
	want := []string{"h2.png", "h3.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Select(nil) = %v, want %v", got, want)
	}

	if names := s.Names(); !reflect.DeepEqual(names, []string{"x", "y"}) {
		t.Errorf("Names() = %v, want [x y]", names)
	}

	thumb, ok := Thumbnail(got, nil)
	if !ok || thumb != "h3.jpg" {
		t.Errorf("Thumbnail() = %q, %v; want h3.jpg, true", thumb, ok)
	}
}

func TestFixedModeOrderAndFiltering(t *testing.T) {
	s := New([]string{"residual", "solution", "missing"})
	s.Add("solution", "a.png")
	s.Add("other", "b.png")
	s.Add("residual", "c.png")
	s.Add("solution", "d.png")

	got := s.Select(nil)
	want := []string{"c.png", "d.png"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Select(nil) = %v, want %v", got, want)
	}
	if files := s.Files("other"); len(files) != 0 {
		t.Errorf("untracked name recorded: %v", files)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
}

func TestFixedModeEmptyListTracksNothing(t *testing.T) {
	s := New([]string{})
	s.Add("x", "h1.png")
	if got := s.Select(nil); len(got) != 0 {
		t.Errorf("Select(nil) = %v, want empty", got)
	}
}

func TestSelectWithIndex(t *testing.T) {
	s := New(nil)
	s.Add("x", "x0.png")
	s.Add("x", "x1.png")
	s.Add("x", "x2.png")
	s.Add("y", "y0.png")

	tests := []struct {
		name  string
		index *int
		want  []string
	}{
		{name: "no index takes last", index: nil, want: []string{"x2.png", "y0.png"}},
		{name: "index zero", index: intPtr(0), want: []string{"x0.png", "y0.png"}},
		{name: "index past short sequence", index: intPtr(1), want: []string{"x1.png"}},
		{name: "index past every sequence", index: intPtr(5), want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Select(tt.index)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Select() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestThumbnailUsesFinalList(t *testing.T) {
	s := New(nil)
	s.Add("x", "x0.png")
	s.Add("x", "x1.png")
	s.Add("y", "y0.png")
	selected := s.Select(nil)

	thumb, ok := Thumbnail(selected, intPtr(0))
	if !ok || thumb != "x1.png" {
		t.Errorf("Thumbnail(index 0) = %q, %v; want x1.png (first selected, not first render)", thumb, ok)
	}

	if _, ok := Thumbnail(selected, intPtr(2)); ok {
		t.Error("Thumbnail with out of range index should select nothing")
	}

	if _, ok := Thumbnail(nil, nil); ok {
		t.Error("Thumbnail of empty list should select nothing")
	}
}

func TestPickNegativeIndex(t *testing.T) {
	if _, ok := Pick([]string{"a"}, intPtr(-1)); ok {
		t.Error("negative index should select nothing")
	}
}
