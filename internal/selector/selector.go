// Package selector reduces the per-name image sequences recovered from an
// execution log to the images shown on an example page.
//
// Two defaults apply and they are computed over different collections:
//   - per name, the last filename of that name's sequence is used
//   - for the thumbnail, the last image of the final selected list is used
//
// Both can be overridden with an explicit index.
package selector

// Sequences maps logical image names to the filenames observed for them,
// in log order. Name order is either fixed up front or first-seen.
type Sequences struct {
	fixed bool
	order []string
	files map[string][]string
}

// New creates an empty Sequences. A nil names slice enables discovery mode,
// where every name is tracked in the order it first appears. A non-nil slice
// (even an empty one) restricts tracking to exactly those names, in that
// order.
func New(names []string) *Sequences {
	s := &Sequences{
		fixed: names != nil,
		files: make(map[string][]string),
	}
	for _, name := range names {
		if _, ok := s.files[name]; ok {
			continue
		}
		s.order = append(s.order, name)
		s.files[name] = nil
	}
	return s
}

// Add records filename as the latest render of name. In fixed mode names
// outside the list are ignored.
func (s *Sequences) Add(name, filename string) {
	if _, ok := s.files[name]; !ok {
		if s.fixed {
			return
		}
		s.order = append(s.order, name)
	}
	s.files[name] = append(s.files[name], filename)
}

// Names returns the tracked names in presentation order.
func (s *Sequences) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Files returns the filenames recorded for name, oldest first.
func (s *Sequences) Files(name string) []string {
	files := s.files[name]
	out := make([]string, len(files))
	copy(out, files)
	return out
}

// Len returns the total number of recorded filenames.
func (s *Sequences) Len() int {
	n := 0
	for _, files := range s.files {
		n += len(files)
	}
	return n
}

// Select picks one filename per name using Pick and returns them in name
// order. Names without a pick contribute nothing.
func (s *Sequences) Select(index *int) []string {
	selected := make([]string, 0, len(s.order))
	for _, name := range s.order {
		if file, ok := Pick(s.files[name], index); ok {
			selected = append(selected, file)
		}
	}
	return selected
}

// Pick returns items[*index] when index is set, the last item otherwise.
// Out of range indices and empty input select nothing.
func Pick(items []string, index *int) (string, bool) {
	if index != nil {
		i := *index
		if i < 0 || i >= len(items) {
			return "", false
		}
		return items[i], true
	}
	if len(items) == 0 {
		return "", false
	}
	return items[len(items)-1], true
}

// Thumbnail applies Pick to the final list of selected images, not to any
// single name's sequence.
func Thumbnail(selected []string, index *int) (string, bool) {
	return Pick(selected, index)
}
