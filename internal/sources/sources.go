// Package sources tracks loaded policy sources by id so rules can reference
// their origin by an immutable id+span pair instead of a live back-reference.
package sources

// Source is one loaded piece of policy text. Filename is empty for strings
// loaded directly.
type Source struct {
	Filename string
	Src      string
}

// Sources maps source ids to loaded sources.
type Sources struct {
	byID map[uint64]Source
}

// New returns an empty source registry.
func New() *Sources {
	return &Sources{byID: map[uint64]Source{}}
}

// Add registers src under id.
func (s *Sources) Add(id uint64, src Source) {
	s.byID[id] = src
}

// Get returns the source registered under id.
func (s *Sources) Get(id uint64) (Source, bool) {
	src, ok := s.byID[id]
	return src, ok
}

// Remove drops and returns the source registered under id.
func (s *Sources) Remove(id uint64) (Source, bool) {
	src, ok := s.byID[id]
	if ok {
		delete(s.byID, id)
	}
	return src, ok
}

// Clear drops every registered source.
func (s *Sources) Clear() {
	s.byID = map[uint64]Source{}
}
