package recipe

import (
	"sort"
	"strings"

	"github.com/google/uuid"
)

// SavedSet is the user's ordered collection of saved recipes. Names are
// unique within the set; entries keep insertion order.
type SavedSet struct {
	items []Recipe
}

// NewSavedSet builds a set from persisted records. Later duplicates of a
// name are dropped.
func NewSavedSet(recipes []Recipe) SavedSet {
	s := SavedSet{items: make([]Recipe, 0, len(recipes))}
	for _, r := range recipes {
		s.Add(r)
	}
	return s
}

// Len returns the number of saved recipes
func (s SavedSet) Len() int {
	return len(s.items)
}

// List returns a copy of the entries in insertion order
func (s SavedSet) List() []Recipe {
	out := make([]Recipe, len(s.items))
	for i, r := range s.items {
		out[i] = r.Clone()
	}
	return out
}

// ContainsName reports whether a recipe with that name is saved
func (s SavedSet) ContainsName(name string) bool {
	return s.indexByName(name) >= 0
}

// ByName returns the saved entry with that name
func (s SavedSet) ByName(name string) (Recipe, bool) {
	if i := s.indexByName(name); i >= 0 {
		return s.items[i].Clone(), true
	}
	return Recipe{}, false
}

// ByID returns the saved entry with that id
func (s SavedSet) ByID(id uuid.UUID) (Recipe, bool) {
	if i := s.indexByID(id); i >= 0 {
		return s.items[i].Clone(), true
	}
	return Recipe{}, false
}

// Add appends the recipe unless its name is already present. It reports
// whether the set changed.
func (s *SavedSet) Add(r Recipe) bool {
	if s.ContainsName(r.Name) {
		return false
	}
	s.items = append(s.items, r.Clone())
	return true
}

// RemoveByName deletes the entry with that name and returns it
func (s *SavedSet) RemoveByName(name string) (Recipe, bool) {
	i := s.indexByName(name)
	if i < 0 {
		return Recipe{}, false
	}
	removed := s.items[i]
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	return removed, true
}

// UpdateByID applies fn to the entry with that id. It reports whether an
// entry was found.
func (s *SavedSet) UpdateByID(id uuid.UUID, fn func(*Recipe)) bool {
	i := s.indexByID(id)
	if i < 0 {
		return false
	}
	fn(&s.items[i])
	return true
}

// UpdateByName applies fn to the entry with that name
func (s *SavedSet) UpdateByName(name string, fn func(*Recipe)) (Recipe, bool) {
	i := s.indexByName(name)
	if i < 0 {
		return Recipe{}, false
	}
	fn(&s.items[i])
	return s.items[i].Clone(), true
}

// Each applies fn to every entry and reports whether any call returned true
func (s *SavedSet) Each(fn func(*Recipe) bool) bool {
	changed := false
	for i := range s.items {
		if fn(&s.items[i]) {
			changed = true
		}
	}
	return changed
}

// Search returns the entries whose name contains query, ignoring case,
// sorted by name. An empty query matches everything.
func (s SavedSet) Search(query string) []Recipe {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Recipe, 0, len(s.items))
	for _, r := range s.items {
		if q == "" || strings.Contains(strings.ToLower(r.Name), q) {
			out = append(out, r.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a == b {
			return out[i].Name < out[j].Name
		}
		return a < b
	})
	return out
}

func (s SavedSet) indexByName(name string) int {
	for i, r := range s.items {
		if r.Name == name {
			return i
		}
	}
	return -1
}

func (s SavedSet) indexByID(id uuid.UUID) int {
	if id == uuid.Nil {
		return -1
	}
	for i, r := range s.items {
		if r.ID == id {
			return i
		}
	}
	return -1
}
