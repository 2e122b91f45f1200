// Package store holds the in-memory, insertion-ordered collection of cases.
//
// A Store is owned explicitly by its caller and is not safe for concurrent
// use; front ends serialize access through the intake service.
package store

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/case-intake/internal/domain"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no case has the requested id.
	ErrNotFound = errors.New("case not found")

	// ErrDuplicateID is returned when a case id is already taken.
	ErrDuplicateID = errors.New("duplicate case id")
)

// Store is an ordered sequence of cases, unique by id.
type Store struct {
	cases []domain.Case
	index map[string]int
	newID func() string
}

// New creates an empty Store that assigns UUIDv4 identifiers.
func New() *Store {
	return &Store{
		index: make(map[string]int),
		newID: uuid.NewString,
	}
}

// Add appends c, assigning a fresh id when c has none, and returns the
// stored copy.
func (s *Store) Add(c domain.Case) (domain.Case, error) {
	if c.ID == "" {
		c.ID = s.freshID()
	} else if _, ok := s.index[c.ID]; ok {
		return domain.Case{}, fmt.Errorf("add case %s: %w", c.ID, ErrDuplicateID)
	}
	c = c.Clone()
	s.index[c.ID] = len(s.cases)
	s.cases = append(s.cases, c)
	return c.Clone(), nil
}

// Update replaces the case that has c's id, keeping its position.
func (s *Store) Update(c domain.Case) error {
	i, ok := s.index[c.ID]
	if !ok {
		return fmt.Errorf("update case %s: %w", c.ID, ErrNotFound)
	}
	s.cases[i] = c.Clone()
	return nil
}

// FindByID returns the case with the given id and whether it exists.
func (s *Store) FindByID(id string) (domain.Case, bool) {
	i, ok := s.index[id]
	if !ok {
		return domain.Case{}, false
	}
	return s.cases[i].Clone(), true
}

// All returns every case in insertion order. The slice is a copy.
func (s *Store) All() []domain.Case {
	out := make([]domain.Case, len(s.cases))
	for i, c := range s.cases {
		out[i] = c.Clone()
	}
	return out
}

// Len returns the number of stored cases.
func (s *Store) Len() int {
	return len(s.cases)
}

// Replace discards the current contents and installs cases in their given
// order. Every case must carry a unique, non-empty id; on error the store
// is left untouched.
func (s *Store) Replace(cases []domain.Case) error {
	index := make(map[string]int, len(cases))
	fresh := make([]domain.Case, 0, len(cases))
	for i, c := range cases {
		if c.ID == "" {
			return fmt.Errorf("replace: case at position %d has no id", i)
		}
		if _, ok := index[c.ID]; ok {
			return fmt.Errorf("replace: case %s: %w", c.ID, ErrDuplicateID)
		}
		index[c.ID] = i
		fresh = append(fresh, c.Clone())
	}
	s.cases = fresh
	s.index = index
	return nil
}

// freshID draws ids until one is unused. Collisions only happen with a
// non-random generator.
func (s *Store) freshID() string {
	for {
		id := s.newID()
		if _, ok := s.index[id]; !ok {
			return id
		}
	}
}
