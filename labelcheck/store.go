package labelcheck

import "fmt"

// Store holds a batch of examples keyed by id and iterates in insertion
// order. A Store is never modified after construction; Map builds a new one.
type Store struct {
	order []string
	items map[string]Example
}

// NewStore builds a store from examples. Ids must be non-empty and unique.
func NewStore(examples []Example) (*Store, error) {
	s := &Store{
		order: make([]string, 0, len(examples)),
		items: make(map[string]Example, len(examples)),
	}
	for i, ex := range examples {
		if ex.ID == "" {
			return nil, &InputError{Index: i, Reason: "empty id"}
		}
		if _, dup := s.items[ex.ID]; dup {
			return nil, &InputError{Index: i, ID: ex.ID, Reason: "duplicate id"}
		}
		s.order = append(s.order, ex.ID)
		s.items[ex.ID] = ex.clone()
	}
	return s, nil
}

// Len returns the number of examples.
func (s *Store) Len() int {
	return len(s.order)
}

// Get returns a copy of the example with the given id.
func (s *Store) Get(id string) (Example, bool) {
	ex, ok := s.items[id]
	if !ok {
		return Example{}, false
	}
	return ex.clone(), true
}

// IDs returns the ids in insertion order.
func (s *Store) IDs() []string {
	return append([]string(nil), s.order...)
}

// Examples returns copies of all examples in insertion order.
func (s *Store) Examples() []Example {
	out := make([]Example, len(s.order))
	for i, id := range s.order {
		out[i] = s.items[id].clone()
	}
	return out
}

// Map applies fn to every example and returns a new store with the results.
// fn receives a copy and must keep the id unchanged. The first error aborts
// the whole map and no store is returned.
func (s *Store) Map(fn func(Example) (Example, error)) (*Store, error) {
	out := &Store{
		order: append([]string(nil), s.order...),
		items: make(map[string]Example, len(s.items)),
	}
	for i, id := range s.order {
		next, err := fn(s.items[id].clone())
		if err != nil {
			return nil, fmt.Errorf("example %s: %w", id, err)
		}
		if next.ID != id {
			return nil, &InputError{Index: i, ID: id, Reason: fmt.Sprintf("stage changed id to %q", next.ID)}
		}
		out.items[id] = next.clone()
	}
	return out, nil
}
