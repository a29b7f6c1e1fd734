package notes

import (
	"context"
	"fmt"
)

// StubStore is a map-backed Store for tests, with failure injection for
// exercising write and read error paths.
type StubStore struct {
	bodies      map[Ref]string
	FailWrites  map[Ref]bool
	FailReads   map[Ref]bool
	WriteCounts map[Ref]int
}

func NewStubStore() *StubStore {
	return &StubStore{
		bodies:      map[Ref]string{},
		FailWrites:  map[Ref]bool{},
		FailReads:   map[Ref]bool{},
		WriteCounts: map[Ref]int{},
	}
}

func (s *StubStore) ReadBody(ctx context.Context, ref Ref) (string, error) {
	if s.FailReads[ref] {
		return "", fmt.Errorf("stub read failure for %s", ref)
	}
	body, ok := s.bodies[ref]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoteNotFound, ref)
	}
	return body, nil
}

func (s *StubStore) WriteBody(ctx context.Context, ref Ref, body string) error {
	s.WriteCounts[ref]++
	if s.FailWrites[ref] {
		return fmt.Errorf("stub write failure for %s", ref)
	}
	s.bodies[ref] = body
	return nil
}

func (s *StubStore) ResolveOrCreate(ctx context.Context, path string) (Ref, error) {
	ref := Ref(path)
	if _, ok := s.bodies[ref]; !ok {
		s.bodies[ref] = ""
	}
	return ref, nil
}

// Put seeds a note body directly, bypassing the write counters.
func (s *StubStore) Put(ref Ref, body string) {
	s.bodies[ref] = body
}

// Body returns the current body of a note (empty when absent).
func (s *StubStore) Body(ref Ref) string {
	return s.bodies[ref]
}
