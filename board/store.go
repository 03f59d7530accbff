// Package board holds the client-side board engine: a normalized task
// store, the drag-gesture state machine and the optimistic update
// manager that bridges provisional local state and the commit API.
package board

import (
	"sort"

	"taskboard-api/domain"
)

// Store is the normalized in-memory projection of one project's board:
// tasks keyed by id plus one ordered id slice per status column. It is
// disposable and re-fetchable; the server stays the sole writer of
// authoritative positions. Not safe for concurrent use.
type Store struct {
	projectID  string
	tasks      map[string]domain.Task
	order      map[domain.Status][]string
	generation uint64
}

// Snapshot is a deep copy of the store's task state, used for
// optimistic rollback. The generation counter is not part of it.
type Snapshot struct {
	tasks map[string]domain.Task
	order map[domain.Status][]string
}

func NewStore(projectID string) *Store {
	return &Store{
		projectID: projectID,
		tasks:     make(map[string]domain.Task),
		order:     make(map[domain.Status][]string),
	}
}

func (s *Store) ProjectID() string { return s.projectID }

// Generation counts confirmed mutations (loads and committed moves).
// Provisional drag mutations do not advance it.
func (s *Store) Generation() uint64 { return s.generation }

// Load replaces the board with a server-confirmed task set.
func (s *Store) Load(tasks []domain.Task) {
	s.tasks = make(map[string]domain.Task, len(tasks))
	s.order = make(map[domain.Status][]string)
	for _, t := range tasks {
		s.tasks[t.ID] = t
		s.order[t.Status] = append(s.order[t.Status], t.ID)
	}
	for status, ids := range s.order {
		sort.SliceStable(ids, func(i, j int) bool {
			a, b := s.tasks[ids[i]], s.tasks[ids[j]]
			if a.Position != b.Position {
				return a.Position < b.Position
			}
			return a.ID < b.ID
		})
		s.order[status] = ids
	}
	s.generation++
}

func (s *Store) Task(id string) (domain.Task, bool) {
	t, ok := s.tasks[id]
	return t, ok
}

func (s *Store) Len() int { return len(s.tasks) }

// Column derives the ordered view of one status group. Status and
// Position on the returned copies reflect the current (possibly
// provisional) placement, not the last loaded values.
func (s *Store) Column(status domain.Status) []domain.Task {
	ids := s.order[status]
	out := make([]domain.Task, len(ids))
	for i, id := range ids {
		t := s.tasks[id]
		t.Status = status
		t.Position = i
		out[i] = t
	}
	return out
}

// Board derives the whole board in column order.
func (s *Store) Board() []domain.Task {
	out := make([]domain.Task, 0, len(s.tasks))
	for _, status := range domain.Statuses() {
		out = append(out, s.Column(status)...)
	}
	return out
}

func (s *Store) Snapshot() *Snapshot {
	snap := &Snapshot{
		tasks: make(map[string]domain.Task, len(s.tasks)),
		order: make(map[domain.Status][]string, len(s.order)),
	}
	for id, t := range s.tasks {
		snap.tasks[id] = t
	}
	for status, ids := range s.order {
		snap.order[status] = append([]string(nil), ids...)
	}
	return snap
}

// Restore rewinds task state to a snapshot. The generation stays
// monotonic so in-flight commits tagged against newer state remain
// distinguishable.
func (s *Store) Restore(snap *Snapshot) {
	s.tasks = make(map[string]domain.Task, len(snap.tasks))
	s.order = make(map[domain.Status][]string, len(snap.order))
	for id, t := range snap.tasks {
		s.tasks[id] = t
	}
	for status, ids := range snap.order {
		s.order[status] = append([]string(nil), ids...)
	}
}

func (s *Store) confirm() { s.generation++ }

// locate returns the column and index currently holding the task.
func (s *Store) locate(id string) (domain.Status, int, bool) {
	for status, ids := range s.order {
		for i, other := range ids {
			if other == id {
				return status, i, true
			}
		}
	}
	return 0, 0, false
}

// place moves the task to (status, index), removing it from wherever it
// sits first. index is clamped to the destination bounds, so repeated
// calls with the same target are idempotent.
func (s *Store) place(id string, status domain.Status, index int) {
	if _, ok := s.tasks[id]; !ok {
		return
	}
	if cur, i, ok := s.locate(id); ok {
		ids := s.order[cur]
		s.order[cur] = append(ids[:i], ids[i+1:]...)
	}
	ids := s.order[status]
	if index < 0 {
		index = 0
	}
	if index > len(ids) {
		index = len(ids)
	}
	ids = append(ids, "")
	copy(ids[index+1:], ids[index:])
	ids[index] = id
	s.order[status] = ids
	t := s.tasks[id]
	t.Status = status
	s.tasks[id] = t
}
