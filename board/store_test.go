package board

import (
	"testing"

	"taskboard-api/domain"
)

func boardTasks() []domain.Task {
	return []domain.Task{
		{ID: "t3", ProjectID: "p1", Title: "charlie", Status: domain.StatusTodo, Position: 2},
		{ID: "t1", ProjectID: "p1", Title: "alpha", Status: domain.StatusTodo, Position: 0},
		{ID: "t2", ProjectID: "p1", Title: "bravo", Status: domain.StatusTodo, Position: 1},
		{ID: "r1", ProjectID: "p1", Title: "review me", Status: domain.StatusReview, Position: 0},
	}
}

func columnIDs(s *Store, status domain.Status) []string {
	col := s.Column(status)
	ids := make([]string, len(col))
	for i, t := range col {
		ids[i] = t.ID
	}
	return ids
}

func sameIDs(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestStoreLoadOrdersByPosition(t *testing.T) {
	s := NewStore("p1")
	s.Load(boardTasks())

	if got := columnIDs(s, domain.StatusTodo); !sameIDs(got, []string{"t1", "t2", "t3"}) {
		t.Fatalf("unexpected todo order: %v", got)
	}
	for i, task := range s.Column(domain.StatusTodo) {
		if task.Position != i {
			t.Fatalf("derived position %d for %s, want %d", task.Position, task.ID, i)
		}
	}
	if s.Generation() != 1 {
		t.Fatalf("load must advance the generation, got %d", s.Generation())
	}
	if !domain.CheckDense(s.Board()) {
		t.Fatalf("loaded board is not dense: %v", s.Board())
	}
}

func TestStorePlaceMovesAcrossColumns(t *testing.T) {
	s := NewStore("p1")
	s.Load(boardTasks())

	s.place("t2", domain.StatusDone, 0)

	if got := columnIDs(s, domain.StatusTodo); !sameIDs(got, []string{"t1", "t3"}) {
		t.Fatalf("unexpected todo order after move: %v", got)
	}
	if got := columnIDs(s, domain.StatusDone); !sameIDs(got, []string{"t2"}) {
		t.Fatalf("unexpected done order after move: %v", got)
	}
	moved, _ := s.Task("t2")
	if moved.Status != domain.StatusDone {
		t.Fatalf("task status not reassigned, got %v", moved.Status)
	}
	if s.Generation() != 1 {
		t.Fatalf("provisional placement must not advance the generation")
	}
}

func TestStorePlaceClampsIndex(t *testing.T) {
	s := NewStore("p1")
	s.Load(boardTasks())

	s.place("r1", domain.StatusTodo, 99)
	if got := columnIDs(s, domain.StatusTodo); !sameIDs(got, []string{"t1", "t2", "t3", "r1"}) {
		t.Fatalf("out-of-range index must append, got %v", got)
	}
	s.place("r1", domain.StatusTodo, -3)
	if got := columnIDs(s, domain.StatusTodo); !sameIDs(got, []string{"r1", "t1", "t2", "t3"}) {
		t.Fatalf("negative index must prepend, got %v", got)
	}
}

func TestStoreSnapshotRestore(t *testing.T) {
	s := NewStore("p1")
	s.Load(boardTasks())
	snap := s.Snapshot()

	s.place("t3", domain.StatusDone, 0)
	s.place("t1", domain.StatusReview, 0)
	s.Restore(snap)

	if got := columnIDs(s, domain.StatusTodo); !sameIDs(got, []string{"t1", "t2", "t3"}) {
		t.Fatalf("restore did not rewind todo column: %v", got)
	}
	if got := columnIDs(s, domain.StatusDone); len(got) != 0 {
		t.Fatalf("restore left tasks in done: %v", got)
	}
	restored, _ := s.Task("t3")
	if restored.Status != domain.StatusTodo {
		t.Fatalf("restore did not rewind task status, got %v", restored.Status)
	}
}
