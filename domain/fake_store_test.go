package domain

import (
	"context"
	"errors"
	"strconv"
	"sync"
)

// fakeTaskStore is an in-memory TaskStore with etag-guarded updates so the
// commit service's retry loop can be exercised without real storage.
type fakeTaskStore struct {
	mu    sync.Mutex
	tasks map[string]Task
	etags map[string]int

	applyErr  error
	updateErr error

	applied     [][]OrderItem
	updateCalls int

	// beforeUpdate and afterCount run without the lock held. Tests use them
	// to interleave concurrent writers deterministically.
	beforeUpdate func()
	afterCount   func()
}

func newFakeTaskStore(tasks ...Task) *fakeTaskStore {
	f := &fakeTaskStore{tasks: map[string]Task{}, etags: map[string]int{}}
	for _, t := range tasks {
		f.tasks[t.ID] = t
		f.etags[t.ID] = 1
	}
	return f
}

func (f *fakeTaskStore) etag(id string) string { return "W/" + strconv.Itoa(f.etags[id]) }

func (f *fakeTaskStore) GetTask(ctx context.Context, taskID string) (*Task, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[taskID]
	if !ok {
		return nil, "", nil
	}
	return &t, f.etag(taskID), nil
}

func (f *fakeTaskStore) ListProjectTasks(ctx context.Context, projectID string) ([]Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Task
	for _, t := range f.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) CountByStatus(ctx context.Context, projectID string, status Status) (int, error) {
	f.mu.Lock()
	n := 0
	for _, t := range f.tasks {
		if t.ProjectID == projectID && t.Status == status {
			n++
		}
	}
	f.mu.Unlock()
	if f.afterCount != nil {
		f.afterCount()
	}
	return n, nil
}

func (f *fakeTaskStore) ApplyOrder(ctx context.Context, projectID string, items []OrderItem) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range items {
		t, ok := f.tasks[it.TaskID]
		if !ok {
			return errors.New("fake: transaction aborted, task missing")
		}
		t.Status = it.Status
		t.Position = it.Position
		f.tasks[it.TaskID] = t
		f.etags[it.TaskID]++
	}
	f.applied = append(f.applied, append([]OrderItem(nil), items...))
	return nil
}

func (f *fakeTaskStore) UpdateTask(ctx context.Context, projectID, taskID string, patch TaskPatch, etag string) error {
	if f.beforeUpdate != nil {
		f.beforeUpdate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	t, ok := f.tasks[taskID]
	if !ok {
		return ErrTaskNotFound
	}
	if etag != f.etag(taskID) {
		return ErrConcurrencyConflict
	}
	patch.Apply(&t)
	f.tasks[taskID] = t
	f.etags[taskID]++
	return nil
}

func (f *fakeTaskStore) snapshot() map[string]Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]Task, len(f.tasks))
	for id, t := range f.tasks {
		out[id] = t
	}
	return out
}

type fakeMembers struct {
	members map[string]map[string]bool
	err     error
	calls   int
}

func newFakeMembers(projectID string, userIDs ...string) *fakeMembers {
	m := &fakeMembers{members: map[string]map[string]bool{projectID: {}}}
	for _, u := range userIDs {
		m.members[projectID][u] = true
	}
	return m
}

func (m *fakeMembers) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	m.calls++
	if m.err != nil {
		return false, m.err
	}
	return m.members[projectID][userID], nil
}
