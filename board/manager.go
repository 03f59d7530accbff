package board

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

// Committer sends a provisional board change to the server. The
// production implementation lives in the apiclient package; tests
// substitute fakes.
type Committer interface {
	Reorder(ctx context.Context, commit CommitRequest) (int, error)
	UpdateTask(ctx context.Context, taskID string, patch domain.TaskPatch) (*domain.Task, error)
}

// Notifier surfaces commit failures to the user after the board has
// snapped back.
type Notifier interface {
	CommitFailed(projectID string, err error)
}

// Manager applies provisional changes to the visible board before the
// server answers, then confirms or rolls back. Rollback always targets
// the last server-confirmed snapshot, not the pre-drag state, since
// other confirmed changes may have landed in between. Commits are
// tagged with the store generation they were computed against; a
// response arriving after a newer confirmed mutation is ignored rather
// than allowed to clobber it. Not safe for concurrent use.
type Manager struct {
	store   *Store
	drag    *DragController
	commits Committer
	notify  Notifier
	logger  *log.Logger

	confirmed *Snapshot
	refetch   func(projectID string)
}

func NewManager(store *Store, drag *DragController, commits Committer, notify Notifier, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Manager{
		store:     store,
		drag:      drag,
		commits:   commits,
		notify:    notify,
		logger:    logger,
		confirmed: store.Snapshot(),
	}
}

// Drag exposes the gesture controller feeding this manager.
func (m *Manager) Drag() *DragController { return m.drag }

// OnConfirm registers a callback invoked after every confirmed commit,
// typically a background board refetch to pick up server-derived state.
func (m *Manager) OnConfirm(fn func(projectID string)) { m.refetch = fn }

// Load replaces the board with a server-confirmed task set and resets
// the rollback baseline.
func (m *Manager) Load(tasks []domain.Task) {
	m.store.Load(tasks)
	m.confirmed = m.store.Snapshot()
}

// CompleteDrag finishes the active gesture: a no-op drop ends silently
// with zero network calls, anything else is committed as a full
// destination-column reorder. The provisional state is already visible
// when the request goes out.
func (m *Manager) CompleteDrag(ctx context.Context) error {
	req, ok := m.drag.Drop()
	if !ok {
		return nil
	}
	gen := m.store.Generation()
	req.RequestID = uuid.NewString()
	req.Generation = gen

	updated, err := m.commits.Reorder(ctx, *req)
	m.drag.Resolve()

	if m.store.Generation() != gen {
		m.logger.WithFields(log.Fields{
			"projectId": req.ProjectID,
			"requestId": req.RequestID,
		}).Warn("Ignoring stale reorder result")
		return nil
	}
	if err != nil {
		m.rollback(req.ProjectID, err)
		return err
	}
	m.confirm(req.ProjectID)
	m.logger.WithFields(log.Fields{
		"projectId": req.ProjectID,
		"updated":   updated,
	}).Debug("Reorder confirmed")
	return nil
}

// SetStatus is the outside-drag path, e.g. a status dropdown: the task
// moves to the end of the target column optimistically and a single-task
// update is issued. Selecting the current status does nothing.
func (m *Manager) SetStatus(ctx context.Context, taskID string, status domain.Status) error {
	if _, ok := m.store.Task(taskID); !ok {
		return domain.ErrTaskNotFound
	}
	cur, _, _ := m.store.locate(taskID)
	if cur == status {
		return nil
	}
	gen := m.store.Generation()
	m.store.place(taskID, status, len(m.store.order[status]))

	applied, err := m.commits.UpdateTask(ctx, taskID, domain.TaskPatch{Status: &status})

	if m.store.Generation() != gen {
		m.logger.WithField("taskId", taskID).Warn("Ignoring stale status-change result")
		return nil
	}
	if err != nil {
		m.rollback(m.store.ProjectID(), err)
		return err
	}
	if applied != nil {
		m.store.tasks[taskID] = *applied
	}
	m.confirm(m.store.ProjectID())
	return nil
}

func (m *Manager) confirm(projectID string) {
	m.store.confirm()
	m.confirmed = m.store.Snapshot()
	if m.refetch != nil {
		m.refetch(projectID)
	}
}

func (m *Manager) rollback(projectID string, err error) {
	m.store.Restore(m.confirmed)
	m.logger.WithFields(log.Fields{
		"projectId": projectID,
		"error":     err,
	}).Warn("Commit failed, board restored to last confirmed state")
	if m.notify != nil {
		m.notify.CommitFailed(projectID, err)
	}
}
