package domain

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// TaskStore defines the persistence operations the commit service needs.
type TaskStore interface {
	// GetTask loads a task by id together with its storage etag. It returns
	// (nil, "", nil) when the task does not exist.
	GetTask(ctx context.Context, taskID string) (*Task, string, error)
	// ListProjectTasks returns every task of the project.
	ListProjectTasks(ctx context.Context, projectID string) ([]Task, error)
	// CountByStatus returns how many tasks of the project sit in the group.
	CountByStatus(ctx context.Context, projectID string, status Status) (int, error)
	// ApplyOrder persists every item as a single atomic unit. A failure must
	// leave prior state intact.
	ApplyOrder(ctx context.Context, projectID string, items []OrderItem) error
	// UpdateTask merges the patch into the task, guarded by the etag. It
	// returns ErrConcurrencyConflict when the etag no longer matches and
	// ErrTaskNotFound when the task vanished.
	UpdateTask(ctx context.Context, projectID, taskID string, patch TaskPatch, etag string) error
}

// MembershipStore answers project membership queries.
type MembershipStore interface {
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
}

// CommitService validates and durably applies ordering changes. It is the
// sole mutation path for task status and position.
type CommitService struct {
	tasks   TaskStore
	members MembershipStore
	logger  *log.Logger
}

// NewCommitService creates a CommitService.
func NewCommitService(tasks TaskStore, members MembershipStore, logger *log.Logger) *CommitService {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &CommitService{tasks: tasks, members: members, logger: logger}
}

// Reorder atomically persists the complete desired ordering of one or more
// status groups of a project. Every submitted task must belong to the
// project; foreign ids are rejected before any write.
func (s *CommitService) Reorder(ctx context.Context, callerID, projectID string, items []OrderItem) (int, error) {
	if callerID == "" {
		return 0, ErrUnauthenticated
	}
	if err := validateOrderItems(projectID, items); err != nil {
		return 0, err
	}

	ok, err := s.members.IsMember(ctx, projectID, callerID)
	if err != nil {
		return 0, fmt.Errorf("membership lookup: %w", err)
	}
	if !ok {
		return 0, ErrForbidden
	}

	// Reject ids that do not belong to the claimed project. The caller's
	// membership only proves access to projectID, not to arbitrary tasks.
	existing, err := s.tasks.ListProjectTasks(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("list project tasks: %w", err)
	}
	known := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		known[t.ID] = struct{}{}
	}
	for _, it := range items {
		if _, ok := known[it.TaskID]; !ok {
			return 0, fmt.Errorf("task %s: %w", it.TaskID, ErrTaskNotFound)
		}
	}

	if err := s.tasks.ApplyOrder(ctx, projectID, items); err != nil {
		return 0, err
	}
	s.logger.WithFields(log.Fields{"project": projectID, "items": len(items)}).Debug("order committed")
	return len(items), nil
}

func validateOrderItems(projectID string, items []OrderItem) error {
	if projectID == "" {
		return ValidationError{Reason: "missing project id"}
	}
	if len(items) == 0 {
		return ValidationError{Reason: "empty task list"}
	}
	groups := make(map[Status][]bool)
	for _, it := range items {
		if it.TaskID == "" {
			return ValidationError{Reason: "missing task id"}
		}
		if !it.Status.Valid() {
			return ValidationError{Reason: fmt.Sprintf("invalid status %d", int(it.Status))}
		}
		if it.Position < 0 {
			return ValidationError{Reason: fmt.Sprintf("negative position for task %s", it.TaskID)}
		}
		groups[it.Status] = append(groups[it.Status], false)
	}
	// Each submitted group must be a dense permutation 0..n-1.
	slots := make(map[Status][]bool, len(groups))
	for st, g := range groups {
		slots[st] = make([]bool, len(g))
	}
	for _, it := range items {
		g := slots[it.Status]
		if it.Position >= len(g) {
			return ValidationError{Reason: fmt.Sprintf("position %d out of range for group %s", it.Position, it.Status)}
		}
		if g[it.Position] {
			return ValidationError{Reason: fmt.Sprintf("duplicate position %d in group %s", it.Position, it.Status)}
		}
		g[it.Position] = true
	}
	return nil
}

// UpdateTask applies a partial update to a single task. When the patch moves
// the task to a different status group, the task is appended to the end of
// the destination group: its position becomes the group's current count.
//
// The count-then-write happens under the task's etag, so a concurrent write
// to the same task forces a re-read and retry. Two callers moving different
// tasks into the same group concurrently are not serialized against each
// other and may compute the same position; see the race test for the pinned
// behavior.
func (s *CommitService) UpdateTask(ctx context.Context, callerID, taskID string, patch TaskPatch) (*Task, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	if taskID == "" {
		return nil, ValidationError{Reason: "missing task id"}
	}
	if patch.Position != nil {
		return nil, ValidationError{Reason: "position cannot be set directly"}
	}
	if patch.Empty() {
		return nil, ValidationError{Reason: "no fields to update"}
	}

	task, etag, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrTaskNotFound
	}

	ok, err := s.members.IsMember(ctx, task.ProjectID, callerID)
	if err != nil {
		return nil, fmt.Errorf("membership lookup: %w", err)
	}
	if !ok {
		return nil, ErrForbidden
	}

	for {
		upd := patch
		if patch.Status != nil && *patch.Status != task.Status {
			count, err := s.tasks.CountByStatus(ctx, task.ProjectID, *patch.Status)
			if err != nil {
				return nil, fmt.Errorf("count destination group: %w", err)
			}
			upd.Position = &count
		} else {
			upd.Status = nil
		}
		if upd.Empty() {
			// Status was the only field and it matches the current value.
			return task, nil
		}

		if err := s.tasks.UpdateTask(ctx, task.ProjectID, taskID, upd, etag); err != nil {
			if !errors.Is(err, ErrConcurrencyConflict) {
				return nil, err
			}
			s.logger.WithField("task", taskID).Debug("etag conflict, retrying update")
			task, etag, err = s.tasks.GetTask(ctx, taskID)
			if err != nil {
				return nil, err
			}
			if task == nil {
				return nil, ErrTaskNotFound
			}
			continue
		}

		updated := *task
		upd.Apply(&updated)
		return &updated, nil
	}
}
