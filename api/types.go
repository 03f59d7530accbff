package api

import (
	"context"

	"taskboard-api/domain"
)

// Committer is the server-side order commit service consumed by handlers.
type Committer interface {
	Reorder(ctx context.Context, callerID, projectID string, items []domain.OrderItem) (int, error)
	UpdateTask(ctx context.Context, callerID, taskID string, patch domain.TaskPatch) (*domain.Task, error)
}

// BoardReader serves the client's re-fetchable board projection.
type BoardReader interface {
	FetchBoard(ctx context.Context, projectID string) ([]domain.Task, error)
}

// MembershipChecker guards read access to a project's board.
type MembershipChecker interface {
	IsMember(ctx context.Context, projectID, userID string) (bool, error)
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}
