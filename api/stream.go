package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"taskboard-api/domain"
)

// UpdateBroker fans out board-change notifications to SSE subscribers so
// clients can refetch after a commit made elsewhere.
type UpdateBroker struct {
	heartbeat time.Duration

	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{} // projectID -> subscribers
}

// NewUpdateBroker creates a broker with the given heartbeat interval.
func NewUpdateBroker(heartbeat time.Duration) *UpdateBroker {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &UpdateBroker{heartbeat: heartbeat, subs: make(map[string]map[chan struct{}]struct{})}
}

// Notify wakes every subscriber of the project. Slow subscribers coalesce
// pending notifications instead of queueing them.
func (b *UpdateBroker) Notify(projectID string) {
	b.mu.Lock()
	for ch := range b.subs[projectID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	b.mu.Unlock()
}

func (b *UpdateBroker) subscribe(projectID string) chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	if b.subs[projectID] == nil {
		b.subs[projectID] = make(map[chan struct{}]struct{})
	}
	b.subs[projectID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *UpdateBroker) unsubscribe(projectID string, ch chan struct{}) {
	b.mu.Lock()
	delete(b.subs[projectID], ch)
	if len(b.subs[projectID]) == 0 {
		delete(b.subs, projectID)
	}
	b.mu.Unlock()
}

// Subscribe serves an SSE stream of board-updated events for one project.
func (b *UpdateBroker) Subscribe(members MembershipChecker, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		callerID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		projectID := c.QueryParam("projectId")
		if projectID == "" {
			return c.String(http.StatusBadRequest, "missing project id")
		}
		ok, err := members.IsMember(ctx, projectID, callerID)
		if err != nil {
			return c.String(http.StatusInternalServerError, err.Error())
		}
		if !ok {
			return c.String(http.StatusForbidden, domain.ErrForbidden.Error())
		}

		resp := c.Response()
		resp.Header().Set(echo.HeaderContentType, "text/event-stream")
		resp.Header().Set(echo.HeaderCacheControl, "no-cache")
		resp.Header().Set("Connection", "keep-alive")
		resp.WriteHeader(http.StatusOK)
		resp.Flush()

		ch := b.subscribe(projectID)
		defer b.unsubscribe(projectID, ch)

		ticker := time.NewTicker(b.heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ch:
				if _, err := fmt.Fprintf(resp, "event: board-updated\ndata: {\"projectId\":%q}\n\n", projectID); err != nil {
					return nil
				}
				resp.Flush()
			case <-ticker.C:
				if _, err := fmt.Fprint(resp, ": heartbeat\n\n"); err != nil {
					return nil
				}
				resp.Flush()
			}
		}
	}
}
