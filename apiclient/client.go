// Package apiclient is the HTTP committer used by the board engine:
// it speaks the task API's JSON wire format and maps response codes
// back onto the domain error taxonomy.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"taskboard-api/board"
	"taskboard-api/domain"
)

const defaultTimeout = 15 * time.Second

// Client implements board.Committer against a running task API.
type Client struct {
	baseURL string
	bearer  string
	http    *http.Client
}

// New creates a client for the API at baseURL authenticating with the
// given bearer token.
func New(baseURL, bearer string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		bearer:  bearer,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

type orderItemBody struct {
	ID       string        `json:"id"`
	Status   domain.Status `json:"status"`
	Position int           `json:"position"`
}

type updateOrderBody struct {
	ProjectID string          `json:"projectId"`
	Tasks     []orderItemBody `json:"tasks"`
}

type updateOrderResult struct {
	Updated int `json:"updated"`
}

type patchTaskBody struct {
	Title    *string        `json:"title,omitempty"`
	Assignee *string        `json:"assignee,omitempty"`
	Priority *string        `json:"priority,omitempty"`
	DueDate  *string        `json:"dueDate,omitempty"`
	Status   *domain.Status `json:"status,omitempty"`
}

type boardResult struct {
	Tasks []domain.Task `json:"tasks"`
}

// Reorder submits the destination column produced by a completed drag.
func (c *Client) Reorder(ctx context.Context, commit board.CommitRequest) (int, error) {
	body := updateOrderBody{
		ProjectID: commit.ProjectID,
		Tasks:     make([]orderItemBody, len(commit.Items)),
	}
	for i, item := range commit.Items {
		body.Tasks[i] = orderItemBody{ID: item.TaskID, Status: item.Status, Position: item.Position}
	}
	var result updateOrderResult
	err := c.do(ctx, http.MethodPost, "/api/tasks/update-order", commit.RequestID, body, &result)
	if err != nil {
		return 0, err
	}
	return result.Updated, nil
}

// UpdateTask issues a partial single-task update.
func (c *Client) UpdateTask(ctx context.Context, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	body := patchTaskBody{
		Title:    patch.Title,
		Assignee: patch.Assignee,
		Priority: patch.Priority,
		DueDate:  patch.DueDate,
		Status:   patch.Status,
	}
	var task domain.Task
	if err := c.do(ctx, http.MethodPatch, "/api/tasks/"+taskID, "", body, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// FetchBoard retrieves the confirmed task set for a project, the input
// to board.Manager.Load.
func (c *Client) FetchBoard(ctx context.Context, projectID string) ([]domain.Task, error) {
	var result boardResult
	if err := c.do(ctx, http.MethodGet, "/api/projects/"+projectID+"/tasks", "", nil, &result); err != nil {
		return nil, err
	}
	return result.Tasks, nil
}

func (c *Client) do(ctx context.Context, method, path, requestID string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := sonic.ConfigStd.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	}
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out != nil {
		if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(out); err != nil {
			return err
		}
	}
	return nil
}

// statusError folds a non-2xx response back into the domain taxonomy so
// callers can use errors.Is on client and server side alike.
func statusError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := strings.TrimSpace(string(msg))
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return domain.ErrUnauthenticated
	case http.StatusForbidden:
		return domain.ErrForbidden
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", detail, domain.ErrTaskNotFound)
	case http.StatusBadRequest:
		return domain.ValidationError{Reason: detail}
	default:
		return fmt.Errorf("server error %d: %s", resp.StatusCode, detail)
	}
}
