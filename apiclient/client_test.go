package apiclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"

	"taskboard-api/board"
	"taskboard-api/domain"
)

func TestReorderRoundTrip(t *testing.T) {
	var gotPath, gotAuth, gotRequestID string
	var gotBody updateOrderBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		payload, _ := io.ReadAll(r.Body)
		if err := sonic.ConfigStd.Unmarshal(payload, &gotBody); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"updated":2,"tasks":[]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "token-123")
	updated, err := c.Reorder(context.Background(), board.CommitRequest{
		ProjectID: "p1",
		RequestID: "req-1",
		Items: []domain.OrderItem{
			{TaskID: "a", Status: domain.StatusDone, Position: 0},
			{TaskID: "b", Status: domain.StatusDone, Position: 1},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated != 2 {
		t.Fatalf("updated = %d, want 2", updated)
	}
	if gotPath != "/api/tasks/update-order" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotAuth != "Bearer token-123" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if gotRequestID != "req-1" {
		t.Fatalf("unexpected request id %q", gotRequestID)
	}
	if gotBody.ProjectID != "p1" || len(gotBody.Tasks) != 2 {
		t.Fatalf("unexpected body: %+v", gotBody)
	}
	if gotBody.Tasks[1] != (orderItemBody{ID: "b", Status: domain.StatusDone, Position: 1}) {
		t.Fatalf("unexpected item: %+v", gotBody.Tasks[1])
	}
}

func TestUpdateTaskRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("unexpected method %s", r.Method)
		}
		if r.URL.Path != "/api/tasks/t1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var fields map[string]any
		payload, _ := io.ReadAll(r.Body)
		if err := sonic.ConfigStd.Unmarshal(payload, &fields); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if len(fields) != 1 || fields["status"] != "DONE" {
			t.Errorf("nil patch fields must be omitted, got %v", fields)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"t1","projectId":"p1","title":"x","status":"DONE","position":2}`)
	}))
	defer srv.Close()

	status := domain.StatusDone
	c := New(srv.URL, "token-123")
	task, err := c.UpdateTask(context.Background(), "t1", domain.TaskPatch{Status: &status})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.ID != "t1" || task.Status != domain.StatusDone || task.Position != 2 {
		t.Fatalf("unexpected task: %+v", task)
	}
}

func TestFetchBoard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/projects/p1/tasks" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"tasks":[{"id":"a","projectId":"p1","title":"t","status":"TODO","position":0}]}`)
	}))
	defer srv.Close()

	c := New(srv.URL, "token-123")
	tasks, err := c.FetchBoard(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != "a" {
		t.Fatalf("unexpected tasks: %+v", tasks)
	}
}

func TestStatusErrorMapping(t *testing.T) {
	cases := map[string]struct {
		code  int
		check func(error) bool
	}{
		"unauthorized": {http.StatusUnauthorized, func(err error) bool {
			return errors.Is(err, domain.ErrUnauthenticated)
		}},
		"forbidden": {http.StatusForbidden, func(err error) bool {
			return errors.Is(err, domain.ErrForbidden)
		}},
		"not found": {http.StatusNotFound, func(err error) bool {
			return errors.Is(err, domain.ErrTaskNotFound)
		}},
		"bad request": {http.StatusBadRequest, func(err error) bool {
			var verr domain.ValidationError
			return errors.As(err, &verr)
		}},
		"server error": {http.StatusInternalServerError, func(err error) bool {
			return err != nil && !errors.Is(err, domain.ErrTaskNotFound) &&
				!errors.Is(err, domain.ErrForbidden) && !errors.Is(err, domain.ErrUnauthenticated)
		}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tc.code)
			}))
			defer srv.Close()

			c := New(srv.URL, "")
			_, err := c.Reorder(context.Background(), board.CommitRequest{ProjectID: "p1"})
			if err == nil {
				t.Fatalf("expected error for status %d", tc.code)
			}
			if !tc.check(err) {
				t.Fatalf("wrong error for status %d: %v", tc.code, err)
			}
		})
	}
}
