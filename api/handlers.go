package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

const requestBodyMaxSize = 64 * 1024 // 64 KiB

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, commits Committer, boards BoardReader, members MembershipChecker, auth Authenticator, broker *UpdateBroker, logger *log.Logger) {
	e.POST("/api/tasks/update-order", updateOrder(commits, auth, broker, logger))
	e.PATCH("/api/tasks/:id", patchTask(commits, auth, broker))
	e.GET("/api/projects/:projectId/tasks", getBoard(boards, members, auth))
	if broker != nil {
		e.GET("/api/stream", broker.Subscribe(members, auth))
	}
	e.GET("/healthz", healthz())
}

type updateOrderRequest struct {
	ProjectID string          `json:"projectId"`
	Tasks     []orderItemBody `json:"tasks"`
}

type orderItemBody struct {
	ID       string        `json:"id"`
	Status   domain.Status `json:"status"`
	Position int           `json:"position"`
}

type updateOrderResponse struct {
	Updated int             `json:"updated"`
	Tasks   []orderItemBody `json:"tasks"`
}

type boardResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func updateOrder(commits Committer, auth Authenticator, broker *UpdateBroker, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newReorderMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		callerID, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var req updateOrderRequest
		if decodeErr := dec.Decode(&req); decodeErr != nil {
			metrics.SetErrorStage("decode")
			err = c.String(http.StatusBadRequest, "invalid body")
			return err
		}

		items := make([]domain.OrderItem, len(req.Tasks))
		for i, t := range req.Tasks {
			items[i] = domain.OrderItem{TaskID: t.ID, Status: t.Status, Position: t.Position}
		}
		metrics.SetItems(len(items))

		commitStart := time.Now()
		updated, commitErr := commits.Reorder(ctx, callerID, req.ProjectID, items)
		metrics.ObserveCommit(time.Since(commitStart))
		if commitErr != nil {
			status, stage := statusForError(commitErr)
			metrics.SetErrorStage(stage)
			if status == http.StatusInternalServerError {
				c.Logger().Error(commitErr)
			}
			err = c.String(status, commitErr.Error())
			return err
		}

		if broker != nil {
			broker.Notify(req.ProjectID)
		}
		err = c.JSON(http.StatusOK, updateOrderResponse{Updated: updated, Tasks: req.Tasks})
		return err
	}
}

type patchTaskRequest struct {
	Title    *string        `json:"title"`
	Assignee *string        `json:"assignee"`
	Priority *string        `json:"priority"`
	DueDate  *string        `json:"dueDate"`
	Status   *domain.Status `json:"status"`
}

func patchTask(commits Committer, auth Authenticator, broker *UpdateBroker) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		callerID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
		dec := sonic.ConfigStd.NewDecoder(lr)
		dec.DisallowUnknownFields()

		var req patchTaskRequest
		if err := dec.Decode(&req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		patch := domain.TaskPatch{
			Title:    req.Title,
			Assignee: req.Assignee,
			Priority: req.Priority,
			DueDate:  req.DueDate,
			Status:   req.Status,
		}
		task, err := commits.UpdateTask(ctx, callerID, c.Param("id"), patch)
		if err != nil {
			status, _ := statusForError(err)
			if status == http.StatusInternalServerError {
				c.Logger().Error(err)
			}
			return c.String(status, err.Error())
		}

		if broker != nil {
			broker.Notify(task.ProjectID)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func getBoard(boards BoardReader, members MembershipChecker, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		callerID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		projectID := c.Param("projectId")
		if projectID == "" {
			return c.String(http.StatusBadRequest, "missing project id")
		}
		ok, err := members.IsMember(ctx, projectID, callerID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		if !ok {
			return c.String(http.StatusForbidden, domain.ErrForbidden.Error())
		}
		tasks, err := boards.FetchBoard(ctx, projectID)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, boardResponse{Tasks: tasks})
	}
}

// statusForError maps the domain error taxonomy onto HTTP statuses. The
// second value names the failing stage for observability.
func statusForError(err error) (int, string) {
	var verr domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "auth"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "membership"
	case errors.Is(err, domain.ErrTaskNotFound), errors.Is(err, domain.ErrProjectNotFound):
		return http.StatusNotFound, "lookup"
	case errors.As(err, &verr):
		return http.StatusBadRequest, "validation"
	default:
		return http.StatusInternalServerError, "storage"
	}
}
