package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"

	"taskboard-api/domain"
)

// Storage provides access to the task and membership tables and the board
// events queue. Tasks are partitioned by project, so a batch reorder for one
// project maps onto a single-partition entity transaction.
type Storage struct {
	taskTable       *aztables.Client
	membershipTable *aztables.Client
	publisher       *Publisher
}

// New creates a Storage instance from the given connection string.
func New(connStr, tasksTable, membershipsTable, eventsQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	tt := svc.NewClient(tasksTable)
	mt := svc.NewClient(membershipsTable)

	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	eq, err := azqueue.NewQueueClientFromConnectionString(connStr, eventsQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}

	return &Storage{
		taskTable:       tt,
		membershipTable: mt,
		publisher:       NewPublisher(queueAdapter{client: eq}, nil),
	}, nil
}

// Close stops the background event publisher.
func (s *Storage) Close() {
	if s.publisher != nil {
		s.publisher.Close()
	}
}

// ListProjectTasks returns every task of the project, unordered.
func (s *Storage) ListProjectTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	filter := "PartitionKey eq '" + escapeFilter(projectID) + "'"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			task, _, err := decodeTaskEntity(e)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

// FetchBoard returns the project's tasks sorted by status then position,
// the order the board renders them in.
func (s *Storage) FetchBoard(ctx context.Context, projectID string) ([]domain.Task, error) {
	tasks, err := s.ListProjectTasks(ctx, projectID)
	if err != nil {
		return nil, err
	}
	SortBoard(tasks)
	return tasks, nil
}

// SortBoard orders tasks by status then position, in place.
func SortBoard(tasks []domain.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Status != tasks[j].Status {
			return tasks[i].Status < tasks[j].Status
		}
		return tasks[i].Position < tasks[j].Position
	})
}

// GetTask locates a task by id. Task ids are globally unique, so a row-key
// scan across partitions yields at most one entity.
func (s *Storage) GetTask(ctx context.Context, taskID string) (*domain.Task, string, error) {
	filter := "RowKey eq '" + escapeFilter(taskID) + "'"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, "", err
		}
		for _, e := range resp.Entities {
			task, etag, err := decodeTaskEntity(e)
			if err != nil {
				return nil, "", err
			}
			return &task, etag, nil
		}
	}
	return nil, "", nil
}

// CountByStatus returns how many tasks of the project sit in the group.
func (s *Storage) CountByStatus(ctx context.Context, projectID string, status domain.Status) (int, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s' and Status eq '%s'", escapeFilter(projectID), status)
	sel := "PartitionKey,RowKey"
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter, Select: &sel})
	count := 0
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		count += len(resp.Entities)
	}
	return count, nil
}

// ApplyOrder persists every item as one entity transaction. Table storage
// applies the transaction atomically within a partition, so either every
// task of the batch is updated or none are.
func (s *Storage) ApplyOrder(ctx context.Context, projectID string, items []domain.OrderItem) error {
	actions := make([]aztables.TransactionAction, 0, len(items))
	for _, it := range items {
		upd := taskUpdateEntity{
			entityKeys: entityKeys{PartitionKey: projectID, RowKey: it.TaskID},
			Status:     strPtr(it.Status.String()),
			Position:   intPtr(it.Position),
		}
		payload, err := json.Marshal(upd)
		if err != nil {
			return err
		}
		actions = append(actions, aztables.TransactionAction{
			ActionType: aztables.TransactionTypeUpdateMerge,
			Entity:     payload,
		})
	}
	if _, err := s.taskTable.SubmitTransaction(ctx, actions, nil); err != nil {
		return mapEntityError(err)
	}
	s.publishEvent(projectID, ChangeReorder, items)
	return nil
}

// UpdateTask merges the patch into a single task, guarded by the etag.
func (s *Storage) UpdateTask(ctx context.Context, projectID, taskID string, patch domain.TaskPatch, etag string) error {
	upd := taskUpdateEntity{
		entityKeys: entityKeys{PartitionKey: projectID, RowKey: taskID},
		Title:      patch.Title,
		Assignee:   patch.Assignee,
		Priority:   patch.Priority,
		DueDate:    patch.DueDate,
		Position:   patch.Position,
	}
	if patch.Status != nil {
		upd.Status = strPtr(patch.Status.String())
	}
	payload, err := json.Marshal(upd)
	if err != nil {
		return err
	}
	et := azcore.ETag(etag)
	if etag == "" {
		et = azcore.ETagAny
	}
	_, err = s.taskTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{
		IfMatch:    &et,
		UpdateMode: aztables.UpdateModeMerge,
	})
	if err != nil {
		return mapEntityError(err)
	}
	s.publishEvent(projectID, ChangeUpdate, []domain.OrderItem{{TaskID: taskID}})
	return nil
}

// IsMember reports whether a membership row exists for (projectID, userID).
func (s *Storage) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	_, err := s.membershipTable.GetEntity(ctx, projectID, userID, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 404 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Storage) publishEvent(projectID, change string, items []domain.OrderItem) {
	if s.publisher == nil {
		return
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.TaskID
	}
	s.publisher.Publish(BoardEvent{
		ProjectID: projectID,
		Change:    change,
		TaskIDs:   ids,
		Timestamp: time.Now().UnixNano(),
	})
}

func mapEntityError(err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case 404:
			return domain.ErrTaskNotFound
		case 412:
			return domain.ErrConcurrencyConflict
		}
	}
	return err
}

// escapeFilter doubles single quotes for OData filter literals.
func escapeFilter(v string) string {
	out := make([]byte, 0, len(v))
	for i := 0; i < len(v); i++ {
		if v[i] == '\'' {
			out = append(out, '\'')
		}
		out = append(out, v[i])
	}
	return string(out)
}

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }
