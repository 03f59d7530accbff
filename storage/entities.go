package storage

import (
	"encoding/json"

	"taskboard-api/domain"
)

type entityKeys struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

// taskEntity is the table representation of a task. PartitionKey is the
// project id, RowKey the task id.
type taskEntity struct {
	entityKeys
	ETag     string `json:"odata.etag,omitempty"`
	Title    string `json:"Title"`
	Assignee string `json:"Assignee,omitempty"`
	Priority string `json:"Priority,omitempty"`
	DueDate  string `json:"DueDate,omitempty"`
	Status   string `json:"Status"`
	Position int    `json:"Position"`
}

// taskUpdateEntity carries a partial merge; nil fields are left untouched by
// the table service.
type taskUpdateEntity struct {
	entityKeys
	Title    *string `json:"Title,omitempty"`
	Assignee *string `json:"Assignee,omitempty"`
	Priority *string `json:"Priority,omitempty"`
	DueDate  *string `json:"DueDate,omitempty"`
	Status   *string `json:"Status,omitempty"`
	Position *int    `json:"Position,omitempty"`
}

func decodeTaskEntity(data []byte) (domain.Task, string, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, "", err
	}
	status, err := domain.ParseStatus(ent.Status)
	if err != nil {
		return domain.Task{}, "", err
	}
	return domain.Task{
		ID:        ent.RowKey,
		ProjectID: ent.PartitionKey,
		Title:     ent.Title,
		Assignee:  ent.Assignee,
		Priority:  ent.Priority,
		DueDate:   ent.DueDate,
		Status:    status,
		Position:  ent.Position,
	}, ent.ETag, nil
}
