package domain

// Task represents a single board item.
type Task struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Title     string `json:"title"`
	Assignee  string `json:"assignee,omitempty"`
	Priority  string `json:"priority,omitempty"`
	DueDate   string `json:"dueDate,omitempty"`
	Status    Status `json:"status"`
	Position  int    `json:"position"`
}

// OrderItem is one row of a batch reorder: the desired status and position
// for a single task.
type OrderItem struct {
	TaskID   string `json:"id"`
	Status   Status `json:"status"`
	Position int    `json:"position"`
}

// TaskPatch carries a partial task update. Nil fields are left untouched.
// Position is never accepted from callers; the commit service computes it
// when Status changes.
type TaskPatch struct {
	Title    *string
	Assignee *string
	Priority *string
	DueDate  *string
	Status   *Status
	Position *int
}

// Empty reports whether the patch carries no changes at all.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Assignee == nil && p.Priority == nil &&
		p.DueDate == nil && p.Status == nil && p.Position == nil
}

// Apply copies the patch onto t.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Assignee != nil {
		t.Assignee = *p.Assignee
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Position != nil {
		t.Position = *p.Position
	}
}

// CheckDense verifies that the positions of tasks sharing one status group
// form exactly 0..n-1. It returns false for gaps or duplicates.
func CheckDense(tasks []Task) bool {
	byStatus := make(map[Status][]bool)
	for _, t := range tasks {
		byStatus[t.Status] = append(byStatus[t.Status], false)
	}
	seen := make(map[Status][]bool, len(byStatus))
	for s, slots := range byStatus {
		seen[s] = make([]bool, len(slots))
	}
	for _, t := range tasks {
		slots := seen[t.Status]
		if t.Position < 0 || t.Position >= len(slots) || slots[t.Position] {
			return false
		}
		slots[t.Position] = true
	}
	return true
}
