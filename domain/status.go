package domain

import "fmt"

// Status identifies the board column a task belongs to. The set is closed:
// unknown labels fail at decode time instead of surfacing later as a lookup
// miss against free-form strings.
type Status int

const (
	StatusTodo Status = iota
	StatusInProgress
	StatusReview
	StatusDone
)

var statusLabels = [...]string{"TODO", "IN_PROGRESS", "REVIEW", "DONE"}

// Statuses returns every status in display order.
func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusReview, StatusDone}
}

// Valid reports whether s is one of the defined statuses.
func (s Status) Valid() bool {
	return s >= StatusTodo && s <= StatusDone
}

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusLabels[s]
}

// ParseStatus converts a wire label into a Status.
func ParseStatus(label string) (Status, error) {
	for i, l := range statusLabels {
		if l == label {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown status %q", label)
}

// MarshalJSON encodes the status as its wire label.
func (s Status) MarshalJSON() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("cannot encode invalid status %d", int(s))
	}
	return []byte(`"` + statusLabels[s] + `"`), nil
}

// UnmarshalJSON decodes a wire label, rejecting unknown values.
func (s *Status) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("status must be a JSON string, got %s", data)
	}
	parsed, err := ParseStatus(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
