package domain

import (
	"testing"

	"github.com/bytedance/sonic"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		label string
		want  Status
		ok    bool
	}{
		{label: "TODO", want: StatusTodo, ok: true},
		{label: "IN_PROGRESS", want: StatusInProgress, ok: true},
		{label: "REVIEW", want: StatusReview, ok: true},
		{label: "DONE", want: StatusDone, ok: true},
		{label: "done", ok: false},
		{label: "", ok: false},
		{label: "ARCHIVED", ok: false},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.label)
		if tt.ok && (err != nil || got != tt.want) {
			t.Fatalf("ParseStatus(%q) = %v, %v; want %v", tt.label, got, err, tt.want)
		}
		if !tt.ok && err == nil {
			t.Fatalf("ParseStatus(%q) succeeded, want error", tt.label)
		}
	}
}

func TestStatusJSONRoundTrip(t *testing.T) {
	for _, s := range Statuses() {
		data, err := sonic.Marshal(s)
		if err != nil {
			t.Fatalf("marshal %v: %v", s, err)
		}
		var back Status
		if err := sonic.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if back != s {
			t.Fatalf("round trip %v -> %s -> %v", s, data, back)
		}
	}
}

func TestStatusUnmarshalRejectsUnknown(t *testing.T) {
	var s Status
	if err := sonic.Unmarshal([]byte(`"BLOCKED"`), &s); err == nil {
		t.Fatalf("expected error for unknown label")
	}
	if err := sonic.Unmarshal([]byte(`3`), &s); err == nil {
		t.Fatalf("expected error for numeric status")
	}
}

func TestCheckDense(t *testing.T) {
	tests := []struct {
		name  string
		tasks []Task
		want  bool
	}{
		{name: "empty", tasks: nil, want: true},
		{
			name: "dense groups",
			tasks: []Task{
				{ID: "a", Status: StatusTodo, Position: 0},
				{ID: "b", Status: StatusTodo, Position: 1},
				{ID: "c", Status: StatusDone, Position: 0},
			},
			want: true,
		},
		{
			name: "gap",
			tasks: []Task{
				{ID: "a", Status: StatusTodo, Position: 0},
				{ID: "b", Status: StatusTodo, Position: 2},
			},
			want: false,
		},
		{
			name: "duplicate",
			tasks: []Task{
				{ID: "a", Status: StatusTodo, Position: 1},
				{ID: "b", Status: StatusTodo, Position: 1},
			},
			want: false,
		},
		{
			name:  "negative",
			tasks: []Task{{ID: "a", Status: StatusTodo, Position: -1}},
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckDense(tt.tasks); got != tt.want {
				t.Fatalf("CheckDense = %v, want %v", got, tt.want)
			}
		})
	}
}
