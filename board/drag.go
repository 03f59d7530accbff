package board

import "taskboard-api/domain"

// DragState is the phase of the drag gesture state machine.
type DragState int

const (
	StateIdle DragState = iota
	StateDragging
	StateCommitting
)

func (s DragState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StateCommitting:
		return "committing"
	default:
		return "unknown"
	}
}

// Point is a pointer coordinate in pixels.
type Point struct {
	X int
	Y int
}

func manhattan(a, b Point) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

type placement struct {
	status domain.Status
	index  int
}

// CommitRequest is the reorder payload produced by a completed drag:
// the full desired state of the destination column, renumbered 0..n-1.
// RequestID and Generation are stamped by the manager when the commit
// is issued.
type CommitRequest struct {
	ProjectID  string
	TaskID     string
	RequestID  string
	Generation uint64
	Items      []domain.OrderItem
}

const defaultActivationThreshold = 5

// DragController turns pointer gestures into provisional placements in
// the store. It never touches the network or storage; each drag-over
// fully recomputes the active task's placement, so events supersede
// each other instead of accumulating patches. Not safe for concurrent
// use.
type DragController struct {
	store     *Store
	threshold int

	state      DragState
	pressed    bool
	pressPoint Point
	taskID     string
	origin     placement
}

// NewDragController wires a controller to a store. threshold is the
// pointer travel in pixels required before a press becomes a drag;
// values below one fall back to the default.
func NewDragController(store *Store, threshold int) *DragController {
	if threshold < 1 {
		threshold = defaultActivationThreshold
	}
	return &DragController{store: store, threshold: threshold}
}

func (d *DragController) State() DragState { return d.state }

// TaskID returns the task under drag, if any.
func (d *DragController) TaskID() (string, bool) {
	if d.state != StateDragging {
		return "", false
	}
	return d.taskID, true
}

// PointerDown arms a potential drag on the given task. It does nothing
// outside the idle state or for unknown tasks.
func (d *DragController) PointerDown(taskID string, at Point) {
	if d.state != StateIdle {
		return
	}
	if _, ok := d.store.Task(taskID); !ok {
		return
	}
	d.pressed = true
	d.pressPoint = at
	d.taskID = taskID
}

// PointerMove activates the drag once travel from the press point
// exceeds the threshold, snapshotting the task's placement at that
// moment. It reports whether a drag is active.
func (d *DragController) PointerMove(at Point) bool {
	if d.state == StateDragging {
		return true
	}
	if d.state != StateIdle || !d.pressed {
		return false
	}
	if manhattan(at, d.pressPoint) < d.threshold {
		return false
	}
	status, index, ok := d.store.locate(d.taskID)
	if !ok {
		d.reset()
		return false
	}
	d.state = StateDragging
	d.origin = placement{status: status, index: index}
	return true
}

// DragOverTask places the active task at the hovered task's slot,
// switching columns when the hovered task lives in a different one.
// Hovering the dragged task itself is a no-op.
func (d *DragController) DragOverTask(targetID string) {
	if d.state != StateDragging || targetID == d.taskID {
		return
	}
	status, index, ok := d.store.locate(targetID)
	if !ok {
		return
	}
	d.store.place(d.taskID, status, index)
}

// DragOverColumn places the active task at the end of the hovered
// column. This is the column-sentinel hover target below the last card.
func (d *DragController) DragOverColumn(status domain.Status) {
	if d.state != StateDragging {
		return
	}
	cur, _, ok := d.store.locate(d.taskID)
	if !ok {
		return
	}
	end := len(d.store.order[status])
	if cur == status {
		// The task already occupies a slot in this column.
		end--
	}
	d.store.place(d.taskID, status, end)
}

// Drop finishes the gesture. A drop at the drag-start placement,
// including a plain click that never activated, yields (nil, false)
// with no mutation left behind. Otherwise the controller enters the
// committing state and returns the destination column payload.
func (d *DragController) Drop() (*CommitRequest, bool) {
	if d.state != StateDragging {
		d.reset()
		return nil, false
	}
	taskID := d.taskID
	status, index, ok := d.store.locate(taskID)
	if !ok {
		d.reset()
		return nil, false
	}
	if status == d.origin.status && index == d.origin.index {
		d.reset()
		return nil, false
	}
	column := d.store.Column(status)
	items := make([]domain.OrderItem, len(column))
	for i, t := range column {
		items[i] = domain.OrderItem{TaskID: t.ID, Status: status, Position: i}
	}
	d.state = StateCommitting
	d.pressed = false
	return &CommitRequest{
		ProjectID: d.store.ProjectID(),
		TaskID:    taskID,
		Items:     items,
	}, true
}

// Resolve returns the controller to idle after the commit settles.
func (d *DragController) Resolve() {
	if d.state == StateCommitting {
		d.reset()
	}
}

// Cancel abandons the gesture and restores the task to its drag-start
// placement.
func (d *DragController) Cancel() {
	if d.state == StateDragging {
		d.store.place(d.taskID, d.origin.status, d.origin.index)
	}
	d.reset()
}

func (d *DragController) reset() {
	d.state = StateIdle
	d.pressed = false
	d.taskID = ""
	d.origin = placement{}
}
