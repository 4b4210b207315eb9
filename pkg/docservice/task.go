package docservice

// Task is one remote tool session. Its worker host is assigned by Start and
// fixed for the task's lifetime; upload, process and download always target it.
type Task struct {
	id     string
	worker string
	tool   string
}

// NewTask builds a Task from server-issued values. Client.Start is the normal
// source of tasks; NewTask exists for alternative TaskClient implementations.
func NewTask(id, worker, tool string) *Task {
	return &Task{id: id, worker: worker, tool: tool}
}

// ID returns the server-issued task identifier.
func (t *Task) ID() string { return t.id }

// Worker returns the worker host pinned to this task.
func (t *Task) Worker() string { return t.worker }

// Tool returns the transformation tool the task was started for.
func (t *Task) Tool() string { return t.tool }
