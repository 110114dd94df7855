package domain

import "time"

// Task represents a single to-do item as returned to clients.
type Task struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// TaskCreate is the body of a create request.
type TaskCreate struct {
	Text string `json:"text"`
}

// TaskUpdate carries a partial update. Nil fields are left untouched.
type TaskUpdate struct {
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
	Order     *int    `json:"order,omitempty"`
}

// TaskReorder lists task ids in their new display sequence.
type TaskReorder struct {
	TaskIDs []string `json:"task_ids"`
}

// TaskPatch is the set of fields written by a single store update.
type TaskPatch struct {
	Text      *string
	Completed *bool
	Order     *int
}

// Empty reports whether the patch would change nothing.
func (p TaskPatch) Empty() bool {
	return p.Text == nil && p.Completed == nil && p.Order == nil
}

// Patch returns only the explicitly provided fields of the update.
func (u TaskUpdate) Patch() TaskPatch {
	var p TaskPatch
	if u.Text != nil {
		p.Text = u.Text
	}
	if u.Completed != nil {
		p.Completed = u.Completed
	}
	if u.Order != nil {
		p.Order = u.Order
	}
	return p
}
