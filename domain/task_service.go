package domain

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// TaskStorage is the document store contract used by TaskService.
type TaskStorage interface {
	ListTasks(ctx context.Context) ([]TaskDocument, error)
	GetTask(ctx context.Context, id string) (*TaskDocument, error)
	InsertTask(ctx context.Context, doc TaskDocument) error
	// UpdateTask applies the patch; an absent id is a no-op.
	UpdateTask(ctx context.Context, id string, patch TaskPatch) error
	// DeleteTask returns the number of removed documents (0 or 1).
	DeleteTask(ctx context.Context, id string) (int64, error)
}

// TaskService owns task ordering and the update rules around it. It holds no
// locks: concurrent creates may share an order value and concurrent reorders may
// interleave with other writes.
type TaskService struct {
	st            TaskStorage
	now           func() time.Time
	newID         func() string
	strictReorder bool
}

// Option configures a TaskService.
type Option func(*TaskService)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *TaskService) { s.now = now }
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *TaskService) { s.newID = gen }
}

// WithStrictReorder rejects reorder batches that are not a permutation of the
// current collection.
func WithStrictReorder() Option {
	return func(s *TaskService) { s.strictReorder = true }
}

func NewTaskService(st TaskStorage, opts ...Option) (*TaskService, error) {
	if st == nil {
		return nil, ErrStorageNil
	}
	s := &TaskService{st: st, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// List returns every task sorted by order. Ties keep the store's retrieval order.
func (s *TaskService) List(ctx context.Context) ([]Task, error) {
	docs, err := s.st.ListTasks(ctx)
	if err != nil {
		return nil, storeErr("list tasks", err)
	}
	tasks := make([]Task, 0, len(docs))
	for _, d := range docs {
		t, err := d.Task()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Order < tasks[j].Order })
	return tasks, nil
}

// Create appends a new task after the current maximum order.
func (s *TaskService) Create(ctx context.Context, in TaskCreate) (Task, error) {
	if in.Text == "" {
		return Task{}, &ValidationError{Field: "text", Message: "must not be empty"}
	}
	docs, err := s.st.ListTasks(ctx)
	if err != nil {
		return Task{}, storeErr("list tasks", err)
	}
	maxOrder := -1
	for _, d := range docs {
		if d.Order > maxOrder {
			maxOrder = d.Order
		}
	}
	task := Task{
		ID:        s.newID(),
		Text:      in.Text,
		Completed: false,
		Order:     maxOrder + 1,
		CreatedAt: s.now().UTC(),
	}
	if err := s.st.InsertTask(ctx, NewTaskDocument(task)); err != nil {
		return Task{}, storeErr("insert task", err)
	}
	log.WithFields(log.Fields{"task": task.ID, "order": task.Order}).Debug("task created")
	return task, nil
}

// Update applies the provided fields and returns the stored result.
func (s *TaskService) Update(ctx context.Context, id string, in TaskUpdate) (Task, error) {
	existing, err := s.st.GetTask(ctx, id)
	if err != nil {
		return Task{}, storeErr("get task", err)
	}
	if existing == nil {
		return Task{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if patch := in.Patch(); !patch.Empty() {
		if err := s.st.UpdateTask(ctx, id, patch); err != nil {
			return Task{}, storeErr("update task", err)
		}
	}
	updated, err := s.st.GetTask(ctx, id)
	if err != nil {
		return Task{}, storeErr("get task", err)
	}
	if updated == nil {
		return Task{}, fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	return updated.Task()
}

// Reorder sets order = index for each id in sequence. Writes are applied one by
// one and are not rolled back when a later write fails. Ids missing from the
// store are skipped and ids missing from the batch keep their order, unless the
// service was built WithStrictReorder.
func (s *TaskService) Reorder(ctx context.Context, in TaskReorder) error {
	if s.strictReorder {
		if err := s.checkPermutation(ctx, in.TaskIDs); err != nil {
			return err
		}
	}
	for idx, id := range in.TaskIDs {
		order := idx
		if err := s.st.UpdateTask(ctx, id, TaskPatch{Order: &order}); err != nil {
			log.WithFields(log.Fields{"task": id, "applied": idx, "total": len(in.TaskIDs)}).Warn("reorder stopped partway")
			return storeErr("reorder task", err)
		}
	}
	return nil
}

func (s *TaskService) checkPermutation(ctx context.Context, ids []string) error {
	docs, err := s.st.ListTasks(ctx)
	if err != nil {
		return storeErr("list tasks", err)
	}
	known := make(map[string]bool, len(docs))
	for _, d := range docs {
		known[d.ID] = false
	}
	for _, id := range ids {
		seen, ok := known[id]
		if !ok {
			return &ValidationError{Field: "task_ids", Message: fmt.Sprintf("unknown task %q", id)}
		}
		if seen {
			return &ValidationError{Field: "task_ids", Message: fmt.Sprintf("duplicate task %q", id)}
		}
		known[id] = true
	}
	if len(ids) != len(known) {
		return &ValidationError{Field: "task_ids", Message: fmt.Sprintf("expected %d ids, got %d", len(known), len(ids))}
	}
	return nil
}

// Delete removes a task. Remaining orders are not compacted.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	n, err := s.st.DeleteTask(ctx, id)
	if err != nil {
		return storeErr("delete task", err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	return nil
}
