package api

import (
	"context"

	"todo-api/domain"
)

// Tasks is the task service used by the handlers.
type Tasks interface {
	List(ctx context.Context) ([]domain.Task, error)
	Create(ctx context.Context, in domain.TaskCreate) (domain.Task, error)
	Update(ctx context.Context, id string, in domain.TaskUpdate) (domain.Task, error)
	Reorder(ctx context.Context, in domain.TaskReorder) error
	Delete(ctx context.Context, id string) error
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deduper prevents processing of duplicate requests.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, scope, key string) (bool, error)
	// Remove deletes a previously added key, used when processing fails.
	Remove(ctx context.Context, scope, key string) error
}
