package storage

import (
	"context"
	"fmt"

	"todo-api/domain"
)

const (
	BackendTables = "aztables"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Store is a task document store with an explicit lifecycle.
type Store interface {
	domain.TaskStorage
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Options selects and configures a backend.
type Options struct {
	Backend string

	TablesConnectionString string
	TasksTable             string

	MongoURL        string
	MongoDatabase   string
	MongoCollection string
}

// Open connects to the configured backend. The returned store is meant to live
// for the whole process and be closed once at shutdown.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case BackendTables:
		return NewTables(ctx, opts.TablesConnectionString, opts.TasksTable)
	case BackendMongo:
		return NewMongo(ctx, opts.MongoURL, opts.MongoDatabase, opts.MongoCollection)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}
