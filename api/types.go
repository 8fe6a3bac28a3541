package api

import (
	"context"

	"github.com/jyanimaulik/task-manager/domain"
)

// Storage abstracts persistence for handlers. Implementations return
// domain.ErrTaskNotFound when an id does not resolve to a record; only the
// handlers turn that into a user-facing error.
type Storage interface {
	CreateTask(ctx context.Context, title string, description *string) (domain.Task, error)
	GetTask(ctx context.Context, id int64) (domain.Task, error)
	// ListTasks returns one page ordered by descending id plus the total count.
	ListTasks(ctx context.Context, skip, limit int) ([]domain.Task, int, error)
	// SearchTasks returns tasks whose title contains query, case-insensitive,
	// plus the matching count.
	SearchTasks(ctx context.Context, query string, skip, limit int) ([]domain.Task, int, error)
	UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// Deduper prevents reprocessing of duplicate create requests.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, key string) (bool, error)
	// Remove deletes a previously added key, used when the create fails so the
	// client may retry.
	Remove(ctx context.Context, key string) error
}
