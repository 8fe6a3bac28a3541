package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jyanimaulik/task-manager/domain"
)

// Storage is the PostgreSQL-backed task repository. It is stateless: the
// database owns the canonical records and every operation runs on a
// connection scoped to that single call.
type Storage struct {
	pool *pgxpool.Pool
}

// New creates a Storage from the given connection string and verifies the
// database is reachable. The pool keeps no idle connections around, which
// suits serverless deployments where instances come and go.
func New(ctx context.Context, connStr string) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	cfg.MinConns = 0
	cfg.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Storage{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Storage) Close() {
	s.pool.Close()
}

// EnsureSchema creates the tasks table when it does not exist yet. This is
// startup schema-ensure, not a migration system.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id          BIGSERIAL PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT,
			is_done     BOOLEAN NOT NULL DEFAULT FALSE
		)`)
	return err
}

const taskColumns = "id, title, description, is_done"

// CreateTask inserts a new task. The store assigns the id; is_done always
// starts false.
func (s *Storage) CreateTask(ctx context.Context, title string, description *string) (domain.Task, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return domain.Task{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var t domain.Task
	err = conn.QueryRow(ctx,
		"INSERT INTO tasks (title, description) VALUES ($1, $2) RETURNING "+taskColumns,
		title, description,
	).Scan(&t.ID, &t.Title, &t.Description, &t.IsDone)
	if err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// GetTask retrieves a single task by id. Missing ids surface as
// domain.ErrTaskNotFound.
func (s *Storage) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return domain.Task{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return getTask(ctx, conn, id)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getTask(ctx context.Context, q querier, id int64) (domain.Task, error) {
	var t domain.Task
	err := q.QueryRow(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = $1", id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.IsDone)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

// ListTasks returns one page of tasks ordered by descending id, plus the
// total unpaged count. Both reads run on the same scoped connection.
func (s *Storage) ListTasks(ctx context.Context, skip, limit int) ([]domain.Task, int, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var total int
	if err := conn.QueryRow(ctx, "SELECT COUNT(*) FROM tasks").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	rows, err := conn.Query(ctx,
		"SELECT "+taskColumns+" FROM tasks ORDER BY id DESC OFFSET $1 LIMIT $2",
		skip, limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, total, nil
}

// SearchTasks returns one page of tasks whose title contains query
// (case-insensitive), ordered by descending id, plus the matching count.
// Wildcard metacharacters in query are passed through to ILIKE unescaped;
// a % or _ in the input widens the match.
func (s *Storage) SearchTasks(ctx context.Context, query string, skip, limit int) ([]domain.Task, int, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var total int
	err = conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM tasks WHERE title ILIKE '%' || $1 || '%'", query,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count search: %w", err)
	}

	rows, err := conn.Query(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE title ILIKE '%' || $1 || '%' ORDER BY id DESC OFFSET $2 LIMIT $3",
		query, skip, limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search tasks: %w", err)
	}
	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("search tasks: %w", err)
	}
	return tasks, total, nil
}

// UpdateTask applies the present patch fields to the task and returns the
// updated row. An empty patch degenerates to a plain read.
func (s *Storage) UpdateTask(ctx context.Context, id int64, patch domain.TaskPatch) (domain.Task, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return domain.Task{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if patch.IsEmpty() {
		return getTask(ctx, conn, id)
	}

	sql, args := updateTaskQuery(id, patch)
	var t domain.Task
	err = conn.QueryRow(ctx, sql, args...).Scan(&t.ID, &t.Title, &t.Description, &t.IsDone)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	if err != nil {
		return domain.Task{}, fmt.Errorf("update task %d: %w", id, err)
	}
	return t, nil
}

func updateTaskQuery(id int64, patch domain.TaskPatch) (string, []any) {
	set := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if patch.Title != nil {
		args = append(args, *patch.Title)
		set = append(set, fmt.Sprintf("title = $%d", len(args)))
	}
	if patch.Description != nil {
		args = append(args, *patch.Description)
		set = append(set, fmt.Sprintf("description = $%d", len(args)))
	}
	if patch.IsDone != nil {
		args = append(args, *patch.IsDone)
		set = append(set, fmt.Sprintf("is_done = $%d", len(args)))
	}
	args = append(args, id)
	sql := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d RETURNING %s",
		strings.Join(set, ", "), len(args), taskColumns)
	return sql, args
}

// DeleteTask permanently removes the task. Deleting a missing id surfaces as
// domain.ErrTaskNotFound.
func (s *Storage) DeleteTask(ctx context.Context, id int64) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTaskNotFound
	}
	return nil
}

func collectTasks(rows pgx.Rows) ([]domain.Task, error) {
	defer rows.Close()
	tasks := []domain.Task{}
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.IsDone); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
