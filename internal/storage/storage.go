// Package storage is the embedded todo store.
//
// The Store interface is the whole surface the rest of the application may
// use. SQLiteStore is the implementation, using pure-Go SQLite
// (modernc.org/sqlite) as the persistent substrate: one "todos" collection
// keyed by id, secondary indexes on created_at and status, and a
// multi-valued index from content token to todo id that backs full-text
// search.
//
// Records are stored as versioned documents; the layout version is kept in
// the database header and upgraded on open (see migrate.go).
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error kinds. Match with errors.Is.
var (
	// ErrNotFound is returned when an id does not exist.
	ErrNotFound = errors.New("todo not found")
	// ErrStorage wraps failures of the underlying database.
	ErrStorage = errors.New("storage failure")
	// ErrMigration is returned by NewSQLiteStore when the layout could not
	// be brought to the current version. The store is not usable.
	ErrMigration = errors.New("schema migration failed")
	// ErrInvalidAction marks an unknown stale todo disposition.
	ErrInvalidAction = errors.New("invalid stale todo action")
	// ErrInvalidTodo is returned when a write carries an unknown status or
	// priority. Nothing is written.
	ErrInvalidTodo = errors.New("invalid todo")
)

// Status is the lifecycle state of a todo.
type Status string

const (
	StatusIncomplete Status = "incomplete"
	// StatusInactive means dismissed without being completed.
	StatusInactive Status = "inactive"
	StatusComplete Status = "complete"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusIncomplete, StatusInactive, StatusComplete:
		return true
	}
	return false
}

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// Priority orders todos within a day.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority converts user input into a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

// Todo is a stored todo as returned to callers. It is a copy; mutating it
// has no effect on the store.
type Todo struct {
	ID            string     `json:"id"`
	Content       string     `json:"content"`
	ContentTokens []string   `json:"content_tokens"`
	Status        Status     `json:"status"`
	Priority      Priority   `json:"priority"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"` // nil until the first update.
}

// CreateTodoInput describes a new todo. Zero Status and Priority mean
// StatusIncomplete and PriorityNormal.
type CreateTodoInput struct {
	Content  string
	Status   Status
	Priority Priority
}

// UpdateTodoInput lists the fields to change on todo ID. Nil fields are left
// as they are.
type UpdateTodoInput struct {
	ID       string
	Content  *string
	Status   *Status
	Priority *Priority
}

// StaleAction is the disposition chosen for a stale todo.
type StaleAction string

const (
	// CarryOver closes the stale todo as inactive and creates a fresh
	// incomplete copy dated today.
	CarryOver     StaleAction = "carry-over"
	MarkInactive  StaleAction = "mark-inactive"
	MarkCompleted StaleAction = "mark-completed"
)

// StaleTodoAction pairs a stale todo with its disposition.
type StaleTodoAction struct {
	ID     string      `json:"id"`
	Action StaleAction `json:"action"`
}

// SearchLimit is the maximum number of todos FulltextSearch returns.
const SearchLimit = 20

// Store is the todo store.
type Store interface {
	// CreateTodo persists a new todo with a fresh id and created_at = now.
	CreateTodo(ctx context.Context, in CreateTodoInput) (Todo, error)

	// UpdateTodo merges the given fields into an existing todo and stamps
	// updated_at. Returns ErrNotFound if the id does not exist.
	UpdateTodo(ctx context.Context, in UpdateTodoInput) (Todo, error)

	// DeleteTodo removes a todo. Deleting a missing id is not an error.
	DeleteTodo(ctx context.Context, id string) error

	// GetTodo fetches a todo by id. Returns ErrNotFound if missing.
	GetTodo(ctx context.Context, id string) (Todo, error)

	// GetRelevantTodos returns every todo created on the local calendar day
	// of date, whatever its status.
	GetRelevantTodos(ctx context.Context, date time.Time) ([]Todo, error)

	// GetStaleTodos returns incomplete todos created before today.
	GetStaleTodos(ctx context.Context) ([]Todo, error)

	// CarryOverTodo closes a todo as inactive and creates an incomplete copy
	// dated now, in one transaction.
	CarryOverTodo(ctx context.Context, id string) (Todo, error)

	// HandleStaleTodosActions applies a disposition to each stale todo.
	HandleStaleTodosActions(ctx context.Context, actions []StaleTodoAction) error

	// FulltextSearch returns up to SearchLimit todos matching more than half
	// of the query's index tokens, best matches first.
	FulltextSearch(ctx context.Context, query string) ([]Todo, error)

	// Count returns the total number of todos.
	Count(ctx context.Context) (int, error)

	// Close shuts down the store.
	Close() error
}
