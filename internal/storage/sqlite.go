package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite"

	"github.com/tododay/tododay/internal/fulltext"
	"github.com/tododay/tododay/internal/observability"
)

// Options configures a SQLiteStore. The zero value is usable.
type Options struct {
	// Logger receives store events. Nil discards them.
	Logger *observability.Logger
	// Metrics records per-operation counters and latency. Nil disables.
	Metrics *observability.MetricsCollector
	// Location defines local calendar days. Nil means time.Local.
	Location *time.Location
	// Now is the clock. Nil means time.Now.
	Now func() time.Time
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db       *sql.DB
	log      *observability.Logger
	metrics  *observability.MetricsCollector
	loc      *time.Location
	now      func() time.Time
	searches singleflight.Group
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the todo store at path and upgrades its
// layout to CurrentSchemaVersion before returning. Use ":memory:" for an
// in-memory database.
//
// A failed upgrade returns an error matching ErrMigration and leaves the
// database at its previous version.
func NewSQLiteStore(ctx context.Context, path string, opts Options) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w: %w", path, ErrStorage, err)
	}
	// One connection: an in-memory database exists per connection, and
	// SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w: %w", ErrStorage, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w: %w", ErrStorage, err)
	}

	s := &SQLiteStore{
		db:      db,
		log:     opts.Logger,
		metrics: opts.Metrics,
		loc:     opts.Location,
		now:     opts.Now,
	}
	if s.log == nil {
		s.log = observability.NewLogger("storage", io.Discard)
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.now == nil {
		s.now = time.Now
	}

	if err := migrate(ctx, db, CurrentSchemaVersion, s.log); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// CreateTodo persists a new todo.
func (s *SQLiteStore) CreateTodo(ctx context.Context, in CreateTodoInput) (todo Todo, err error) {
	defer s.observe("create", time.Now(), &err)

	id, err := newID()
	if err != nil {
		return Todo{}, err
	}
	rec := todoRecord{
		ID:            id,
		Content:       in.Content,
		ContentTokens: fulltext.IndexTokens(in.Content),
		Status:        in.Status,
		Priority:      in.Priority,
		CreatedAt:     s.now().UnixNano(),
	}
	if rec.Status == "" {
		rec.Status = StatusIncomplete
	}
	if rec.Priority == "" {
		rec.Priority = PriorityNormal
	}
	if err := validateFields(&rec.Status, &rec.Priority); err != nil {
		return Todo{}, fmt.Errorf("create todo: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		return putRecord(ctx, tx, rec, true)
	})
	if err != nil {
		return Todo{}, storageErr("create todo", err)
	}
	return rec.toTodo(), nil
}

// UpdateTodo reads, merges and writes back a todo in one transaction.
func (s *SQLiteStore) UpdateTodo(ctx context.Context, in UpdateTodoInput) (todo Todo, err error) {
	defer s.observe("update", time.Now(), &err)

	if err := validateFields(in.Status, in.Priority); err != nil {
		return Todo{}, fmt.Errorf("update todo %s: %w", in.ID, err)
	}

	var rec todoRecord
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		rec, err = getRecord(ctx, tx, in.ID)
		if err != nil {
			return err
		}

		contentChanged := in.Content != nil && *in.Content != rec.Content
		if in.Content != nil {
			rec.Content = *in.Content
		}
		if in.Status != nil {
			rec.Status = *in.Status
		}
		if in.Priority != nil {
			rec.Priority = *in.Priority
		}
		if contentChanged {
			rec.ContentTokens = fulltext.IndexTokens(rec.Content)
		}
		rec.UpdatedAt = s.now().UnixNano()

		return putRecord(ctx, tx, rec, contentChanged)
	})
	if errors.Is(err, ErrNotFound) {
		return Todo{}, fmt.Errorf("update todo %s: %w", in.ID, err)
	}
	if err != nil {
		return Todo{}, storageErr("update todo "+in.ID, err)
	}
	return rec.toTodo(), nil
}

// CarryOverTodo closes todo id as inactive and creates a fresh incomplete
// todo dated now with the same content and priority. Both writes commit in
// one transaction, so a failure leaves the old todo untouched.
func (s *SQLiteStore) CarryOverTodo(ctx context.Context, id string) (todo Todo, err error) {
	defer s.observe("carry_over", time.Now(), &err)

	freshID, err := newID()
	if err != nil {
		return Todo{}, err
	}
	now := s.now().UnixNano()

	var fresh todoRecord
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		old, err := getRecord(ctx, tx, id)
		if err != nil {
			return err
		}
		old.Status = StatusInactive
		old.UpdatedAt = now
		if err := putRecord(ctx, tx, old, false); err != nil {
			return err
		}

		fresh = todoRecord{
			ID:            freshID,
			Content:       old.Content,
			ContentTokens: fulltext.IndexTokens(old.Content),
			Status:        StatusIncomplete,
			Priority:      old.Priority,
			CreatedAt:     now,
		}
		return putRecord(ctx, tx, fresh, true)
	})
	if errors.Is(err, ErrNotFound) {
		return Todo{}, fmt.Errorf("carry over %s: %w", id, err)
	}
	if err != nil {
		return Todo{}, storageErr("carry over "+id, err)
	}
	return fresh.toTodo(), nil
}

// DeleteTodo hard-deletes a todo and its index entries.
func (s *SQLiteStore) DeleteTodo(ctx context.Context, id string) (err error) {
	defer s.observe("delete", time.Now(), &err)

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM todo_content_tokens WHERE todo_id = ?", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
		return err
	})
	if err != nil {
		return storageErr("delete todo "+id, err)
	}
	return nil
}

// GetTodo fetches a todo by id.
func (s *SQLiteStore) GetTodo(ctx context.Context, id string) (Todo, error) {
	var doc []byte
	err := s.db.QueryRowContext(ctx, "SELECT doc FROM todos WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return Todo{}, fmt.Errorf("get todo %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Todo{}, storageErr("get todo "+id, err)
	}

	var rec todoRecord
	if err := decodeRecord(doc, &rec); err != nil {
		return Todo{}, storageErr("get todo "+id, err)
	}
	return rec.toTodo(), nil
}

// GetRelevantTodos returns the todos created within [midnight, next midnight)
// of date's local day, oldest first.
func (s *SQLiteStore) GetRelevantTodos(ctx context.Context, date time.Time) (todos []Todo, err error) {
	defer s.observe("relevant", time.Now(), &err)

	start, end := DayBounds(date, s.loc)
	s.log.Debug("relevant todos", "day", FormatDay(date, s.loc))

	todos, err = s.queryTodos(ctx,
		"SELECT doc FROM todos WHERE created_at >= ? AND created_at < ? ORDER BY created_at, id",
		start.UnixNano(), end.UnixNano(),
	)
	if err != nil {
		return nil, storageErr("relevant todos", err)
	}
	return todos, nil
}

// GetStaleTodos returns incomplete todos created before the start of today.
func (s *SQLiteStore) GetStaleTodos(ctx context.Context) (todos []Todo, err error) {
	defer s.observe("stale", time.Now(), &err)

	today := StartOfDay(s.now(), s.loc)
	todos, err = s.queryTodos(ctx,
		"SELECT doc FROM todos WHERE status = ? AND created_at < ? ORDER BY created_at, id",
		string(StatusIncomplete), today.UnixNano(),
	)
	if err != nil {
		return nil, storageErr("stale todos", err)
	}
	return todos, nil
}

// HandleStaleTodosActions applies each disposition concurrently. See
// StaleResolver.
func (s *SQLiteStore) HandleStaleTodosActions(ctx context.Context, actions []StaleTodoAction) error {
	return NewStaleResolver(s, s.log, s.metrics).Resolve(ctx, actions)
}

// Count returns the total number of stored todos.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM todos").Scan(&count); err != nil {
		return 0, storageErr("count todos", err)
	}
	return count, nil
}

// SchemaVersion returns the stored layout version.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (SchemaVersion, error) {
	return schemaVersion(ctx, s.db)
}

// Location returns the zone used for calendar days.
func (s *SQLiteStore) Location() *time.Location {
	return s.loc
}

// Close shuts down the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, committing if it returns nil.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) queryTodos(ctx context.Context, query string, args ...any) ([]Todo, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := []Todo{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var rec todoRecord
		if err := decodeRecord(doc, &rec); err != nil {
			return nil, err
		}
		todos = append(todos, rec.toTodo())
	}
	return todos, rows.Err()
}

// observe records latency and outcome of one operation.
func (s *SQLiteStore) observe(op string, start time.Time, err *error) {
	if s.metrics == nil {
		return
	}
	s.metrics.Increment("store." + op)
	s.metrics.Observe(observability.LatencySeries(op), float64(time.Since(start).Microseconds())/1000)
	if *err != nil {
		s.metrics.Increment("store.errors")
	}
}

func getRecord(ctx context.Context, tx *sql.Tx, id string) (todoRecord, error) {
	var doc []byte
	err := tx.QueryRowContext(ctx, "SELECT doc FROM todos WHERE id = ?", id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return todoRecord{}, ErrNotFound
	}
	if err != nil {
		return todoRecord{}, err
	}
	var rec todoRecord
	if err := decodeRecord(doc, &rec); err != nil {
		return todoRecord{}, err
	}
	return rec, nil
}

// putRecord upserts rec and, when withTokens is set, rewrites its token
// index entries.
func putRecord(ctx context.Context, tx *sql.Tx, rec todoRecord, withTokens bool) error {
	doc, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO todos (id, doc, status, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doc = excluded.doc,
			status = excluded.status`,
		rec.ID, doc, string(rec.Status), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("put %q: %w", rec.ID, err)
	}
	if !withTokens {
		return nil
	}
	return replaceTokens(ctx, tx, rec.ID, rec.ContentTokens)
}

// replaceTokens makes the token index hold exactly tokens for id.
func replaceTokens(ctx context.Context, tx *sql.Tx, id string, tokens []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM todo_content_tokens WHERE todo_id = ?", id); err != nil {
		return fmt.Errorf("clear tokens %q: %w", id, err)
	}
	if len(tokens) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT OR IGNORE INTO todo_content_tokens (token, todo_id) VALUES ")
	args := make([]any, 0, 2*len(tokens))
	for i, t := range tokens {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(?, ?)")
		args = append(args, t, id)
	}
	if _, err := tx.ExecContext(ctx, b.String(), args...); err != nil {
		return fmt.Errorf("index tokens %q: %w", id, err)
	}
	return nil
}

// validateFields rejects unknown values. Nil pointers are not checked.
func validateFields(status *Status, priority *Priority) error {
	if status != nil && !status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidTodo, *status)
	}
	if priority != nil && !priority.Valid() {
		return fmt.Errorf("%w: priority %q", ErrInvalidTodo, *priority)
	}
	return nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
