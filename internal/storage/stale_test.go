package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tododay/tododay/internal/observability"
)

// createYesterday creates an incomplete todo dated yesterday and moves the
// clock back to today.
func createYesterday(t *testing.T, s *SQLiteStore, clock *testClock, in CreateTodoInput) Todo {
	t.Helper()
	now := clock.Now()
	clock.Set(now.AddDate(0, 0, -1))
	todo, err := s.CreateTodo(context.Background(), in)
	require.NoError(t, err)
	clock.Set(now)
	return todo
}

func TestHandleStaleTodosActions_CarryOver(t *testing.T) {
	clock := newTestClock()
	s := newTestStore(t, clock)
	ctx := context.Background()

	stale := createYesterday(t, s, clock, CreateTodoInput{Content: "renew passport", Priority: PriorityHigh})

	err := s.HandleStaleTodosActions(ctx, []StaleTodoAction{{ID: stale.ID, Action: CarryOver}})
	require.NoError(t, err)

	old, err := s.GetTodo(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, old.Status)
	assert.True(t, old.CreatedAt.Equal(stale.CreatedAt), "carry over must not move the original")

	today, err := s.GetRelevantTodos(ctx, clock.Now())
	require.NoError(t, err)
	require.Len(t, today, 1)
	fresh := today[0]
	assert.NotEqual(t, stale.ID, fresh.ID)
	assert.Equal(t, "renew passport", fresh.Content)
	assert.Equal(t, PriorityHigh, fresh.Priority)
	assert.Equal(t, StatusIncomplete, fresh.Status)
	assert.True(t, fresh.CreatedAt.Equal(clock.Now()))
	assert.Nil(t, fresh.UpdatedAt)

	remaining, err := s.GetStaleTodos(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestHandleStaleTodosActions_CarryOverIsAtomic(t *testing.T) {
	clock := newTestClock()
	s := newTestStore(t, clock)
	ctx := context.Background()

	stale := createYesterday(t, s, clock, CreateTodoInput{Content: "renew passport"})

	// Make indexing the replacement fail after the old todo was rewritten.
	_, err := s.db.ExecContext(ctx, `
		CREATE TRIGGER reject_tokens BEFORE INSERT ON todo_content_tokens
		BEGIN SELECT RAISE(ABORT, 'index unavailable'); END`)
	require.NoError(t, err)

	err = s.HandleStaleTodosActions(ctx, []StaleTodoAction{{ID: stale.ID, Action: CarryOver}})
	require.ErrorIs(t, err, ErrStorage)

	got, err := s.GetTodo(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusIncomplete, got.Status, "old todo must be untouched")
	assert.Nil(t, got.UpdatedAt)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	remaining, err := s.GetStaleTodos(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{stale.ID}, ids(remaining))
}

func TestHandleStaleTodosActions_MarkInactiveAndCompleted(t *testing.T) {
	clock := newTestClock()
	s := newTestStore(t, clock)
	ctx := context.Background()

	a := createYesterday(t, s, clock, CreateTodoInput{Content: "old a"})
	b := createYesterday(t, s, clock, CreateTodoInput{Content: "old b"})

	err := s.HandleStaleTodosActions(ctx, []StaleTodoAction{
		{ID: a.ID, Action: MarkInactive},
		{ID: b.ID, Action: MarkCompleted},
	})
	require.NoError(t, err)

	gotA, err := s.GetTodo(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, gotA.Status)
	require.NotNil(t, gotA.UpdatedAt)

	gotB, err := s.GetTodo(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, gotB.Status)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "only carry over creates todos")
}

func TestHandleStaleTodosActions_MissingIDFailsWithoutRollback(t *testing.T) {
	clock := newTestClock()
	s := newTestStore(t, clock)
	ctx := context.Background()

	kept := createYesterday(t, s, clock, CreateTodoInput{Content: "still here"})

	err := s.HandleStaleTodosActions(ctx, []StaleTodoAction{
		{ID: "vanished", Action: CarryOver},
		{ID: kept.ID, Action: MarkCompleted},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.GetTodo(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, got.Status)
}

func TestHandleStaleTodosActions_InvalidActionSkipped(t *testing.T) {
	clock := newTestClock()
	var buf bytes.Buffer
	s, err := NewSQLiteStore(context.Background(), ":memory:", Options{
		Logger:   observability.NewLogger("storage", &buf),
		Location: testZone,
		Now:      clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	todo := createYesterday(t, s, clock, CreateTodoInput{Content: "snooze"})

	err = s.HandleStaleTodosActions(ctx, []StaleTodoAction{
		{ID: todo.ID, Action: StaleAction("snooze")},
		{ID: todo.ID, Action: MarkInactive},
	})
	require.NoError(t, err)

	got, err := s.GetTodo(ctx, todo.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, got.Status)
	assert.True(t, strings.Contains(buf.String(), "invalid stale todo action"), "invalid action should be logged: %s", buf.String())
}

func TestHandleStaleTodosActions_Empty(t *testing.T) {
	s := newTestStore(t, newTestClock())
	assert.NoError(t, s.HandleStaleTodosActions(context.Background(), nil))
}

func TestHandleStaleTodosActions_OverlappingIDs(t *testing.T) {
	clock := newTestClock()
	s := newTestStore(t, clock)
	ctx := context.Background()

	todo := createYesterday(t, s, clock, CreateTodoInput{Content: "decide twice"})

	err := s.HandleStaleTodosActions(ctx, []StaleTodoAction{
		{ID: todo.ID, Action: MarkInactive},
		{ID: todo.ID, Action: MarkCompleted},
	})
	require.NoError(t, err)

	got, err := s.GetTodo(ctx, todo.ID)
	require.NoError(t, err)
	assert.Contains(t, []Status{StatusInactive, StatusComplete}, got.Status)
}

// fakeWriter records the calls a StaleResolver makes.
type fakeWriter struct {
	mu      sync.Mutex
	todos   map[string]Todo
	updates []UpdateTodoInput
	carried []string
}

func (f *fakeWriter) UpdateTodo(_ context.Context, in UpdateTodoInput) (Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.todos[in.ID]; !ok {
		return Todo{}, ErrNotFound
	}
	f.updates = append(f.updates, in)
	return f.todos[in.ID], nil
}

func (f *fakeWriter) CarryOverTodo(_ context.Context, id string) (Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.todos[id]
	if !ok {
		return Todo{}, ErrNotFound
	}
	f.carried = append(f.carried, id)
	return Todo{ID: "new", Content: old.Content, Priority: old.Priority, Status: StatusIncomplete}, nil
}

func TestStaleResolver_CarryOverIsOneCall(t *testing.T) {
	w := &fakeWriter{todos: map[string]Todo{
		"t1": {ID: "t1", Content: "pay rent", Priority: PriorityLow, Status: StatusIncomplete, CreatedAt: time.Unix(0, 1)},
	}}
	r := NewStaleResolver(w, observability.NewLogger("test", &bytes.Buffer{}), nil)

	require.NoError(t, r.ResolveOne(context.Background(), StaleTodoAction{ID: "t1", Action: CarryOver}))

	assert.Equal(t, []string{"t1"}, w.carried)
	assert.Empty(t, w.updates, "carry over must not issue a separate status update")
}

func TestStaleResolver_CarryOverMissing(t *testing.T) {
	w := &fakeWriter{todos: map[string]Todo{}}
	r := NewStaleResolver(w, observability.NewLogger("test", &bytes.Buffer{}), nil)

	err := r.ResolveOne(context.Background(), StaleTodoAction{ID: "gone", Action: CarryOver})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, w.carried)
}

func TestStaleResolver_InvalidAction(t *testing.T) {
	w := &fakeWriter{todos: map[string]Todo{"t1": {ID: "t1"}}}
	r := NewStaleResolver(w, observability.NewLogger("test", &bytes.Buffer{}), nil)

	err := r.ResolveOne(context.Background(), StaleTodoAction{ID: "t1", Action: "archive"})
	if !errors.Is(err, ErrInvalidAction) {
		t.Fatalf("err = %v, want ErrInvalidAction", err)
	}
	assert.Empty(t, w.updates)
}

func TestStaleResolver_Metrics(t *testing.T) {
	w := &fakeWriter{todos: map[string]Todo{"t1": {ID: "t1"}, "t2": {ID: "t2"}}}
	metrics := observability.NewMetricsCollector(10)
	r := NewStaleResolver(w, observability.NewLogger("test", &bytes.Buffer{}), metrics)

	err := r.Resolve(context.Background(), []StaleTodoAction{
		{ID: "t1", Action: MarkCompleted},
		{ID: "t2", Action: MarkInactive},
		{ID: "t3", Action: MarkInactive},
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int64(2), metrics.Counter("store.stale_resolved"))
}
