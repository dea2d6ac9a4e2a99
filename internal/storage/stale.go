package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tododay/tododay/internal/observability"
)

// staleWorkers bounds how many dispositions run at once.
const staleWorkers = 4

// todoWriter is the part of SQLiteStore the resolver drives.
type todoWriter interface {
	UpdateTodo(ctx context.Context, in UpdateTodoInput) (Todo, error)
	CarryOverTodo(ctx context.Context, id string) (Todo, error)
}

// StaleResolver applies user-chosen dispositions to stale todos. It only
// ever moves a todo from incomplete to inactive or complete, or spawns a
// new incomplete todo; created_at of an existing todo is never touched.
type StaleResolver struct {
	store   todoWriter
	log     *observability.Logger
	metrics *observability.MetricsCollector
}

// NewStaleResolver returns a resolver over store. metrics may be nil.
func NewStaleResolver(store todoWriter, log *observability.Logger, metrics *observability.MetricsCollector) *StaleResolver {
	return &StaleResolver{store: store, log: log, metrics: metrics}
}

// Resolve applies every action concurrently and waits for all of them.
//
// Entries are independent: a failed entry does not stop or roll back the
// others, and the failures are returned joined. Unknown actions are logged
// and skipped. Overlapping ids are tolerated; the last write wins.
func (r *StaleResolver) Resolve(ctx context.Context, actions []StaleTodoAction) error {
	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	g.SetLimit(staleWorkers)
	for _, a := range actions {
		a := a
		g.Go(func() error {
			err := r.ResolveOne(ctx, a)
			r.log.StaleAction(a.ID, string(a.Action), err)

			switch {
			case err == nil:
				if r.metrics != nil {
					r.metrics.Increment("store.stale_resolved")
				}
			case errors.Is(err, ErrInvalidAction):
				// Caller or version skew, not a data problem.
			default:
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	return errors.Join(errs...)
}

// ResolveOne applies a single disposition.
func (r *StaleResolver) ResolveOne(ctx context.Context, a StaleTodoAction) error {
	switch a.Action {
	case MarkInactive:
		return r.setStatus(ctx, a, StatusInactive)
	case MarkCompleted:
		return r.setStatus(ctx, a, StatusComplete)
	case CarryOver:
		return r.carryOver(ctx, a)
	default:
		return fmt.Errorf("%w: %q for todo %s", ErrInvalidAction, a.Action, a.ID)
	}
}

func (r *StaleResolver) setStatus(ctx context.Context, a StaleTodoAction, status Status) error {
	if _, err := r.store.UpdateTodo(ctx, UpdateTodoInput{ID: a.ID, Status: &status}); err != nil {
		return fmt.Errorf("%s %s: %w", a.Action, a.ID, err)
	}
	return nil
}

// carryOver closes the old todo as inactive and creates its replacement
// dated now, atomically.
func (r *StaleResolver) carryOver(ctx context.Context, a StaleTodoAction) error {
	if _, err := r.store.CarryOverTodo(ctx, a.ID); err != nil {
		return fmt.Errorf("carry over %s: %w", a.ID, err)
	}
	return nil
}
