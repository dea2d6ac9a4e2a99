package storage

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTodos(t *testing.T, s *SQLiteStore, contents ...string) []Todo {
	t.Helper()
	todos := make([]Todo, len(contents))
	for i, c := range contents {
		todo, err := s.CreateTodo(context.Background(), CreateTodoInput{Content: c})
		require.NoError(t, err)
		todos[i] = todo
	}
	return todos
}

func ids(todos []Todo) []string {
	out := make([]string, len(todos))
	for i, t := range todos {
		out[i] = t.ID
	}
	return out
}

func TestFulltextSearch_StemmedMatch(t *testing.T) {
	s := newTestStore(t, newTestClock())
	seeded := seedTodos(t, s, "Buy groceries and cook dinner", "Fix the bike")

	hits, err := s.FulltextSearch(context.Background(), "grocery")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, seeded[0].ID, hits[0].ID)
}

func TestFulltextSearch_StopwordOnlyQuery(t *testing.T) {
	s := newTestStore(t, newTestClock())
	seedTodos(t, s, "the cat and the hat")

	for _, q := range []string{"the", "and the", "", "   "} {
		hits, err := s.FulltextSearch(context.Background(), q)
		require.NoError(t, err)
		assert.NotNil(t, hits)
		assert.Empty(t, hits, "query %q", q)
	}
}

func TestFulltextSearch_WalkExample(t *testing.T) {
	s := newTestStore(t, newTestClock())
	seeded := seedTodos(t, s, "walk dog", "walk cat", "feed fish")

	hits, err := s.FulltextSearch(context.Background(), "walk")
	require.NoError(t, err)
	assert.Equal(t, []string{seeded[0].ID, seeded[1].ID}, ids(hits))
}

func TestFulltextSearch_MoreThanHalfOfTokens(t *testing.T) {
	s := newTestStore(t, newTestClock())
	seeded := seedTodos(t, s,
		"walk dog park",         // 3 of 5 query tokens
		"walk dog",              // 2 of 5: not more than half
		"walk dog park morning", // 4 of 5
		"cat",
	)

	// Query tokens: walk, dog, park, everi, morn. A hit needs more than 2.
	hits, err := s.FulltextSearch(context.Background(), "walk the dog in the park every morning")
	require.NoError(t, err)
	assert.Equal(t, []string{seeded[2].ID, seeded[0].ID}, ids(hits))
}

func TestFulltextSearch_HighestScoreFirst(t *testing.T) {
	s := newTestStore(t, newTestClock())
	seeded := seedTodos(t, s, "paint fence", "paint fence red", "paint")

	hits, err := s.FulltextSearch(context.Background(), "paint red fence")
	require.NoError(t, err)
	assert.Equal(t, []string{seeded[1].ID, seeded[0].ID}, ids(hits))
}

func TestFulltextSearch_FollowsContentUpdates(t *testing.T) {
	s := newTestStore(t, newTestClock())
	ctx := context.Background()
	seeded := seedTodos(t, s, "email the landlord")

	_, err := s.UpdateTodo(ctx, UpdateTodoInput{ID: seeded[0].ID, Content: ptr("call the plumber")})
	require.NoError(t, err)

	old, err := s.FulltextSearch(ctx, "landlord")
	require.NoError(t, err)
	assert.Empty(t, old)

	hits, err := s.FulltextSearch(ctx, "plumbers")
	require.NoError(t, err)
	assert.Equal(t, []string{seeded[0].ID}, ids(hits))
}

func TestFulltextSearch_Limit(t *testing.T) {
	s := newTestStore(t, newTestClock())
	contents := make([]string, SearchLimit+5)
	for i := range contents {
		contents[i] = fmt.Sprintf("laundry load %d", i)
	}
	seedTodos(t, s, contents...)

	hits, err := s.FulltextSearch(context.Background(), "laundry")
	require.NoError(t, err)
	assert.Len(t, hits, SearchLimit)
}

func TestFulltextSearch_Concurrent(t *testing.T) {
	s := newTestStore(t, newTestClock())
	seedTodos(t, s, "walk dog", "walk cat")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, err := s.FulltextSearch(context.Background(), "walking")
			assert.NoError(t, err)
			assert.Len(t, hits, 2)
			// Results are private copies.
			if len(hits) > 0 {
				hits[0].Content = "mutated"
			}
		}()
	}
	wg.Wait()

	hits, err := s.FulltextSearch(context.Background(), "walk")
	require.NoError(t, err)
	for _, h := range hits {
		assert.NotEqual(t, "mutated", h.Content)
	}
}

func TestRankMatches(t *testing.T) {
	scores := map[string]int{"a": 1, "b": 3, "c": 2, "d": 3, "e": 2}

	assert.Equal(t, []string{"b", "d", "c", "e"}, rankMatches(scores, 3, 20))
	assert.Equal(t, []string{"b", "d"}, rankMatches(scores, 4, 20))
	assert.Equal(t, []string{"b", "d", "c"}, rankMatches(scores, 3, 3))
	assert.Empty(t, rankMatches(scores, 6, 20))
	assert.Empty(t, rankMatches(map[string]int{}, 1, 20))
}

func TestFulltextSearch_AbandonedCallerDoesNotFailOthers(t *testing.T) {
	s := newTestStore(t, newTestClock())
	seeded := seedTodos(t, s, "walk dog")

	// Hold the only connection so both searches queue behind it.
	busy, err := s.db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	impatientCtx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	impatient := make(chan error, 1)
	go func() {
		_, err := s.FulltextSearch(impatientCtx, "walk")
		impatient <- err
	}()

	time.Sleep(20 * time.Millisecond)
	type result struct {
		hits []Todo
		err  error
	}
	patient := make(chan result, 1)
	go func() {
		hits, err := s.FulltextSearch(context.Background(), "walk")
		patient <- result{hits, err}
	}()

	assert.ErrorIs(t, <-impatient, context.DeadlineExceeded)
	require.NoError(t, busy.Rollback())

	select {
	case r := <-patient:
		require.NoError(t, r.err)
		assert.Equal(t, []string{seeded[0].ID}, ids(r.hits))
	case <-time.After(5 * time.Second):
		t.Fatal("search never completed after the connection was released")
	}
}
