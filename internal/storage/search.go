package storage

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tododay/tododay/internal/fulltext"
	"github.com/tododay/tododay/internal/observability"
)

// FulltextSearch looks every query token up in the content token index and
// scores each todo by how many distinct query tokens it contains. Todos
// scoring more than half the query tokens are returned, highest score
// first, ties in id (creation) order, at most SearchLimit of them.
//
// A query with no index tokens (blank, or only stopwords) returns no todos.
func (s *SQLiteStore) FulltextSearch(ctx context.Context, query string) (todos []Todo, err error) {
	defer s.observe("search", time.Now(), &err)

	tokens := fulltext.IndexTokens(query)
	if len(tokens) == 0 {
		return []Todo{}, nil
	}

	// Concurrent identical searches share one index walk. The walk is
	// detached from any single caller; each caller waits on its own ctx.
	key := slices.Clone(tokens)
	slices.Sort(key)
	walkCtx := context.WithoutCancel(ctx)
	ch := s.searches.DoChan(strings.Join(key, " "), func() (any, error) {
		return s.search(walkCtx, tokens)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("search: %w", ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, storageErr("search", res.Err)
	}

	todos = cloneTodos(res.Val.([]Todo))
	s.log.Debug("search", "tokens", tokens, "hits", len(todos))
	if s.metrics != nil {
		s.metrics.Observe(observability.SeriesSearchHits, float64(len(todos)))
	}
	return todos, nil
}

func (s *SQLiteStore) search(ctx context.Context, tokens []string) ([]Todo, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	scores := make(map[string]int)
	for _, token := range tokens {
		ids, err := lookupToken(ctx, tx, token)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			scores[id]++
		}
	}

	ranked := rankMatches(scores, len(tokens), SearchLimit)

	todos := make([]Todo, 0, len(ranked))
	for _, id := range ranked {
		rec, err := getRecord(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		todos = append(todos, rec.toTodo())
	}
	return todos, nil
}

// lookupToken returns the ids of todos whose content has token.
func lookupToken(ctx context.Context, tx *sql.Tx, token string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, "SELECT todo_id FROM todo_content_tokens WHERE token = ?", token)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// rankMatches keeps ids whose score is strictly greater than
// floor(queryTokens/2), orders them by score descending then id ascending,
// and truncates to limit.
func rankMatches(scores map[string]int, queryTokens, limit int) []string {
	minScore := queryTokens / 2

	type match struct {
		id    string
		score int
	}
	matches := make([]match, 0, len(scores))
	for id, score := range scores {
		if score > minScore {
			matches = append(matches, match{id, score})
		}
	}

	slices.SortFunc(matches, func(a, b match) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.id
	}
	return ids
}
