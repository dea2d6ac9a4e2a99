package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tododay/tododay/internal/fulltext"
	"github.com/tododay/tododay/internal/observability"
)

// SchemaVersion is the on-disk layout version, stored in PRAGMA user_version.
type SchemaVersion int

const (
	SchemaEmpty SchemaVersion = iota
	// SchemaV1: todos collection keyed by id, indexed by created_at and status.
	SchemaV1
	// SchemaV2: adds the multi-valued content token index; documents carry
	// content_tokens.
	SchemaV2
	// SchemaV3: documents carry priority.
	SchemaV3

	CurrentSchemaVersion = SchemaV3
)

// migrationBatchSize bounds how many documents a backfill holds in memory.
const migrationBatchSize = 256

// migration upgrades the layout from to-1 to to.
type migration struct {
	to    SchemaVersion
	name  string
	apply func(ctx context.Context, tx *sql.Tx) (rewritten int, err error)
}

var migrations = []migration{
	{to: SchemaV1, name: "create todos collection", apply: createTodos},
	{to: SchemaV2, name: "index content tokens", apply: indexContentTokens},
	{to: SchemaV3, name: "backfill priority", apply: backfillPriority},
}

func createTodos(ctx context.Context, tx *sql.Tx) (int, error) {
	_, err := tx.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS todos (
		id         TEXT PRIMARY KEY,
		doc        BLOB NOT NULL,
		status     TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_todos_created_at ON todos(created_at);
	CREATE INDEX IF NOT EXISTS idx_todos_status ON todos(status);`)
	return 0, err
}

func indexContentTokens(ctx context.Context, tx *sql.Tx) (int, error) {
	_, err := tx.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS todo_content_tokens (
		token   TEXT NOT NULL,
		todo_id TEXT NOT NULL,
		PRIMARY KEY (token, todo_id)
	) WITHOUT ROWID;
	CREATE INDEX IF NOT EXISTS idx_todo_content_tokens_todo_id ON todo_content_tokens(todo_id);`)
	if err != nil {
		return 0, err
	}

	return rewriteRecords(ctx, tx, func(doc []byte) (any, []string, error) {
		var old recordV1
		if err := decodeRecord(doc, &old); err != nil {
			return nil, nil, err
		}
		upgraded := upgradeV1(old)
		return upgraded, upgraded.ContentTokens, nil
	})
}

func backfillPriority(ctx context.Context, tx *sql.Tx) (int, error) {
	return rewriteRecords(ctx, tx, func(doc []byte) (any, []string, error) {
		var old recordV2
		if err := decodeRecord(doc, &old); err != nil {
			return nil, nil, err
		}
		upgraded := upgradeV2(old)
		return upgraded, upgraded.ContentTokens, nil
	})
}

func upgradeV1(r recordV1) recordV2 {
	return recordV2{
		ID:            r.ID,
		Content:       r.Content,
		ContentTokens: fulltext.IndexTokens(r.Content),
		Status:        r.Status,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func upgradeV2(r recordV2) recordV3 {
	return recordV3{
		ID:            r.ID,
		Content:       r.Content,
		ContentTokens: r.ContentTokens,
		Status:        r.Status,
		Priority:      PriorityNormal,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// rewriteRecords walks every document in id order, a batch at a time, and
// replaces it (and its token index rows) with the output of upgrade.
func rewriteRecords(ctx context.Context, tx *sql.Tx, upgrade func(doc []byte) (any, []string, error)) (int, error) {
	type row struct {
		id  string
		doc []byte
	}

	rewritten := 0
	after := ""
	for {
		rows, err := tx.QueryContext(ctx,
			"SELECT id, doc FROM todos WHERE id > ? ORDER BY id LIMIT ?",
			after, migrationBatchSize,
		)
		if err != nil {
			return rewritten, err
		}
		var batch []row
		for rows.Next() {
			var r row
			if err := rows.Scan(&r.id, &r.doc); err != nil {
				rows.Close()
				return rewritten, err
			}
			batch = append(batch, r)
		}
		if err := rows.Close(); err != nil {
			return rewritten, err
		}
		if err := rows.Err(); err != nil {
			return rewritten, err
		}
		if len(batch) == 0 {
			return rewritten, nil
		}

		for _, r := range batch {
			next, tokens, err := upgrade(r.doc)
			if err != nil {
				return rewritten, fmt.Errorf("todo %s: %w", r.id, err)
			}
			doc, err := encodeRecord(next)
			if err != nil {
				return rewritten, fmt.Errorf("todo %s: %w", r.id, err)
			}
			if _, err := tx.ExecContext(ctx, "UPDATE todos SET doc = ? WHERE id = ?", doc, r.id); err != nil {
				return rewritten, fmt.Errorf("todo %s: %w", r.id, err)
			}
			if err := replaceTokens(ctx, tx, r.id, tokens); err != nil {
				return rewritten, fmt.Errorf("todo %s: %w", r.id, err)
			}
			rewritten++
		}
		after = batch[len(batch)-1].id
	}
}

func schemaVersion(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}) (SchemaVersion, error) {
	var v int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return SchemaVersion(v), nil
}

// migrate brings the layout up to target in a single transaction. Either
// every pending step commits together with the new version number, or
// nothing does and the next open starts over.
func migrate(ctx context.Context, db *sql.DB, target SchemaVersion, log *observability.Logger) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrMigration, err)
	}
	defer tx.Rollback()

	from, err := schemaVersion(ctx, tx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMigration, err)
	}
	if from > CurrentSchemaVersion {
		return fmt.Errorf("%w: stored layout v%d is newer than supported v%d", ErrMigration, from, CurrentSchemaVersion)
	}
	if from >= target {
		return nil
	}

	for _, m := range migrations {
		if m.to <= from || m.to > target {
			continue
		}
		n, err := m.apply(ctx, tx)
		if err != nil {
			return fmt.Errorf("%w: v%d %s: %w", ErrMigration, m.to, m.name, err)
		}
		log.Migration(int(m.to-1), int(m.to), m.name, n)
	}

	// PRAGMA does not take bound parameters; target is a small integer.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", target)); err != nil {
		return fmt.Errorf("%w: write schema version: %w", ErrMigration, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrMigration, err)
	}
	return nil
}
