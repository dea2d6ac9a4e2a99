package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ugorji/go/codec"
)

// Persisted document shapes, one per schema version. Timestamps are Unix
// nanoseconds; an UpdatedAt of zero means "never updated".
//
// Old shapes are only ever read by the migration that upgrades them.

type recordV1 struct {
	ID        string `codec:"id"`
	Content   string `codec:"content"`
	Status    Status `codec:"status"`
	CreatedAt int64  `codec:"created_at"`
	UpdatedAt int64  `codec:"updated_at,omitempty"`
}

type recordV2 struct {
	ID            string   `codec:"id"`
	Content       string   `codec:"content"`
	ContentTokens []string `codec:"content_tokens"`
	Status        Status   `codec:"status"`
	CreatedAt     int64    `codec:"created_at"`
	UpdatedAt     int64    `codec:"updated_at,omitempty"`
}

type recordV3 struct {
	ID            string   `codec:"id"`
	Content       string   `codec:"content"`
	ContentTokens []string `codec:"content_tokens"`
	Status        Status   `codec:"status"`
	Priority      Priority `codec:"priority"`
	CreatedAt     int64    `codec:"created_at"`
	UpdatedAt     int64    `codec:"updated_at,omitempty"`
}

// todoRecord is the shape written by the current code.
type todoRecord = recordV3

var msgpackHandle = &codec.MsgpackHandle{}

func encodeRecord(v any) ([]byte, error) {
	var buf []byte
	if err := codec.NewEncoderBytes(&buf, msgpackHandle).Encode(v); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf, nil
}

func decodeRecord(doc []byte, v any) error {
	if err := codec.NewDecoderBytes(doc, msgpackHandle).Decode(v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

// newID returns a UUIDv7. Its canonical text form sorts lexically in
// creation order.
func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}

func (r todoRecord) toTodo() Todo {
	t := Todo{
		ID:            r.ID,
		Content:       r.Content,
		ContentTokens: append([]string(nil), r.ContentTokens...),
		Status:        r.Status,
		Priority:      r.Priority,
		CreatedAt:     time.Unix(0, r.CreatedAt),
	}
	if r.UpdatedAt != 0 {
		u := time.Unix(0, r.UpdatedAt)
		t.UpdatedAt = &u
	}
	return t
}

func cloneTodos(todos []Todo) []Todo {
	out := make([]Todo, len(todos))
	for i, t := range todos {
		t.ContentTokens = append([]string(nil), t.ContentTokens...)
		if t.UpdatedAt != nil {
			u := *t.UpdatedAt
			t.UpdatedAt = &u
		}
		out[i] = t
	}
	return out
}
