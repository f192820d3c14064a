package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100

	cursorSep = "|"
)

var errCursorFormat = errors.New("invalid cursor format")

// Params is a keyset page request: newest first, continuing after Cursor.
type Params struct {
	Limit  int
	Cursor string
}

// PageSize clamps Limit into 1..MaxLimit, defaulting to DefaultLimit.
func (p Params) PageSize() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// FetchSize is PageSize plus the lookahead row that proves another page exists.
func (p Params) FetchSize() int {
	return p.PageSize() + 1
}

// After decodes Cursor; a blank cursor means the first page and returns nil.
func (p Params) After() (*Cursor, error) {
	return ParseCursor(p.Cursor)
}

// Cursor is the (created_at, id) position of the last row already returned.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// EncodeCursor renders an unpadded URL-safe token for query strings.
func EncodeCursor(c Cursor) string {
	raw := c.CreatedAt.UTC().Format(time.RFC3339Nano) + cursorSep + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(value, "="))
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	at, id, ok := strings.Cut(string(decoded), cursorSep)
	if !ok {
		return nil, errCursorFormat
	}

	createdAt, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		return nil, fmt.Errorf("cursor timestamp: %w", err)
	}
	rowID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("cursor id: %w", err)
	}
	return &Cursor{CreatedAt: createdAt.UTC(), ID: rowID}, nil
}

// Trim cuts a result fetched with FetchSize down to PageSize. When the
// lookahead row was present it returns the cursor of the last kept row.
func Trim[T any](rows []T, p Params, position func(T) Cursor) ([]T, string) {
	size := p.PageSize()
	if len(rows) <= size {
		return rows, ""
	}
	rows = rows[:size]
	return rows, EncodeCursor(position(rows[size-1]))
}
