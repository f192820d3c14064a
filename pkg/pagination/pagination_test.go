package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestParamsPageSize(t *testing.T) {
	require.Equal(t, DefaultLimit, Params{}.PageSize())
	require.Equal(t, DefaultLimit, Params{Limit: -3}.PageSize())
	require.Equal(t, 7, Params{Limit: 7}.PageSize())
	require.Equal(t, MaxLimit, Params{Limit: MaxLimit + 50}.PageSize())
	require.Equal(t, 8, Params{Limit: 7}.FetchSize())
}

func TestTrimReturnsCursorOnlyWhenLookaheadPresent(t *testing.T) {
	at := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	position := func(id uuid.UUID) Cursor { return Cursor{CreatedAt: at, ID: id} }

	page, next := Trim(ids, Params{Limit: 2}, position)
	require.Equal(t, ids[:2], page)
	require.Equal(t, EncodeCursor(Cursor{CreatedAt: at, ID: ids[1]}), next)

	page, next = Trim(ids[:2], Params{Limit: 2}, position)
	require.Len(t, page, 2)
	require.Empty(t, next)
}

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 30, 0, 123456789, time.FixedZone("ICT", 7*60*60))
	id := uuid.New()

	encoded := EncodeCursor(Cursor{CreatedAt: at, ID: id})
	require.NotContains(t, encoded, "=")
	require.NotContains(t, encoded, "+")
	require.NotContains(t, encoded, "/")

	decoded, err := ParseCursor(encoded)
	require.NoError(t, err)
	require.True(t, at.Equal(decoded.CreatedAt))
	require.Equal(t, time.UTC, decoded.CreatedAt.Location())
	require.Equal(t, id, decoded.ID)
}

func TestParseCursorEmpty(t *testing.T) {
	cursor, err := ParseCursor("   ")
	require.NoError(t, err)
	require.Nil(t, cursor)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"not base64":    "%%%",
		"no separator":  base64.RawURLEncoding.EncodeToString([]byte("2026-10-15T00:00:00Z")),
		"bad timestamp": base64.RawURLEncoding.EncodeToString([]byte("yesterday|" + uuid.NewString())),
		"bad id":        base64.RawURLEncoding.EncodeToString([]byte("2026-10-15T00:00:00Z|nope")),
	}
	for name, value := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCursor(value)
			require.Error(t, err)
		})
	}
}
