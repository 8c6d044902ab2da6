package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCursor(t *testing.T) {
	t.Run("round trip preserves id and timestamp", func(t *testing.T) {
		ts := time.Date(2026, 3, 1, 12, 30, 45, 123456789, time.UTC)

		encoded := EncodeCursor("kb-42", ts)
		decoded, err := DecodeCursor(encoded)

		require.NoError(t, err)
		assert.Equal(t, "kb-42", decoded.LastID)
		assert.True(t, decoded.Timestamp.Equal(ts))
	})

	t.Run("empty id encodes to empty string", func(t *testing.T) {
		assert.Empty(t, EncodeCursor("", time.Now()))
	})

	t.Run("empty cursor decodes to nil", func(t *testing.T) {
		decoded, err := DecodeCursor("")
		require.NoError(t, err)
		assert.Nil(t, decoded)
	})

	t.Run("ids containing the separator are rejected on decode", func(t *testing.T) {
		ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		_, err := DecodeCursor(EncodeCursor("a|b", ts))

		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("garbage input", func(t *testing.T) {
		for _, cursor := range []string{
			"!!not-base64!!",
			base64.StdEncoding.EncodeToString([]byte("no-separator")),
			base64.StdEncoding.EncodeToString([]byte("id|not-a-time")),
		} {
			_, err := DecodeCursor(cursor)
			assert.ErrorIs(t, err, ErrInvalidCursor, cursor)
		}
	})
}

func TestNextCursor(t *testing.T) {
	type row struct {
		id string
		ts time.Time
	}
	getID := func(r row) string { return r.id }
	getTS := func(r row) time.Time { return r.ts }
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("full page points at the last item", func(t *testing.T) {
		items := []row{{"a", ts}, {"b", ts.Add(time.Minute)}}

		cursor := NextCursor(items, 2, getID, getTS)

		require.NotEmpty(t, cursor)
		decoded, err := DecodeCursor(cursor)
		require.NoError(t, err)
		assert.Equal(t, "b", decoded.LastID)
	})

	t.Run("short page has no next cursor", func(t *testing.T) {
		assert.Empty(t, NextCursor([]row{{"a", ts}}, 2, getID, getTS))
	})

	t.Run("empty page has no next cursor", func(t *testing.T) {
		assert.Empty(t, NextCursor(nil, 2, getID, getTS))
	})
}
