package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "42", CreatedAt: "2024-01-02T03:04:05Z"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "42", cursor.ID)
	assert.Equal(t, "2024-01-02T03:04:05Z", cursor.CreatedAt)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("not-base64!!")
	assert.Error(t, err)

	_, err = DecodeCursor("aGVsbG8=") // valid base64, not JSON
	assert.Error(t, err)
}

type row struct {
	ID string
}

func TestBuildCursorPageInfo(t *testing.T) {
	extract := func(r *row) string { return r.ID }

	info := BuildCursorPageInfo([]*row{}, 2, extract)
	require.NotNil(t, info)
	assert.False(t, info.HasMore)

	info = BuildCursorPageInfo([]*row{{ID: "1"}, {ID: "2"}}, 2, extract)
	assert.False(t, info.HasMore)
	assert.Equal(t, "2", info.NextPageToken)

	// One row past the limit signals another page.
	info = BuildCursorPageInfo([]*row{{ID: "1"}, {ID: "2"}, {ID: "3"}}, 2, extract)
	assert.True(t, info.HasMore)
	assert.Equal(t, "2", info.NextPageToken)
}
