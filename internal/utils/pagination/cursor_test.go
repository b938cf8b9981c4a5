package pagination_test

import (
	"testing"

	"github.com/kindredapp/engine/internal/utils/pagination"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	token, err := pagination.Encode(pagination.Cursor{ActorID: 42, UpdatedUnix: 1700000000000})
	require.NoError(t, err)

	c, err := pagination.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), c.ActorID)
	assert.Equal(t, int64(1700000000000), c.UpdatedUnix)
}

func TestDecodeEmptyTokenIsFirstPage(t *testing.T) {
	c, err := pagination.Decode("")
	require.NoError(t, err)
	assert.Equal(t, pagination.Cursor{}, c)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := pagination.Decode("not-base64!!")
	assert.Error(t, err)
}
