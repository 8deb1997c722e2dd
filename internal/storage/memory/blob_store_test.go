package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStorePutObject(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	url, err := store.PutObject(context.Background(), "previews/obj-1.png", "image/png", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "memory://previews/obj-1.png", url)

	data, ok := store.Object("previews/obj-1.png")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, data)
	assert.Equal(t, 1, store.Len())
}

func TestBlobStoreRequiresPath(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	_, err := store.PutObject(context.Background(), "", "image/png", nil)
	assert.Error(t, err)
}

func TestBlobStoreCopiesData(t *testing.T) {
	t.Parallel()

	store := NewBlobStore()
	data := []byte{1, 2, 3}
	_, err := store.PutObject(context.Background(), "obj", "image/png", data)
	require.NoError(t, err)

	data[0] = 9
	stored, _ := store.Object("obj")
	assert.Equal(t, []byte{1, 2, 3}, stored)
}
