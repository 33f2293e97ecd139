package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPingsServer(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := New(context.Background(), Options{Addr: srv.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	srv.CheckGet(t, "k", "v")
}

func TestNewReportsUnreachableServer(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	client, err := New(context.Background(), Options{Addr: addr})
	assert.Error(t, err)
	require.NotNil(t, client)
	_ = client.Close()
}
