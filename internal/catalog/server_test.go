package catalog

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlobby/openlobby/internal/config"
	"github.com/openlobby/openlobby/internal/protocol"
)

// startServer serves a fresh store on 127.0.0.1:0 and returns a client
// pointed at it.
func startServer(t *testing.T) *Client {
	t.Helper()

	store, err := Open(t.TempDir())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(config.DefaultCatalog(), store)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	port := ln.Addr().(*net.TCPAddr).Port
	return NewClient("127.0.0.1", port)
}

func TestServerInsertAndFindOne(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	resp, err := client.Do(ctx, "insert", "User", map[string]any{
		"username": "alice", "account_type": "player",
	})
	require.NoError(t, err)
	require.True(t, resp.Bool("success"))
	id := resp.Str("id")
	require.NotEmpty(t, id)

	resp, err = client.Do(ctx, "find_one", "User", map[string]any{
		"query": map[string]any{"_id": id},
	})
	require.NoError(t, err)
	require.True(t, resp.Bool("success"))
	assert.Equal(t, "alice", resp.Sub("result").Str("username"))
}

func TestServerFindReturnsEmptySlice(t *testing.T) {
	client := startServer(t)

	resp, err := client.Do(context.Background(), "find", "Game", map[string]any{
		"query": map[string]any{"status": "active"},
	})
	require.NoError(t, err)
	require.True(t, resp.Bool("success"))

	results, ok := resp["results"].([]any)
	require.True(t, ok)
	assert.Empty(t, results)
}

func TestServerFindOneNotFound(t *testing.T) {
	client := startServer(t)

	resp, err := client.Do(context.Background(), "find_one", "User", map[string]any{
		"query": map[string]any{"username": "ghost"},
	})
	require.NoError(t, err)
	assert.False(t, resp.Bool("success"))
	assert.Equal(t, protocol.ErrNotFound, resp.Str("error"))
}

func TestServerUpdateAndDelete(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	resp, err := client.Do(ctx, "insert", "Game", map[string]any{"name": "Pong", "status": "active"})
	require.NoError(t, err)
	id := resp.Str("id")

	resp, err = client.Do(ctx, "update", "Game", map[string]any{
		"query":  map[string]any{"_id": id},
		"update": map[string]any{"status": "removed"},
	})
	require.NoError(t, err)
	require.True(t, resp.Bool("success"))
	assert.Equal(t, 1, resp.Int("count"))

	resp, err = client.Do(ctx, "delete", "Game", map[string]any{
		"query": map[string]any{"_id": id},
	})
	require.NoError(t, err)
	require.True(t, resp.Bool("success"))
	assert.Equal(t, 1, resp.Int("count"))
}

func TestServerRejectsUnknownCollection(t *testing.T) {
	client := startServer(t)

	resp, err := client.Do(context.Background(), "insert", "Widget", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.False(t, resp.Bool("success"))
	assert.Equal(t, protocol.ErrInvalidRequest, resp.Str("error"))
}

func TestServerRejectsUnknownAction(t *testing.T) {
	client := startServer(t)

	resp, err := client.Do(context.Background(), "upsert", "User", nil)
	require.NoError(t, err)
	assert.False(t, resp.Bool("success"))
	assert.Equal(t, protocol.ErrInvalidRequest, resp.Str("error"))
	assert.Equal(t, "Unknown action", resp.Str("message"))
}

func TestServerInsertDropsQueryKey(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	resp, err := client.Do(ctx, "insert", "Game", map[string]any{
		"name":  "Pong",
		"query": map[string]any{"status": "active"},
	})
	require.NoError(t, err)
	require.True(t, resp.Bool("success"))

	resp, err = client.Do(ctx, "find_one", "Game", map[string]any{
		"query": map[string]any{"_id": resp.Str("id")},
	})
	require.NoError(t, err)
	require.True(t, resp.Bool("success"))
	assert.Equal(t, "Pong", resp.Sub("result").Str("name"))
	assert.False(t, resp.Sub("result").Has("query"))
}

func TestServerReportsStorageFailure(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "Game.json.tmp"), 0o755))

	srv := NewServer(config.DefaultCatalog(), store)

	resp := srv.process(protocol.Message{
		"action":     "insert",
		"collection": "Game",
		"data":       map[string]any{"name": "Pong"},
	})
	assert.False(t, resp.Bool("success"))
	assert.Equal(t, protocol.ErrInternal, resp.Str("error"))
	assert.Equal(t, "Storage failure", resp.Str("message"))

	// the mutation stays visible despite the failed save
	resp = srv.process(protocol.Message{
		"action":     "find_one",
		"collection": "Game",
		"data":       map[string]any{"query": map[string]any{"name": "Pong"}},
	})
	require.True(t, resp.Bool("success"))
	assert.Equal(t, "Pong", resp.Sub("result").Str("name"))
}

func TestServerHandlesSequentialRequests(t *testing.T) {
	client := startServer(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		resp, err := client.Do(ctx, "insert", "Review", map[string]any{"rating": i + 1})
		require.NoError(t, err)
		require.True(t, resp.Bool("success"))
	}

	resp, err := client.Do(ctx, "find", "Review", nil)
	require.NoError(t, err)
	results, ok := resp["results"].([]any)
	require.True(t, ok)
	assert.Len(t, results, 3)
}
