package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	return s, dir
}

func TestInsertAssignsIDAndTimestamp(t *testing.T) {
	s, _ := openStore(t)

	id, err := s.Insert("User", map[string]any{"username": "alice"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := s.FindOne("User", map[string]any{"_id": id})
	require.NoError(t, err)
	assert.Equal(t, "alice", doc["username"])

	created, ok := doc["created_at"].(string)
	require.True(t, ok)
	_, err = time.Parse(time.RFC3339, created)
	assert.NoError(t, err)
}

func TestInsertKeepsProvidedID(t *testing.T) {
	s, _ := openStore(t)

	id, err := s.Insert("Game", map[string]any{"_id": "fixed", "name": "Pong"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", id)
}

func TestFindEqualitySemantics(t *testing.T) {
	s, _ := openStore(t)

	for _, doc := range []map[string]any{
		{"name": "Pong", "status": "active"},
		{"name": "Breakout", "status": "active"},
		{"name": "Asteroids", "status": "removed"},
	} {
		_, err := s.Insert("Game", doc)
		require.NoError(t, err)
	}

	active, err := s.Find("Game", map[string]any{"status": "active"})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	all, err := s.Find("Game", nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := s.Find("Game", map[string]any{"status": "archived"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestFindNumberNormalization(t *testing.T) {
	s, dir := openStore(t)

	_, err := s.Insert("Review", map[string]any{"game_id": "g1", "rating": 4})
	require.NoError(t, err)

	// reload so the stored int comes back as a float64
	reopened, err := Open(dir)
	require.NoError(t, err)

	got, err := reopened.Find("Review", map[string]any{"rating": 4})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFindOneNotFound(t *testing.T) {
	s, _ := openStore(t)

	_, err := s.FindOne("User", map[string]any{"username": "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnknownCollection(t *testing.T) {
	s, _ := openStore(t)

	_, err := s.Insert("Widget", map[string]any{})
	assert.ErrorIs(t, err, ErrUnknownCollection)
	_, err = s.Find("Widget", nil)
	assert.ErrorIs(t, err, ErrUnknownCollection)
}

func TestUpdateMergesAndStamps(t *testing.T) {
	s, _ := openStore(t)

	id, err := s.Insert("Game", map[string]any{"name": "Pong", "status": "active"})
	require.NoError(t, err)

	count, err := s.Update("Game", map[string]any{"_id": id}, map[string]any{"status": "removed"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	doc, err := s.FindOne("Game", map[string]any{"_id": id})
	require.NoError(t, err)
	assert.Equal(t, "removed", doc["status"])
	assert.Equal(t, "Pong", doc["name"])
	assert.NotEmpty(t, doc["updated_at"])
}

func TestUpdateNoMatch(t *testing.T) {
	s, _ := openStore(t)

	count, err := s.Update("Game", map[string]any{"name": "nope"}, map[string]any{"status": "x"})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDelete(t *testing.T) {
	s, _ := openStore(t)

	_, err := s.Insert("Room", map[string]any{"game": "Pong"})
	require.NoError(t, err)
	_, err = s.Insert("Room", map[string]any{"game": "Pong"})
	require.NoError(t, err)

	count, err := s.Delete("Room", map[string]any{"game": "Pong"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	left, err := s.Find("Room", nil)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestPersistenceSurvivesReopen(t *testing.T) {
	s, dir := openStore(t)

	id, err := s.Insert("User", map[string]any{"username": "bob", "account_type": "player"})
	require.NoError(t, err)

	reopened, err := Open(dir)
	require.NoError(t, err)

	doc, err := reopened.FindOne("User", map[string]any{"_id": id})
	require.NoError(t, err)
	assert.Equal(t, "bob", doc["username"])
}

func TestFindReturnsDetachedDocuments(t *testing.T) {
	s, _ := openStore(t)

	id, err := s.Insert("Game", map[string]any{
		"name": "Pong",
		"meta": map[string]any{"tags": []any{"retro"}},
	})
	require.NoError(t, err)

	doc, err := s.FindOne("Game", map[string]any{"_id": id})
	require.NoError(t, err)
	doc["name"] = "Hacked"
	doc["meta"].(map[string]any)["tags"] = []any{"mangled"}

	fresh, err := s.FindOne("Game", map[string]any{"_id": id})
	require.NoError(t, err)
	assert.Equal(t, "Pong", fresh["name"])
	assert.Equal(t, []any{"retro"}, fresh["meta"].(map[string]any)["tags"])
}

func TestConcurrentReadAndUpdate(t *testing.T) {
	s, _ := openStore(t)

	id, err := s.Insert("Game", map[string]any{
		"name": "Pong",
		"meta": map[string]any{"round": 0},
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 300; i++ {
			_, _ = s.Update("Game",
				map[string]any{"_id": id},
				map[string]any{"round": i, "meta": map[string]any{"round": i}})
		}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 300; i++ {
			results, err := s.Find("Game", nil)
			if err != nil {
				return
			}
			// serialize outside the store lock, the way the wire path does
			if _, err := json.Marshal(results); err != nil {
				return
			}
		}
	}()
	wg.Wait()

	doc, err := s.FindOne("Game", map[string]any{"_id": id})
	require.NoError(t, err)
	assert.Equal(t, "Pong", doc["name"])
}

func TestPersistFailureKeepsMutation(t *testing.T) {
	s, dir := openStore(t)

	// a directory squatting on the temp path makes every save fail
	require.NoError(t, os.Mkdir(filepath.Join(dir, "User.json.tmp"), 0o755))

	id, err := s.Insert("User", map[string]any{"username": "alice"})
	require.ErrorIs(t, err, ErrPersist)
	require.NotEmpty(t, id)

	// the in-memory document survives the failed save
	doc, err := s.FindOne("User", map[string]any{"_id": id})
	require.NoError(t, err)
	assert.Equal(t, "alice", doc["username"])

	count, err := s.Update("User", map[string]any{"_id": id}, map[string]any{"username": "alicia"})
	assert.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, 1, count)
	doc, err = s.FindOne("User", map[string]any{"_id": id})
	require.NoError(t, err)
	assert.Equal(t, "alicia", doc["username"])
}

func TestOnDiskShapeIsKeyedByID(t *testing.T) {
	s, dir := openStore(t)

	id, err := s.Insert("Game", map[string]any{"name": "Pong"})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "Game.json"))
	require.NoError(t, err)

	var onDisk map[string]map[string]any
	require.NoError(t, json.Unmarshal(data, &onDisk))
	require.Contains(t, onDisk, id)
	assert.Equal(t, id, onDisk[id]["_id"])

	// no temp file left behind after the rename
	_, err = os.Stat(filepath.Join(dir, "Game.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}
