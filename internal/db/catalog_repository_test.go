package db

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlobby/openlobby/internal/catalog"
	"github.com/openlobby/openlobby/internal/config"
	"github.com/openlobby/openlobby/internal/constants"
	"github.com/openlobby/openlobby/internal/model"
)

func startRepo(t *testing.T) *CatalogRepository {
	t.Helper()

	store, err := catalog.Open(t.TempDir())
	require.NoError(t, err)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := catalog.NewServer(config.DefaultCatalog(), store)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return NewCatalogRepository(catalog.NewClient("127.0.0.1", ln.Addr().(*net.TCPAddr).Port))
}

func TestUserRoundTrip(t *testing.T) {
	repo := startRepo(t)
	ctx := context.Background()

	id, err := repo.CreateUser(ctx, &model.User{
		Username:     "alice",
		PasswordHash: "h",
		AccountType:  constants.AccountPlayer,
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	user, err := repo.FindUser(ctx, "alice", constants.AccountPlayer)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "alice", user.Username)

	// the developer namespace is separate
	user, err = repo.FindUser(ctx, "alice", constants.AccountDeveloper)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestGameLookups(t *testing.T) {
	repo := startRepo(t)
	ctx := context.Background()

	id, err := repo.CreateGame(ctx, &model.Game{
		Name:          "Skirmish",
		DeveloperID:   "dev-1",
		LatestVersion: "1.0",
		MinPlayers:    2,
		MaxPlayers:    4,
		Status:        constants.GameActive,
	})
	require.NoError(t, err)

	game, err := repo.FindActiveGameByName(ctx, "Skirmish")
	require.NoError(t, err)
	require.NotNil(t, game)
	assert.Equal(t, id, game.ID)
	assert.Equal(t, 4, game.MaxPlayers)

	game, err = repo.FindActiveGameByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, game)

	game, err = repo.FindOwnedGame(ctx, "Skirmish", "dev-1")
	require.NoError(t, err)
	require.NotNil(t, game)
	game, err = repo.FindOwnedGame(ctx, "Skirmish", "dev-2")
	require.NoError(t, err)
	assert.Nil(t, game)

	require.NoError(t, repo.UpdateGame(ctx, id, map[string]any{"status": constants.GameRemoved}))

	// delisted games drop out of the active lookups but not the name lookup
	game, err = repo.FindActiveGameByName(ctx, "Skirmish")
	require.NoError(t, err)
	assert.Nil(t, game)
	game, err = repo.FindGameByName(ctx, "Skirmish")
	require.NoError(t, err)
	require.NotNil(t, game)
	assert.Equal(t, constants.GameRemoved, game.Status)

	active, err := repo.ListActiveGames(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	mine, err := repo.ListGamesByDeveloper(ctx, "dev-1")
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestVersionAndReviewRoundTrip(t *testing.T) {
	repo := startRepo(t)
	ctx := context.Background()

	_, err := repo.CreateVersion(ctx, &model.Version{GameID: "g1", Version: "1.0", FilePath: "Skirmish_1.0"})
	require.NoError(t, err)

	ver, err := repo.FindVersion(ctx, "g1", "1.0")
	require.NoError(t, err)
	require.NotNil(t, ver)
	assert.Equal(t, "Skirmish_1.0", ver.FilePath)

	ver, err = repo.FindVersion(ctx, "g1", "9.9")
	require.NoError(t, err)
	assert.Nil(t, ver)

	_, err = repo.CreateReview(ctx, &model.Review{GameID: "g1", PlayerID: "p1", PlayerName: "alice", Rating: 5})
	require.NoError(t, err)
	_, err = repo.CreateReview(ctx, &model.Review{GameID: "g1", PlayerID: "p1", PlayerName: "alice", Rating: 4})
	require.NoError(t, err)

	reviews, err := repo.ListReviews(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	none, err := repo.ListReviews(ctx, "g2")
	require.NoError(t, err)
	assert.Empty(t, none)
}
