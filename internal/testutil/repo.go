// Package testutil provides test doubles shared by the server packages.
package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/openlobby/openlobby/internal/model"
)

// MemoryRepository is an in-memory db.Repository for handler tests that do
// not need a live Catalog Store.
type MemoryRepository struct {
	mu       sync.Mutex
	users    []model.User
	games    []model.Game
	versions []model.Version
	reviews  []model.Review
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// SeedGame installs a game with one version row and returns the game id.
func (m *MemoryRepository) SeedGame(g model.Game, filePath string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	m.games = append(m.games, g)
	m.versions = append(m.versions, model.Version{
		ID:       uuid.NewString(),
		GameID:   g.ID,
		Version:  g.LatestVersion,
		FilePath: filePath,
	})
	return g.ID
}

func (m *MemoryRepository) FindUser(_ context.Context, username, accountType string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].Username == username && m.users[i].AccountType == accountType {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) CreateUser(_ context.Context, u *model.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *u
	stored.ID = uuid.NewString()
	m.users = append(m.users, stored)
	return stored.ID, nil
}

func (m *MemoryRepository) findGame(match func(*model.Game) bool) *model.Game {
	for i := range m.games {
		if match(&m.games[i]) {
			g := m.games[i]
			return &g
		}
	}
	return nil
}

func (m *MemoryRepository) FindGameByName(_ context.Context, name string) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findGame(func(g *model.Game) bool { return g.Name == name }), nil
}

func (m *MemoryRepository) FindActiveGameByName(_ context.Context, name string) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findGame(func(g *model.Game) bool { return g.Name == name && g.Status == "active" }), nil
}

func (m *MemoryRepository) FindActiveGameByID(_ context.Context, id string) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findGame(func(g *model.Game) bool { return g.ID == id && g.Status == "active" }), nil
}

func (m *MemoryRepository) FindOwnedGame(_ context.Context, name, developerID string) (*model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findGame(func(g *model.Game) bool { return g.Name == name && g.DeveloperID == developerID }), nil
}

func (m *MemoryRepository) ListActiveGames(_ context.Context) ([]model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Game{}
	for _, g := range m.games {
		if g.Status == "active" {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *MemoryRepository) ListGamesByDeveloper(_ context.Context, developerID string) ([]model.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Game{}
	for _, g := range m.games {
		if g.DeveloperID == developerID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *MemoryRepository) CreateGame(_ context.Context, g *model.Game) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *g
	stored.ID = uuid.NewString()
	m.games = append(m.games, stored)
	return stored.ID, nil
}

func (m *MemoryRepository) UpdateGame(_ context.Context, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.games {
		if m.games[i].ID != id {
			continue
		}
		if v, ok := fields["latest_version"].(string); ok {
			m.games[i].LatestVersion = v
		}
		if v, ok := fields["description"].(string); ok {
			m.games[i].Description = v
		}
		if v, ok := fields["min_players"].(int); ok {
			m.games[i].MinPlayers = v
		}
		if v, ok := fields["max_players"].(int); ok {
			m.games[i].MaxPlayers = v
		}
		if v, ok := fields["status"].(string); ok {
			m.games[i].Status = v
		}
	}
	return nil
}

func (m *MemoryRepository) FindVersion(_ context.Context, gameID, version string) (*model.Version, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.versions {
		if m.versions[i].GameID == gameID && m.versions[i].Version == version {
			v := m.versions[i]
			return &v, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) CreateVersion(_ context.Context, v *model.Version) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *v
	stored.ID = uuid.NewString()
	m.versions = append(m.versions, stored)
	return stored.ID, nil
}

func (m *MemoryRepository) ListReviews(_ context.Context, gameID string) ([]model.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Review{}
	for _, r := range m.reviews {
		if r.GameID == gameID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MemoryRepository) CreateReview(_ context.Context, r *model.Review) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *r
	stored.ID = uuid.NewString()
	m.reviews = append(m.reviews, stored)
	return stored.ID, nil
}
