// Package db gives the Gateway and Lobby a typed view of the Catalog
// Store. Handlers depend on the Repository interface so tests can run
// against an in-memory implementation.
package db

import (
	"context"

	"github.com/openlobby/openlobby/internal/model"
)

// Repository is the domain-level access to persisted records. Lookup
// methods return (nil, nil) when no record matches; errors mean the catalog
// itself failed.
type Repository interface {
	// Users
	FindUser(ctx context.Context, username, accountType string) (*model.User, error)
	CreateUser(ctx context.Context, u *model.User) (string, error)

	// Games
	FindGameByName(ctx context.Context, name string) (*model.Game, error)
	FindActiveGameByName(ctx context.Context, name string) (*model.Game, error)
	FindActiveGameByID(ctx context.Context, id string) (*model.Game, error)
	FindOwnedGame(ctx context.Context, name, developerID string) (*model.Game, error)
	ListActiveGames(ctx context.Context) ([]model.Game, error)
	ListGamesByDeveloper(ctx context.Context, developerID string) ([]model.Game, error)
	CreateGame(ctx context.Context, g *model.Game) (string, error)
	UpdateGame(ctx context.Context, id string, fields map[string]any) error

	// Versions
	FindVersion(ctx context.Context, gameID, version string) (*model.Version, error)
	CreateVersion(ctx context.Context, v *model.Version) (string, error)

	// Reviews
	ListReviews(ctx context.Context, gameID string) ([]model.Review, error)
	CreateReview(ctx context.Context, r *model.Review) (string, error)
}
