package db

import (
	"context"
	"fmt"

	"github.com/openlobby/openlobby/internal/catalog"
	"github.com/openlobby/openlobby/internal/constants"
	"github.com/openlobby/openlobby/internal/model"
	"github.com/openlobby/openlobby/internal/protocol"
)

// Collection names in the Catalog Store.
const (
	colUser    = "User"
	colGame    = "Game"
	colVersion = "Version"
	colReview  = "Review"
)

// CatalogRepository implements Repository over the Catalog TCP client.
type CatalogRepository struct {
	client *catalog.Client
}

// NewCatalogRepository wraps a catalog client.
func NewCatalogRepository(client *catalog.Client) *CatalogRepository {
	return &CatalogRepository{client: client}
}

// findOne returns (nil, nil) when the catalog reports NotFound.
func (r *CatalogRepository) findOne(ctx context.Context, collection string, query map[string]any) (map[string]any, error) {
	resp, err := r.client.Do(ctx, "find_one", collection, map[string]any{"query": query})
	if err != nil {
		return nil, err
	}
	if !resp.Bool("success") {
		if resp.Str("error") == protocol.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog find_one %s: %s", collection, resp.Str("message"))
	}
	return map[string]any(resp.Sub("result")), nil
}

func (r *CatalogRepository) find(ctx context.Context, collection string, query map[string]any) ([]map[string]any, error) {
	resp, err := r.client.Do(ctx, "find", collection, map[string]any{"query": query})
	if err != nil {
		return nil, err
	}
	if !resp.Bool("success") {
		return nil, fmt.Errorf("catalog find %s: %s", collection, resp.Str("message"))
	}
	raw, _ := resp["results"].([]any)
	docs := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		if doc, ok := item.(map[string]any); ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (r *CatalogRepository) insert(ctx context.Context, collection string, v any) (string, error) {
	doc, err := model.Encode(v)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(ctx, "insert", collection, doc)
	if err != nil {
		return "", err
	}
	if !resp.Bool("success") {
		return "", fmt.Errorf("catalog insert %s: %s", collection, resp.Str("message"))
	}
	return resp.Str("id"), nil
}

func decodeOne[T any](doc map[string]any) (*T, error) {
	if doc == nil {
		return nil, nil
	}
	var v T
	if err := model.Decode(doc, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func decodeAll[T any](docs []map[string]any) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := model.Decode(doc, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *CatalogRepository) FindUser(ctx context.Context, username, accountType string) (*model.User, error) {
	doc, err := r.findOne(ctx, colUser, map[string]any{"username": username, "account_type": accountType})
	if err != nil {
		return nil, err
	}
	return decodeOne[model.User](doc)
}

func (r *CatalogRepository) CreateUser(ctx context.Context, u *model.User) (string, error) {
	return r.insert(ctx, colUser, u)
}

func (r *CatalogRepository) FindGameByName(ctx context.Context, name string) (*model.Game, error) {
	doc, err := r.findOne(ctx, colGame, map[string]any{"name": name})
	if err != nil {
		return nil, err
	}
	return decodeOne[model.Game](doc)
}

func (r *CatalogRepository) FindActiveGameByName(ctx context.Context, name string) (*model.Game, error) {
	doc, err := r.findOne(ctx, colGame, map[string]any{"name": name, "status": constants.GameActive})
	if err != nil {
		return nil, err
	}
	return decodeOne[model.Game](doc)
}

func (r *CatalogRepository) FindActiveGameByID(ctx context.Context, id string) (*model.Game, error) {
	doc, err := r.findOne(ctx, colGame, map[string]any{"_id": id, "status": constants.GameActive})
	if err != nil {
		return nil, err
	}
	return decodeOne[model.Game](doc)
}

func (r *CatalogRepository) FindOwnedGame(ctx context.Context, name, developerID string) (*model.Game, error) {
	doc, err := r.findOne(ctx, colGame, map[string]any{"name": name, "developer_id": developerID})
	if err != nil {
		return nil, err
	}
	return decodeOne[model.Game](doc)
}

func (r *CatalogRepository) ListActiveGames(ctx context.Context) ([]model.Game, error) {
	docs, err := r.find(ctx, colGame, map[string]any{"status": constants.GameActive})
	if err != nil {
		return nil, err
	}
	return decodeAll[model.Game](docs)
}

func (r *CatalogRepository) ListGamesByDeveloper(ctx context.Context, developerID string) ([]model.Game, error) {
	docs, err := r.find(ctx, colGame, map[string]any{"developer_id": developerID})
	if err != nil {
		return nil, err
	}
	return decodeAll[model.Game](docs)
}

func (r *CatalogRepository) CreateGame(ctx context.Context, g *model.Game) (string, error) {
	return r.insert(ctx, colGame, g)
}

func (r *CatalogRepository) UpdateGame(ctx context.Context, id string, fields map[string]any) error {
	resp, err := r.client.Do(ctx, "update", colGame, map[string]any{
		"query":  map[string]any{"_id": id},
		"update": fields,
	})
	if err != nil {
		return err
	}
	if !resp.Bool("success") {
		return fmt.Errorf("catalog update Game: %s", resp.Str("message"))
	}
	return nil
}

func (r *CatalogRepository) FindVersion(ctx context.Context, gameID, version string) (*model.Version, error) {
	doc, err := r.findOne(ctx, colVersion, map[string]any{"game_id": gameID, "version": version})
	if err != nil {
		return nil, err
	}
	return decodeOne[model.Version](doc)
}

func (r *CatalogRepository) CreateVersion(ctx context.Context, v *model.Version) (string, error) {
	return r.insert(ctx, colVersion, v)
}

func (r *CatalogRepository) ListReviews(ctx context.Context, gameID string) ([]model.Review, error) {
	docs, err := r.find(ctx, colReview, map[string]any{"game_id": gameID})
	if err != nil {
		return nil, err
	}
	return decodeAll[model.Review](docs)
}

func (r *CatalogRepository) CreateReview(ctx context.Context, rev *model.Review) (string, error) {
	return r.insert(ctx, colReview, rev)
}
