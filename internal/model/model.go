// Package model defines the persisted document types of the Catalog Store.
// Documents travel as flat JSON objects; ids and timestamps are assigned by
// the Catalog on insert.
package model

import (
	"encoding/json"
	"fmt"
)

// User is an account in either the developer or the player namespace.
// (username, account_type) is unique; the same username may exist in both.
type User struct {
	ID           string `json:"_id,omitempty"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	AccountType  string `json:"account_type"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// Game is one published game. Name is unique across all games regardless of
// status; LatestVersion always names the newest Version row.
type Game struct {
	ID            string `json:"_id,omitempty"`
	Name          string `json:"name"`
	DeveloperID   string `json:"developer_id"`
	DeveloperName string `json:"developer_name"`
	LatestVersion string `json:"latest_version"`
	Description   string `json:"description"`
	MinPlayers    int    `json:"min_players"`
	MaxPlayers    int    `json:"max_players"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

// Version is one immutable uploaded revision of a game. FilePath is the
// directory name under the package store holding the uploaded files.
type Version struct {
	ID        string `json:"_id,omitempty"`
	GameID    string `json:"game_id"`
	Version   string `json:"version"`
	FilePath  string `json:"file_path"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Review is a player rating. Never updated or deleted; a player may review
// the same game more than once.
type Review struct {
	ID         string `json:"_id,omitempty"`
	GameID     string `json:"game_id"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Rating     int    `json:"rating"`
	Comment    string `json:"comment"`
	CreatedAt  string `json:"created_at,omitempty"`
}

// Encode converts a typed document into the flat map form the Catalog
// stores and ships.
func Encode(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return doc, nil
}

// Decode fills a typed document from its flat map form.
func Decode(doc map[string]any, v any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	return nil
}
