package lobby

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openlobby/openlobby/internal/constants"
	"github.com/openlobby/openlobby/internal/gamepkg"
	"github.com/openlobby/openlobby/internal/model"
)

// Room state machine errors, mapped to wire tags by the request handlers.
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomBusy        = errors.New("room is not accepting players")
	ErrRoomFull        = errors.New("room is full")
	ErrNotInRoom       = errors.New("not in any room")
	ErrNotHost         = errors.New("only host can start game")
	ErrAlreadyStarted  = errors.New("game already started")
	ErrAlreadyLoggedIn = errors.New("account already logged in")
	ErrSpawnFailed     = errors.New("failed to start game server")
)

// CrashError reports a game server that exited within the early-crash
// window after spawning.
type CrashError struct {
	ExitCode int
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("game server crashed on startup (exit %d)", e.ExitCode)
}

// Room is an in-memory matchmaking slot for one game. All fields are
// guarded by the Matchmaker mutex; the subprocess and its log handle are
// owned by the room record.
type Room struct {
	ID         string
	GameID     string
	GameName   string
	Version    string
	HostID     string
	HostName   string
	Players    []string
	MaxPlayers int
	Status     string

	Process *GameProcess
	Port    int
}

// RoomSummary is the list_rooms view of a room.
type RoomSummary struct {
	RoomID     string `json:"room_id"`
	GameName   string `json:"game_name"`
	Version    string `json:"version"`
	Host       string `json:"host"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"max_players"`
	Status     string `json:"status"`
}

// Status is the check_game_status view for one player. JustEnded marks the
// poll that observed the game-server exit and reset the room.
type Status struct {
	InRoom      bool
	JustEnded   bool
	GameStarted bool
	RoomID      string
	GameName    string
	Version     string
	HostID      string
	HostName    string
	IsHost      bool
	RoomStatus  string
	Port        int
}

// StartContext is the data start_game needs to consult the Catalog between
// the two locked phases of starting a game.
type StartContext struct {
	RoomID   string
	GameID   string
	GameName string
}

// Matchmaker owns every live session and room. One mutex serializes all
// mutations; it is never held across client TCP I/O, Catalog requests, or
// download file streaming.
type Matchmaker struct {
	mu       sync.Mutex
	sessions map[string]string // user_id -> username
	rooms    map[string]*Room
	userRoom map[string]string // user_id -> room_id
	ports    *PortAllocator
	logsDir  string
}

// NewMatchmaker creates an empty matchmaker.
func NewMatchmaker(ports *PortAllocator, logsDir string) *Matchmaker {
	return &Matchmaker{
		sessions: make(map[string]string),
		rooms:    make(map[string]*Room),
		userRoom: make(map[string]string),
		ports:    ports,
		logsDir:  logsDir,
	}
}

// AddSession atomically refuses a second live session for the same user.
func (m *Matchmaker) AddSession(userID, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[userID]; ok {
		return ErrAlreadyLoggedIn
	}
	m.sessions[userID] = username
	return nil
}

// RemoveSession drops the session and any room membership. Called on
// logout and on disconnect.
func (m *Matchmaker) RemoveSession(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
	m.removeFromRoomLocked(userID)
}

// SessionCount returns the number of live sessions.
func (m *Matchmaker) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// CreateRoom removes the user from any prior room and creates a fresh
// waiting room with the user as sole player and host.
func (m *Matchmaker) CreateRoom(userID, username string, game *model.Game) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeFromRoomLocked(userID)

	roomID := uuid.NewString()[:8]
	m.rooms[roomID] = &Room{
		ID:         roomID,
		GameID:     game.ID,
		GameName:   game.Name,
		Version:    game.LatestVersion,
		HostID:     userID,
		HostName:   username,
		Players:    []string{userID},
		MaxPlayers: game.MaxPlayers,
		Status:     constants.RoomWaiting,
	}
	m.userRoom[userID] = roomID
	return roomID
}

// JoinRoom appends the user to a waiting room with a free slot.
func (m *Matchmaker) JoinRoom(userID, roomID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeFromRoomLocked(userID)

	room, ok := m.rooms[roomID]
	if !ok {
		return "", ErrRoomNotFound
	}
	if room.Status != constants.RoomWaiting {
		return "", ErrRoomBusy
	}
	if len(room.Players) >= room.MaxPlayers {
		return "", ErrRoomFull
	}

	room.Players = append(room.Players, userID)
	m.userRoom[userID] = roomID
	return room.GameName, nil
}

// LeaveRoom removes the user from their room, destroying empty rooms and
// migrating the host role when the host leaves.
func (m *Matchmaker) LeaveRoom(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.userRoom[userID]; !ok {
		return ErrNotInRoom
	}
	m.removeFromRoomLocked(userID)
	return nil
}

// ListRooms snapshots every live room.
func (m *Matchmaker) ListRooms() []RoomSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	summaries := make([]RoomSummary, 0, len(m.rooms))
	for _, room := range m.rooms {
		summaries = append(summaries, RoomSummary{
			RoomID:     room.ID,
			GameName:   room.GameName,
			Version:    room.Version,
			Host:       room.HostName,
			Players:    len(room.Players),
			MaxPlayers: room.MaxPlayers,
			Status:     room.Status,
		})
	}
	return summaries
}

// BeginStart validates that the caller may start their room's game and
// clears a stale in_game status. A room whose process is still running
// after the poll window refuses with ErrAlreadyStarted.
func (m *Matchmaker) BeginStart(userID string) (*StartContext, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.userRoom[userID]
	if !ok {
		return nil, ErrNotInRoom
	}
	room := m.rooms[roomID]
	if room.HostID != userID {
		return nil, ErrNotHost
	}

	if room.Status == constants.RoomInGame {
		ended := room.Process == nil
		if !ended {
			// Retry the poll briefly to catch a game server that exited
			// moments ago; the lock is held, serializing transitions.
			for retry := 0; retry < constants.ExitPollRetries; retry++ {
				if exited, _ := room.Process.Exited(); exited {
					ended = true
					break
				}
				if retry < constants.ExitPollRetries-1 {
					time.Sleep(constants.ExitPollInterval)
				}
			}
		}
		if !ended {
			return nil, ErrAlreadyStarted
		}
		m.resetRoomLocked(room)
	}

	return &StartContext{RoomID: roomID, GameID: room.GameID, GameName: room.GameName}, nil
}

// Launch allocates a port, spawns the game server, and commits the room to
// in_game — unless the child dies inside the early-crash window, in which
// case the room stays waiting and a CrashError is returned. version floats
// the room to the Catalog's current latest_version.
func (m *Matchmaker) Launch(userID, version, pkgDir string, manifest *gamepkg.Manifest) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Membership may have changed while the Catalog was consulted; the
	// invariants are re-checked rather than assumed.
	roomID, ok := m.userRoom[userID]
	if !ok {
		return 0, ErrNotInRoom
	}
	room := m.rooms[roomID]
	if room.HostID != userID {
		return 0, ErrNotHost
	}
	if room.Status != constants.RoomWaiting {
		return 0, ErrAlreadyStarted
	}

	room.Version = version

	port, err := m.ports.Allocate()
	if err != nil {
		return 0, err
	}

	logPath := filepath.Join(m.logsDir, fmt.Sprintf("game_%d_%s.log", port, room.ID))
	proc, err := Spawn(pkgDir, manifest, port, len(room.Players), logPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
	}

	time.Sleep(constants.EarlyCrashWindow)
	if exited, code := proc.Exited(); exited {
		proc.CloseLog()
		return 0, &CrashError{ExitCode: code}
	}

	room.Process = proc
	room.Port = port
	room.Status = constants.RoomInGame
	return port, nil
}

// CheckStatus reports the room state as seen by one player. is_host is
// computed fresh on every call so a migrated host learns of its promotion;
// an in_game room whose process has exited is reset to waiting here.
func (m *Matchmaker) CheckStatus(userID string) Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.userRoom[userID]
	if !ok {
		return Status{}
	}
	room := m.rooms[roomID]

	st := Status{
		InRoom:     true,
		RoomID:     room.ID,
		GameName:   room.GameName,
		Version:    room.Version,
		HostID:     room.HostID,
		HostName:   room.HostName,
		IsHost:     room.HostID == userID,
		RoomStatus: room.Status,
	}

	if room.Status == constants.RoomInGame {
		if m.processEnded(room) {
			m.resetRoomLocked(room)
			st.JustEnded = true
			st.RoomStatus = room.Status
			return st
		}
		st.GameStarted = true
		st.Port = room.Port
	}
	return st
}

// EndGame resets the caller's room to waiting, terminating the child if it
// is still alive. Idempotent: a missing room or a waiting room succeeds.
func (m *Matchmaker) EndGame(userID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.userRoom[userID]
	if !ok {
		return "Not in any room"
	}
	room := m.rooms[roomID]
	if room.Status != constants.RoomInGame {
		return "Game not in progress"
	}

	if room.Process != nil {
		room.Process.Terminate()
	}
	m.resetRoomLocked(room)
	return "Game ended, room reset to waiting"
}

// Shutdown destroys every room, terminating supervised processes and
// closing their logs. Called when the server stops serving.
func (m *Matchmaker) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, room := range m.rooms {
		m.destroyRoomLocked(room)
	}
	m.sessions = make(map[string]string)
}

// removeFromRoomLocked takes the user out of their room, if any, destroying
// the room when it empties and migrating the host role otherwise.
func (m *Matchmaker) removeFromRoomLocked(userID string) {
	roomID, ok := m.userRoom[userID]
	if !ok {
		return
	}
	room := m.rooms[roomID]
	delete(m.userRoom, userID)

	for i, p := range room.Players {
		if p == userID {
			room.Players = append(room.Players[:i], room.Players[i+1:]...)
			break
		}
	}

	if len(room.Players) == 0 {
		m.destroyRoomLocked(room)
		return
	}

	if room.HostID == userID {
		room.HostID = room.Players[0]
		if name, ok := m.sessions[room.HostID]; ok {
			room.HostName = name
		}
		// A departing host must not leave the new host stuck behind a
		// finished game.
		if room.Status == constants.RoomInGame && m.processEnded(room) {
			m.resetRoomLocked(room)
		}
	}
}

// destroyRoomLocked terminates any supervised process, closes the log, and
// deletes the room with its membership index entries.
func (m *Matchmaker) destroyRoomLocked(room *Room) {
	if room.Process != nil {
		room.Process.Terminate()
		room.Process.CloseLog()
		room.Process = nil
	}
	for _, p := range room.Players {
		delete(m.userRoom, p)
	}
	delete(m.rooms, room.ID)
}

// resetRoomLocked transitions a room out of in_game: log closed, process
// and port cleared, status back to waiting.
func (m *Matchmaker) resetRoomLocked(room *Room) {
	if room.Process != nil {
		room.Process.CloseLog()
	}
	room.Process = nil
	room.Port = 0
	room.Status = constants.RoomWaiting
}

// processEnded reports whether the room's game process is gone or exited.
func (m *Matchmaker) processEnded(room *Room) bool {
	if room.Process == nil {
		return true
	}
	exited, _ := room.Process.Exited()
	return exited
}
