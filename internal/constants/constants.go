package constants

import "time"

// Default listening ports for the three platform daemons.
const (
	// DefaultCatalogPort is the Catalog Store port (localhost-bound, internal use).
	DefaultCatalogPort = 10001

	// DefaultLobbyPort is the Lobby/Matchmaker port for player clients.
	DefaultLobbyPort = 10002

	// DefaultGatewayPort is the Developer Gateway port for developer clients.
	DefaultGatewayPort = 10003
)

// Game server port range. Ports are drawn from a rolling cursor over
// [GamePortMin, GamePortMax] inclusive.
const (
	GamePortMin = 5000
	GamePortMax = 5099
)

// Wire protocol limits.
const (
	// MaxMessageSize caps a control message frame (4-byte length prefix).
	MaxMessageSize = 16 << 20 // 16 MiB

	// MaxFileSize caps a single file frame (8-byte length prefix).
	MaxFileSize = 4 << 30 // 4 GiB

	// FileChunkSize is the copy buffer size for file streaming.
	FileChunkSize = 32 << 10
)

// Subprocess supervision timings.
const (
	// EarlyCrashWindow is how long start_game waits before declaring a
	// freshly spawned game server alive.
	EarlyCrashWindow = 300 * time.Millisecond

	// ExitPollInterval and ExitPollRetries bound the wait for a stale
	// in_game process to be reaped before start_game gives up.
	ExitPollInterval = 200 * time.Millisecond
	ExitPollRetries  = 10
)

// On-disk layout defaults.
const (
	DefaultDataDir   = "db_data"
	DefaultUploadDir = "uploaded_games"
	DefaultLogsDir   = "game_server_logs"
)

// ManifestFileName is the package manifest every game package must carry.
const ManifestFileName = "game_info.json"

// Account types stored in the User collection. A username may exist in both
// namespaces; (username, account_type) is unique.
const (
	AccountDeveloper = "developer"
	AccountPlayer    = "player"
)

// Game catalog statuses.
const (
	GameActive  = "active"
	GameRemoved = "removed"
)

// Room statuses.
const (
	RoomWaiting = "waiting"
	RoomInGame  = "in_game"
)
