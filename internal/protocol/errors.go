package protocol

// Error tags carried in the "error" field of failure responses. Transport
// faults are Go errors and close the connection; these tags are application
// outcomes and keep it open.
const (
	ErrAuthRequired       = "AuthRequired"
	ErrInvalidCredentials = "InvalidCredentials"
	ErrDuplicateUser      = "DuplicateUser"
	ErrAlreadyLoggedIn    = "AlreadyLoggedIn"

	ErrNotOwner       = "NotOwner"
	ErrNotFound       = "NotFound"
	ErrDuplicateName  = "DuplicateName"
	ErrInvalidPackage = "InvalidPackage"

	ErrRoomNotFound   = "RoomNotFound"
	ErrRoomFull       = "RoomFull"
	ErrRoomBusy       = "RoomBusy"
	ErrNotInRoom      = "NotInRoom"
	ErrNotHost        = "NotHost"
	ErrAlreadyStarted = "AlreadyStarted"

	ErrNoPortsAvailable  = "NoPortsAvailable"
	ErrGameServerCrashed = "GameServerCrashed"
	ErrSpawnFailed       = "SpawnFailed"

	ErrInvalidRequest = "InvalidRequest"
	ErrTransport      = "TransportError"
	ErrInternal       = "InternalError"
)
