package match

import "errors"

// Command precondition failures. A command that returns one of these has
// appended nothing and changed nothing.
var (
	ErrInventoryFull         = errors.New("inventory full")
	ErrInventoryEmpty        = errors.New("inventory empty")
	ErrCellOccupied          = errors.New("cell occupied")
	ErrCellEmpty             = errors.New("cell empty")
	ErrIncompatibleItem      = errors.New("item not accepted by cell")
	ErrInvalidCell           = errors.New("invalid cell")
	ErrInvalidItem           = errors.New("invalid item")
	ErrWrongPhase            = errors.New("wrong match phase")
	ErrMobilityAlreadyEarned = errors.New("mobility bonus already earned")
	ErrClockStarted          = errors.New("match clock already started")
	ErrArchived              = errors.New("match is archived")
)

// Lookup and construction failures.
var (
	ErrUnknownRobot = errors.New("unknown robot")
	ErrInvalidTeams = errors.New("invalid teams")
	ErrInvalidClock = errors.New("invalid clock lengths")
)
