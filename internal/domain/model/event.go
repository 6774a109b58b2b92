// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"

	"github.com/okian/scout/internal/domain/types"
)

// ErrInvalidEvent is returned by Validate for events that could not have
// been produced by a robot command.
var ErrInvalidEvent = errors.New("invalid event")

// Kind discriminates the Event sum type.
type Kind string

// Inventory events.
const (
	KindPickUp         Kind = "pick_up"
	KindSetInventory   Kind = "set_inventory"
	KindClearInventory Kind = "clear_inventory"
)

// Grid events.
const (
	KindScore    Kind = "score"
	KindDislodge Kind = "dislodge"
)

// Robot status events.
const (
	KindEarnMobility Kind = "earn_mobility"
	KindEnable       Kind = "enable"
	KindDisable      Kind = "disable"
	KindDock         Kind = "dock"
	KindUndock       Kind = "undock"
	KindEngage       Kind = "engage"
	KindDisengage    Kind = "disengage"
)

// Kinds lists every event kind in declaration order.
var Kinds = []Kind{
	KindPickUp, KindSetInventory, KindClearInventory,
	KindScore, KindDislodge,
	KindEarnMobility, KindEnable, KindDisable, KindDock, KindUndock, KindEngage, KindDisengage,
}

// Known reports whether k is a declared kind.
func (k Kind) Known() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// RobotRef identifies a robot without owning it. Team ids are only unique
// within an alliance, so the color is part of the identity.
type RobotRef struct {
	Team  string      `json:"team"`
	Color types.Color `json:"alliance"`
}

func (r RobotRef) String() string {
	return r.Color.String() + "/" + r.Team
}

// Event is an immutable fact recorded in a match log.
// Item is set for pick_up, set_inventory and score; Origin for pick_up;
// Cell for score and dislodge.
type Event struct {
	Kind      Kind
	Robot     RobotRef
	Timestamp float64 // match clock seconds
	Item      types.ItemKind
	Origin    types.Origin
	Cell      int
}

// IsAuto reports whether the event happened during the autonomous period.
func (e Event) IsAuto(autoLength float64) bool {
	return e.Timestamp < autoLength
}

// Phase returns the match phase the event belongs to.
func (e Event) Phase(autoLength float64) types.Phase {
	if e.IsAuto(autoLength) {
		return types.PhaseAuto
	}
	return types.PhaseTeleop
}

// Validate checks the kind and the payload fields used by that kind.
func (e Event) Validate() error {
	if !e.Kind.Known() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, e.Kind)
	}
	if e.Robot.Team == "" || !e.Robot.Color.Valid() {
		return fmt.Errorf("%w: %s has no robot", ErrInvalidEvent, e.Kind)
	}
	if e.Timestamp < 0 {
		return fmt.Errorf("%w: negative timestamp %v", ErrInvalidEvent, e.Timestamp)
	}
	switch e.Kind {
	case KindPickUp:
		if e.Item == types.ItemEmpty || !e.Item.Valid() {
			return fmt.Errorf("%w: pick_up of %s", ErrInvalidEvent, e.Item)
		}
		if !e.Origin.Valid() {
			return fmt.Errorf("%w: pick_up from %s", ErrInvalidEvent, e.Origin)
		}
	case KindSetInventory:
		if !e.Item.Valid() {
			return fmt.Errorf("%w: set_inventory to %s", ErrInvalidEvent, e.Item)
		}
	case KindScore:
		if e.Item == types.ItemEmpty || !e.Item.Valid() {
			return fmt.Errorf("%w: score of %s", ErrInvalidEvent, e.Item)
		}
		if !types.ValidCell(e.Cell) {
			return fmt.Errorf("%w: score on cell %d", ErrInvalidEvent, e.Cell)
		}
	case KindDislodge:
		if !types.ValidCell(e.Cell) {
			return fmt.Errorf("%w: dislodge on cell %d", ErrInvalidEvent, e.Cell)
		}
	}
	return nil
}

// NewPickUp records a robot collecting an item.
func NewPickUp(r RobotRef, at float64, item types.ItemKind, from types.Origin) Event {
	return Event{Kind: KindPickUp, Robot: r, Timestamp: at, Item: item, Origin: from}
}

// NewSetInventory records a manual inventory correction.
func NewSetInventory(r RobotRef, at float64, item types.ItemKind) Event {
	return Event{Kind: KindSetInventory, Robot: r, Timestamp: at, Item: item}
}

// NewClearInventory records a manual inventory clear.
func NewClearInventory(r RobotRef, at float64) Event {
	return Event{Kind: KindClearInventory, Robot: r, Timestamp: at}
}

// NewScore records an item placed on the alliance grid.
func NewScore(r RobotRef, at float64, cell int, item types.ItemKind) Event {
	return Event{Kind: KindScore, Robot: r, Timestamp: at, Cell: cell, Item: item}
}

// NewDislodge records a grid cell being cleared.
func NewDislodge(r RobotRef, at float64, cell int) Event {
	return Event{Kind: KindDislodge, Robot: r, Timestamp: at, Cell: cell}
}

// NewStatus records one of the payload-free status events.
func NewStatus(k Kind, r RobotRef, at float64) Event {
	return Event{Kind: k, Robot: r, Timestamp: at}
}
