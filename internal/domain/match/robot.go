package match

import (
	"fmt"

	"github.com/okian/scout/internal/domain/model"
	"github.com/okian/scout/internal/domain/scoring"
	"github.com/okian/scout/internal/domain/types"
)

// recorder is the part of a match a robot needs to run a command. The robot
// does not own it.
type recorder interface {
	now() float64
	autoLength() float64
	writable() error
	derive() (scoring.State, error)
	record(ev model.Event, project func())
	reject(ref model.RobotRef, kind model.Kind, err error) error
}

// Robot is the incrementally maintained projection of one robot. Every
// successful command appends exactly one event; a failed command changes
// nothing.
type Robot struct {
	team  string
	color types.Color
	slot  types.Slot

	startingItem   types.ItemKind
	inventory      types.ItemKind
	disabled       bool
	mobilityEarned bool
	docked         bool
	engaged        bool

	m recorder
}

func newRobot(m recorder, team string, color types.Color, slot types.Slot) *Robot {
	return &Robot{team: team, color: color, slot: slot, m: m}
}

// Ref returns the non-owning identity used by events.
func (r *Robot) Ref() model.RobotRef { return model.RobotRef{Team: r.team, Color: r.color} }

// Team returns the team id.
func (r *Robot) Team() string { return r.team }

// Color returns the alliance color.
func (r *Robot) Color() types.Color { return r.color }

// Slot returns the starting slot.
func (r *Robot) Slot() types.Slot { return r.slot }

// StartingItem returns the preloaded item restored on Reset.
func (r *Robot) StartingItem() types.ItemKind { return r.startingItem }

// Inventory returns the held item.
func (r *Robot) Inventory() types.ItemKind { return r.inventory }

// Disabled reports whether the robot is disabled.
func (r *Robot) Disabled() bool { return r.disabled }

// MobilityEarned reports whether the mobility bonus was banked.
func (r *Robot) MobilityEarned() bool { return r.mobilityEarned }

// Docked reports whether the robot is docked.
func (r *Robot) Docked() bool { return r.docked }

// Engaged reports whether the robot is engaged.
func (r *Robot) Engaged() bool { return r.engaged }

// SetSlot reassigns the starting slot. It is not a game fact and is not
// logged.
func (r *Robot) SetSlot(s types.Slot) {
	r.slot = s
}

// PickUp takes an item from origin into an empty inventory.
func (r *Robot) PickUp(item types.ItemKind, from types.Origin) error {
	if err := r.m.writable(); err != nil {
		return r.m.reject(r.Ref(), model.KindPickUp, err)
	}
	if item == types.ItemEmpty || !item.Valid() || !from.Valid() {
		return r.m.reject(r.Ref(), model.KindPickUp, fmt.Errorf("%w: %s from %s", ErrInvalidItem, item, from))
	}
	if r.inventory != types.ItemEmpty {
		return r.m.reject(r.Ref(), model.KindPickUp,
			fmt.Errorf("%w: %s already holds a %s", ErrInventoryFull, r.Ref(), r.inventory))
	}
	r.m.record(model.NewPickUp(r.Ref(), r.m.now(), item, from), func() {
		r.inventory = item
	})
	return nil
}

// SetInventory overwrites the inventory. Used for manual correction.
func (r *Robot) SetInventory(item types.ItemKind) error {
	if err := r.m.writable(); err != nil {
		return r.m.reject(r.Ref(), model.KindSetInventory, err)
	}
	if !item.Valid() {
		return r.m.reject(r.Ref(), model.KindSetInventory, fmt.Errorf("%w: %s", ErrInvalidItem, item))
	}
	r.m.record(model.NewSetInventory(r.Ref(), r.m.now(), item), func() {
		r.inventory = item
	})
	return nil
}

// ClearInventory empties the inventory. Used for manual correction.
func (r *Robot) ClearInventory() error {
	if err := r.m.writable(); err != nil {
		return r.m.reject(r.Ref(), model.KindClearInventory, err)
	}
	r.m.record(model.NewClearInventory(r.Ref(), r.m.now()), func() {
		r.inventory = types.ItemEmpty
	})
	return nil
}

// Preload sets the item the robot starts the match with. It is only
// allowed before the clock has moved and survives Reset.
func (r *Robot) Preload(item types.ItemKind) error {
	if err := r.m.writable(); err != nil {
		return r.m.reject(r.Ref(), model.KindSetInventory, err)
	}
	if r.m.now() != 0 {
		return r.m.reject(r.Ref(), model.KindSetInventory, fmt.Errorf("%w: preload at %.2fs", ErrClockStarted, r.m.now()))
	}
	if !item.Valid() {
		return r.m.reject(r.Ref(), model.KindSetInventory, fmt.Errorf("%w: %s", ErrInvalidItem, item))
	}
	r.m.record(model.NewSetInventory(r.Ref(), 0, item), func() {
		r.startingItem = item
		r.inventory = item
	})
	return nil
}

// ScorePiece places the held item on cell of the robot's own grid.
func (r *Robot) ScorePiece(cell int) error {
	if err := r.m.writable(); err != nil {
		return r.m.reject(r.Ref(), model.KindScore, err)
	}
	if !types.ValidCell(cell) {
		return r.m.reject(r.Ref(), model.KindScore, fmt.Errorf("%w: %d", ErrInvalidCell, cell))
	}
	if r.inventory == types.ItemEmpty {
		return r.m.reject(r.Ref(), model.KindScore, fmt.Errorf("%w: %s holds nothing", ErrInventoryEmpty, r.Ref()))
	}
	st, err := r.m.derive()
	if err != nil {
		return r.m.reject(r.Ref(), model.KindScore, err)
	}
	if st.Grid(r.color).Occupied(cell) {
		return r.m.reject(r.Ref(), model.KindScore, fmt.Errorf("%w: %s cell %d", ErrCellOccupied, r.color, cell))
	}
	if !types.Accepts(cell, r.inventory) {
		return r.m.reject(r.Ref(), model.KindScore,
			fmt.Errorf("%w: cell %d takes cubes only, %s holds a %s", ErrIncompatibleItem, cell, r.Ref(), r.inventory))
	}
	r.m.record(model.NewScore(r.Ref(), r.m.now(), cell, r.inventory), func() {
		r.inventory = types.ItemEmpty
	})
	return nil
}

// Dislodge clears an occupied cell of the robot's own grid. Points already
// banked for the piece are kept.
func (r *Robot) Dislodge(cell int) error {
	if err := r.m.writable(); err != nil {
		return r.m.reject(r.Ref(), model.KindDislodge, err)
	}
	if !types.ValidCell(cell) {
		return r.m.reject(r.Ref(), model.KindDislodge, fmt.Errorf("%w: %d", ErrInvalidCell, cell))
	}
	st, err := r.m.derive()
	if err != nil {
		return r.m.reject(r.Ref(), model.KindDislodge, err)
	}
	if !st.Grid(r.color).Occupied(cell) {
		return r.m.reject(r.Ref(), model.KindDislodge, fmt.Errorf("%w: %s cell %d", ErrCellEmpty, r.color, cell))
	}
	r.m.record(model.NewDislodge(r.Ref(), r.m.now(), cell), nil)
	return nil
}

// EarnMobilityBonus records the mobility bonus. It must happen strictly
// before autoLength so the event folds as an autonomous one.
func (r *Robot) EarnMobilityBonus() error {
	if err := r.m.writable(); err != nil {
		return r.m.reject(r.Ref(), model.KindEarnMobility, err)
	}
	if at := r.m.now(); at >= r.m.autoLength() {
		return r.m.reject(r.Ref(), model.KindEarnMobility,
			fmt.Errorf("%w: mobility bonus at %.2fs is outside autonomous", ErrWrongPhase, at))
	}
	if r.mobilityEarned {
		return r.m.reject(r.Ref(), model.KindEarnMobility, fmt.Errorf("%w: %s", ErrMobilityAlreadyEarned, r.Ref()))
	}
	r.m.record(model.NewStatus(model.KindEarnMobility, r.Ref(), r.m.now()), func() {
		r.mobilityEarned = true
	})
	return nil
}

// ToggleEnabled flips the disabled flag.
func (r *Robot) ToggleEnabled() error {
	kind := model.KindDisable
	if r.disabled {
		kind = model.KindEnable
	}
	return r.toggle(kind, &r.disabled)
}

// ToggleDocked flips the docked flag.
func (r *Robot) ToggleDocked() error {
	kind := model.KindDock
	if r.docked {
		kind = model.KindUndock
	}
	return r.toggle(kind, &r.docked)
}

// ToggleEngaged flips the engaged flag.
func (r *Robot) ToggleEngaged() error {
	kind := model.KindEngage
	if r.engaged {
		kind = model.KindDisengage
	}
	return r.toggle(kind, &r.engaged)
}

func (r *Robot) toggle(kind model.Kind, flag *bool) error {
	if err := r.m.writable(); err != nil {
		return r.m.reject(r.Ref(), kind, err)
	}
	r.m.record(model.NewStatus(kind, r.Ref(), r.m.now()), func() {
		*flag = !*flag
	})
	return nil
}

// Reset restores the start-of-match projection.
func (r *Robot) Reset() {
	r.inventory = r.startingItem
	r.disabled = false
	r.mobilityEarned = false
	r.docked = false
	r.engaged = false
}

// apply sets the projection from a fold result. Used by restore.
func (r *Robot) apply(s scoring.RobotState) {
	r.inventory = s.Inventory
	r.disabled = s.Disabled
	r.mobilityEarned = s.MobilityEarned
	r.docked = s.Docked
	r.engaged = s.Engaged
}
