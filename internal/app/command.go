package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/scout/internal/domain/dedupe"
	"github.com/okian/scout/internal/domain/match"
	"github.com/okian/scout/internal/domain/model"
	"github.com/okian/scout/internal/domain/types"
	"github.com/okian/scout/pkg/logger"
	"github.com/okian/scout/pkg/metrics"
)

// CommandType names an operator action.
type CommandType string

// Robot commands.
const (
	CmdPickUp         CommandType = "pick_up"
	CmdSetInventory   CommandType = "set_inventory"
	CmdClearInventory CommandType = "clear_inventory"
	CmdPreload        CommandType = "preload"
	CmdScore          CommandType = "score"
	CmdDislodge       CommandType = "dislodge"
	CmdFieldClick     CommandType = "field_click"
	CmdMobility       CommandType = "mobility"
	CmdToggleEnabled  CommandType = "toggle_enabled"
	CmdToggleDocked   CommandType = "toggle_docked"
	CmdToggleEngaged  CommandType = "toggle_engaged"
	CmdSetSlot        CommandType = "set_slot"
)

// Match commands.
const (
	CmdPlay        CommandType = "play"
	CmdPause       CommandType = "pause"
	CmdToggleClock CommandType = "toggle_clock"
	CmdReset       CommandType = "reset"
	CmdArchive     CommandType = "archive"
)

var robotCommands = map[CommandType]bool{
	CmdPickUp: true, CmdSetInventory: true, CmdClearInventory: true, CmdPreload: true,
	CmdScore: true, CmdDislodge: true, CmdFieldClick: true, CmdMobility: true,
	CmdToggleEnabled: true, CmdToggleDocked: true, CmdToggleEngaged: true, CmdSetSlot: true,
}

var matchCommands = map[CommandType]bool{
	CmdPlay: true, CmdPause: true, CmdToggleClock: true, CmdReset: true, CmdArchive: true,
}

// Command is one operator action on a match. ID is optional; a repeated
// ID is acknowledged without being applied again.
type Command struct {
	ID       string      `json:"command_id,omitempty"`
	Type     CommandType `json:"type"`
	Team     string      `json:"team,omitempty"`
	Alliance string      `json:"alliance,omitempty"`
	Item     string      `json:"item,omitempty"`
	Origin   string      `json:"origin,omitempty"`
	Cell     *int        `json:"cell,omitempty"`
	Slot     string      `json:"slot,omitempty"`
}

// Result reports the outcome of an applied command.
type Result struct {
	Duplicate bool       `json:"duplicate,omitempty"`
	Event     model.Kind `json:"event,omitempty"`
	Match     View       `json:"match"`
}

// Execute applies cmd to match id. Precondition failures come back as the
// match package's sentinel errors and leave the match unchanged.
func (s *Service) Execute(ctx context.Context, id string, cmd Command) (Result, error) {
	if !robotCommands[cmd.Type] && !matchCommands[cmd.Type] {
		metrics.RecordCommand(string(cmd.Type), metrics.ResultRejected)
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
	}
	e, err := s.entry(id)
	if err != nil {
		return Result{}, err
	}

	// The id check, the apply and a failed command's unrecord share the
	// match lock so a retry never sees an id that is about to be dropped.
	e.mu.Lock()
	defer e.mu.Unlock()

	var key string
	if cmd.ID != "" {
		key = dedupe.Key(id, cmd.ID)
		if s.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordCommandDuplicate()
			s.logger.Debug(ctx, "duplicate command skipped",
				logger.String("match_id", id), logger.String("command_id", cmd.ID))
			v, err := s.view(e.m)
			return Result{Duplicate: true, Match: v}, err
		}
	}

	before := e.m.Len()
	kind, err := s.apply(e.m, cmd)
	if err != nil {
		if key != "" {
			s.deduper.Unrecord(ctx, key)
		}
		metrics.RecordCommand(string(cmd.Type), outcome(err))
		return Result{}, err
	}
	metrics.RecordCommand(string(cmd.Type), metrics.ResultOK)
	for i := before; i < e.m.Len(); i++ {
		metrics.RecordEventAppended()
	}

	v, err := s.view(e.m)
	if err != nil {
		return Result{}, err
	}
	return Result{Event: kind, Match: v}, nil
}

func outcome(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCommand), errors.Is(err, match.ErrUnknownRobot), IsPrecondition(err):
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}

// IsPrecondition reports whether err means the command was refused by the
// current match state.
func IsPrecondition(err error) bool {
	for _, target := range []error{
		match.ErrInventoryFull, match.ErrInventoryEmpty, match.ErrCellOccupied, match.ErrCellEmpty,
		match.ErrIncompatibleItem, match.ErrInvalidCell, match.ErrInvalidItem, match.ErrWrongPhase,
		match.ErrMobilityAlreadyEarned, match.ErrClockStarted, match.ErrArchived,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (s *Service) apply(m *match.Match, cmd Command) (model.Kind, error) {
	switch cmd.Type {
	case CmdPlay:
		m.Play()
		return "", nil
	case CmdPause:
		m.Pause()
		return "", nil
	case CmdToggleClock:
		m.Toggle()
		return "", nil
	case CmdReset:
		m.Reset()
		return "", nil
	case CmdArchive:
		m.Archive()
		return "", nil
	}

	r, err := robotOf(m, cmd)
	if err != nil {
		return "", err
	}

	switch cmd.Type {
	case CmdPickUp:
		item, err := itemOf(cmd)
		if err != nil {
			return "", err
		}
		origin := types.OriginField
		if cmd.Origin != "" {
			if origin, err = types.ParseOrigin(cmd.Origin); err != nil {
				return "", fmt.Errorf("%w: %w", ErrInvalidCommand, err)
			}
		}
		return model.KindPickUp, r.PickUp(item, origin)
	case CmdSetInventory:
		item, err := itemOf(cmd)
		if err != nil {
			return "", err
		}
		return model.KindSetInventory, r.SetInventory(item)
	case CmdClearInventory:
		return model.KindClearInventory, r.ClearInventory()
	case CmdPreload:
		item, err := itemOf(cmd)
		if err != nil {
			return "", err
		}
		return model.KindSetInventory, r.Preload(item)
	case CmdScore:
		cell, err := cellOf(cmd)
		if err != nil {
			return "", err
		}
		return model.KindScore, r.ScorePiece(cell)
	case CmdDislodge:
		cell, err := cellOf(cmd)
		if err != nil {
			return "", err
		}
		return model.KindDislodge, r.Dislodge(cell)
	case CmdFieldClick:
		cell, err := cellOf(cmd)
		if err != nil {
			return "", err
		}
		return m.FieldClick(r.Ref(), cell)
	case CmdMobility:
		return model.KindEarnMobility, r.EarnMobilityBonus()
	case CmdToggleEnabled:
		err := r.ToggleEnabled()
		return pick(r.Disabled(), model.KindDisable, model.KindEnable), err
	case CmdToggleDocked:
		err := r.ToggleDocked()
		return pick(r.Docked(), model.KindDock, model.KindUndock), err
	case CmdToggleEngaged:
		err := r.ToggleEngaged()
		return pick(r.Engaged(), model.KindEngage, model.KindDisengage), err
	case CmdSetSlot:
		slot, err := types.ParseSlot(cmd.Slot)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		r.SetSlot(slot)
		return "", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
}

func pick(cond bool, yes, no model.Kind) model.Kind {
	if cond {
		return yes
	}
	return no
}

func robotOf(m *match.Match, cmd Command) (*match.Robot, error) {
	if cmd.Team == "" {
		return nil, fmt.Errorf("%w: %s needs a team", ErrInvalidCommand, cmd.Type)
	}
	color, err := types.ParseColor(cmd.Alliance)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return m.Robot(model.RobotRef{Team: cmd.Team, Color: color})
}

func itemOf(cmd Command) (types.ItemKind, error) {
	item, err := types.ParseItemKind(cmd.Item)
	if err != nil {
		return types.ItemEmpty, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return item, nil
}

func cellOf(cmd Command) (int, error) {
	if cmd.Cell == nil {
		return 0, fmt.Errorf("%w: %s needs a cell", ErrInvalidCommand, cmd.Type)
	}
	return *cmd.Cell, nil
}
