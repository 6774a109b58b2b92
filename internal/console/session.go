package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	service "github.com/okian/scout/internal/app"
	"github.com/okian/scout/internal/domain/snapshot"
	"github.com/okian/scout/internal/domain/types"
)

// ErrNoRobot is returned by robot commands before a robot is selected.
var ErrNoRobot = errors.New("no robot selected")

// ErrUsage is returned for lines that do not parse.
var ErrUsage = errors.New("usage")

// Session holds one operator's context around a live match.
type Session struct {
	svc     *service.Service
	matchID string
	out     io.Writer

	team     string
	alliance types.Color
	selected bool
	piece    types.ItemKind
}

// New starts a session on match id.
func New(svc *service.Service, matchID string, out io.Writer) *Session {
	return &Session{svc: svc, matchID: matchID, out: out, piece: types.ItemCube}
}

// MatchID returns the match the session drives.
func (s *Session) MatchID() string { return s.matchID }

// Piece returns the selected game piece.
func (s *Session) Piece() types.ItemKind { return s.piece }

// Robot returns the selected robot's team, if any.
func (s *Session) Robot() (string, bool) { return s.team, s.selected }

// Run reads commands from in until it ends or a quit line. Command errors
// are printed and do not end the session.
func (s *Session) Run(ctx context.Context, in io.Reader) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "quit" || line == "exit" {
			return nil
		}
		if err := s.Exec(ctx, line); err != nil {
			_, _ = fmt.Fprintln(s.out, "error:", err)
		}
	}
	return sc.Err()
}

// Exec runs one command line.
func (s *Session) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	verb, args := fields[0], fields[1:]

	switch verb {
	case "help":
		_, _ = io.WriteString(s.out, help)
		return nil
	case "show":
		return s.show(ctx)
	case "select":
		return s.selectRobot(ctx, args)
	case "piece":
		return s.selectPiece(ctx, args)
	case "pickup":
		origin := types.OriginField.String()
		if len(args) > 0 {
			origin = args[0]
		}
		return s.robotCommand(ctx, service.Command{Type: service.CmdPickUp, Item: s.piece.String(), Origin: origin})
	case "drop":
		return s.robotCommand(ctx, service.Command{Type: service.CmdClearInventory})
	case "click", "score", "dislodge":
		if len(args) != 1 {
			return fmt.Errorf("%w: %s <cell>", ErrUsage, verb)
		}
		cell, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: cell %q", ErrUsage, args[0])
		}
		typ := map[string]service.CommandType{
			"click": service.CmdFieldClick, "score": service.CmdScore, "dislodge": service.CmdDislodge,
		}[verb]
		return s.robotCommand(ctx, service.Command{Type: typ, Cell: &cell})
	case "mobility":
		return s.robotCommand(ctx, service.Command{Type: service.CmdMobility})
	case "enable":
		return s.robotCommand(ctx, service.Command{Type: service.CmdToggleEnabled})
	case "dock":
		return s.robotCommand(ctx, service.Command{Type: service.CmdToggleDocked})
	case "engage":
		return s.robotCommand(ctx, service.Command{Type: service.CmdToggleEngaged})
	case "slot":
		if len(args) != 1 {
			return fmt.Errorf("%w: slot left|center|right", ErrUsage)
		}
		return s.robotCommand(ctx, service.Command{Type: service.CmdSetSlot, Slot: args[0]})
	case "play", "pause", "reset", "archive":
		return s.matchCommand(ctx, service.Command{Type: service.CommandType(verb)})
	case "toggle":
		return s.matchCommand(ctx, service.Command{Type: service.CmdToggleClock})
	case "tick":
		if len(args) != 1 {
			return fmt.Errorf("%w: tick <seconds>", ErrUsage)
		}
		dt, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("%w: seconds %q", ErrUsage, args[0])
		}
		s.svc.Advance(dt)
		return s.show(ctx)
	case "export":
		if len(args) != 1 {
			return fmt.Errorf("%w: export <file>", ErrUsage)
		}
		return s.export(ctx, args[0])
	case "import":
		if len(args) != 1 {
			return fmt.Errorf("%w: import <file>", ErrUsage)
		}
		return s.importFile(ctx, args[0])
	case "save":
		res, err := s.svc.Save(ctx, s.matchID, false)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(s.out, "saved %s\n", res.Summary.Key)
		return nil
	}
	return fmt.Errorf("%w: unknown command %q, try help", ErrUsage, verb)
}

func (s *Session) show(ctx context.Context) error {
	v, err := s.svc.Get(ctx, s.matchID)
	if err != nil {
		return err
	}
	BoardFromView(v).Print(s.out)
	return nil
}

func (s *Session) selectRobot(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: select <team>", ErrUsage)
	}
	v, err := s.svc.Get(ctx, s.matchID)
	if err != nil {
		return err
	}
	for _, r := range v.Robots {
		if r.Team == args[0] {
			s.team, s.alliance, s.selected = r.Team, r.Alliance, true
			_, _ = fmt.Fprintf(s.out, "selected %s %s holding %s\n", r.Alliance, r.Team, r.Inventory)
			return nil
		}
	}
	return fmt.Errorf("team %s is not in this match", args[0])
}

// selectPiece chooses the piece for later pickups. Before the clock has
// started it preloads the selected robot instead.
func (s *Session) selectPiece(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: piece cube|cone", ErrUsage)
	}
	kind, err := types.ParseItemKind(args[0])
	if err != nil || kind == types.ItemEmpty {
		return fmt.Errorf("%w: piece cube|cone", ErrUsage)
	}
	v, err := s.svc.Get(ctx, s.matchID)
	if err != nil {
		return err
	}
	if v.Time == 0 && s.selected {
		return s.robotCommand(ctx, service.Command{Type: service.CmdPreload, Item: kind.String()})
	}
	s.piece = kind
	_, _ = fmt.Fprintf(s.out, "piece %s\n", kind)
	return nil
}

func (s *Session) robotCommand(ctx context.Context, cmd service.Command) error {
	if !s.selected {
		return ErrNoRobot
	}
	cmd.Team, cmd.Alliance = s.team, s.alliance.String()
	return s.matchCommand(ctx, cmd)
}

func (s *Session) matchCommand(ctx context.Context, cmd service.Command) error {
	res, err := s.svc.Execute(ctx, s.matchID, cmd)
	if err != nil {
		return err
	}
	if res.Event != "" {
		_, _ = fmt.Fprintf(s.out, "%s at %s\n", res.Event, res.Match.Timer)
	}
	BoardFromView(res.Match).Print(s.out)
	return nil
}

func (s *Session) export(ctx context.Context, path string) error {
	rec, err := s.svc.Export(ctx, s.matchID)
	if err != nil {
		return err
	}
	data, err := snapshot.Marshal(rec)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(s.out, "exported %d events to %s\n", len(rec.Events), path)
	return nil
}

// importFile replaces the session's match with one restored from path.
// The selection is kept when the team is in the new match.
func (s *Session) importFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rec, err := snapshot.Unmarshal(data)
	if err != nil {
		return err
	}
	v, err := s.svc.Import(ctx, rec)
	if err != nil {
		return err
	}
	s.matchID = v.ID
	if s.selected {
		s.selected = false
		for _, r := range v.Robots {
			if r.Team == s.team && r.Alliance == s.alliance {
				s.selected = true
			}
		}
	}
	_, _ = fmt.Fprintf(s.out, "imported match %s\n", v.ID)
	BoardFromView(v).Print(s.out)
	return nil
}

const help = `commands:
  select <team>                 choose the robot that later commands act for
  piece cube|cone               choose the piece; before the clock starts it preloads
  pickup [origin]               pick up the chosen piece (field, single_substation, ...)
  drop                          clear the robot's inventory
  click <cell>                  score on an empty cell or dislodge an occupied one
  score <cell> | dislodge <cell>
  mobility | enable | dock | engage | slot <left|center|right>
  play | pause | toggle | tick <seconds> | reset | archive
  show | save | export <file> | import <file> | quit
`
