package simulate

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	service "github.com/okian/scout/internal/app"
	"github.com/okian/scout/internal/domain/types"
)

// Plan is one generated match: its teams and the commands to play.
type Plan struct {
	Request  service.CreateRequest
	Commands []service.Command
}

var (
	pieces  = []types.ItemKind{types.ItemCube, types.ItemCone}
	origins = []types.Origin{
		types.OriginField, types.OriginLoadingDrop, types.OriginLoadingSlide,
		types.OriginLoadingChute, types.OriginSingleSubstation, types.OriginDoubleSubstation,
	}
)

// Generate builds n plans of steps robot actions each. Team numbers are
// handed out from teamBase so no two plans share a team. Every generated
// command is valid against the state the earlier commands produce.
func Generate(rng *rand.Rand, n, steps, teamBase int) []Plan {
	plans := make([]Plan, n)
	for i := range plans {
		plans[i] = generatePlan(rng, i, steps, teamBase+i*6)
	}
	return plans
}

type robotState struct {
	team      string
	alliance  types.Color
	inventory types.ItemKind
	mobility  bool
}

func generatePlan(rng *rand.Rand, idx, steps, firstTeam int) Plan {
	var p Plan
	robots := make([]*robotState, 6)
	for j := range robots {
		team := strconv.Itoa(firstTeam + j)
		color := types.Red
		if j >= 3 {
			color = types.Blue
			p.Request.Blue[j-3] = team
		} else {
			p.Request.Red[j] = team
		}
		robots[j] = &robotState{team: team, alliance: color}
	}
	p.Request.Info.MatchType = "simulation"
	p.Request.Info.CompetitionType = "load"
	p.Request.Info.MatchNumber = idx + 1

	var grids [2][types.GridCells]types.ItemKind
	emit := func(r *robotState, typ service.CommandType, set func(*service.Command)) {
		cmd := service.Command{
			ID:       fmt.Sprintf("m%d-c%d", idx, len(p.Commands)),
			Type:     typ,
			Team:     r.team,
			Alliance: r.alliance.String(),
		}
		if set != nil {
			set(&cmd)
		}
		p.Commands = append(p.Commands, cmd)
	}

	for range steps {
		r := robots[rng.IntN(len(robots))]
		grid := &grids[r.alliance]
		switch roll := rng.IntN(10); {
		case roll < 6:
			if r.inventory == types.ItemEmpty {
				item, origin := pieces[rng.IntN(len(pieces))], origins[rng.IntN(len(origins))]
				emit(r, service.CmdPickUp, func(c *service.Command) {
					c.Item, c.Origin = item.String(), origin.String()
				})
				r.inventory = item
			}
			cell, ok := pickCell(rng, grid, func(i int) bool {
				return grid[i] == types.ItemEmpty && types.Accepts(i, r.inventory)
			})
			if !ok {
				emit(r, service.CmdClearInventory, nil)
				r.inventory = types.ItemEmpty
				continue
			}
			emit(r, service.CmdScore, func(c *service.Command) { c.Cell = &cell })
			grid[cell], r.inventory = r.inventory, types.ItemEmpty
		case roll == 6:
			if !r.mobility {
				emit(r, service.CmdMobility, nil)
				r.mobility = true
			}
		case roll == 7:
			if cell, ok := pickCell(rng, grid, func(i int) bool { return grid[i] != types.ItemEmpty }); ok {
				emit(r, service.CmdDislodge, func(c *service.Command) { c.Cell = &cell })
				grid[cell] = types.ItemEmpty
			}
		case roll == 8:
			emit(r, service.CmdToggleDocked, nil)
		default:
			emit(r, service.CmdToggleEngaged, nil)
		}
	}
	return p
}

func pickCell(rng *rand.Rand, grid *[types.GridCells]types.ItemKind, ok func(int) bool) (int, bool) {
	var cells []int
	for i := range grid {
		if ok(i) {
			cells = append(cells, i)
		}
	}
	if len(cells) == 0 {
		return 0, false
	}
	return cells[rng.IntN(len(cells))], true
}
