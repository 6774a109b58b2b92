// Package console is a line-oriented scouting session: it keeps the
// operator's selection (robot and game piece) and turns short commands into
// service commands.
package console

import (
	"fmt"
	"io"
	"strings"

	service "github.com/okian/scout/internal/app"
	"github.com/okian/scout/internal/domain/scoring"
	"github.com/okian/scout/internal/domain/types"
)

// Board is what gets printed for a match state.
type Board struct {
	Header string
	Score  scoring.Score
	Links  scoring.Score
	Red    []types.ItemKind
	Blue   []types.ItemKind
}

// BoardFromView builds a board from a service view.
func BoardFromView(v service.View) Board {
	return Board{
		Header: fmt.Sprintf("%s %s %s", v.Timer, v.Phase, v.Clock),
		Score:  v.Score,
		Links:  v.Links,
		Red:    v.RedGrid,
		Blue:   v.BlueGrid,
	}
}

// BoardFromState builds a board from a folded state.
func BoardFromState(header string, e *scoring.Engine, st scoring.State) Board {
	return Board{
		Header: header,
		Score:  st.Score,
		Links:  scoring.Score{Red: e.Links(&st.Red), Blue: e.Links(&st.Blue)},
		Red:    st.Red[:],
		Blue:   st.Blue[:],
	}
}

// Print writes the board: a header, the score line and both grids with
// the top row first.
func (b Board) Print(w io.Writer) {
	_, _ = fmt.Fprintln(w, b.Header)
	_, _ = fmt.Fprintf(w, "red %d (%d links)  blue %d (%d links)\n",
		b.Score.Red, b.Links.Red, b.Score.Blue, b.Links.Blue)
	for row := range types.GridRows {
		lo, hi := row*types.GridColumns, (row+1)*types.GridColumns
		_, _ = fmt.Fprintf(w, "%s   %s\n", gridRow(b.Red, lo, hi), gridRow(b.Blue, lo, hi))
	}
}

func gridRow(g []types.ItemKind, lo, hi int) string {
	var sb strings.Builder
	for i := lo; i < hi && i < len(g); i++ {
		sb.WriteByte(glyph(g[i]))
	}
	return sb.String()
}

func glyph(k types.ItemKind) byte {
	switch k {
	case types.ItemCube:
		return 'C'
	case types.ItemCone:
		return 'A'
	default:
		return '.'
	}
}
