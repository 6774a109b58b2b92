package types

// PiecePoints holds the value of a placed game piece per grid row.
type PiecePoints struct {
	Top    int
	Middle int
	Bottom int
}

// ForRow returns the value of a piece placed on row r.
func (p PiecePoints) ForRow(r Row) int {
	switch r {
	case RowTop:
		return p.Top
	case RowMiddle:
		return p.Middle
	default:
		return p.Bottom
	}
}

// PhasePoints is the point table for one match phase. Fields that do not
// apply to a phase are zero.
type PhasePoints struct {
	Mobility         int
	GamePieces       PiecePoints
	DockedNotEngaged int
	DockedAndEngaged int
	Link             int
	Park             int
}

// PointTable maps each phase to its values.
type PointTable struct {
	Auto   PhasePoints
	Teleop PhasePoints
}

// For returns the values for phase p.
func (t PointTable) For(p Phase) PhasePoints {
	if p == PhaseAuto {
		return t.Auto
	}
	return t.Teleop
}

// Points is the point table for the 2023 game.
var Points = PointTable{
	Auto: PhasePoints{
		Mobility:         3,
		GamePieces:       PiecePoints{Top: 6, Middle: 4, Bottom: 3},
		DockedNotEngaged: 8,
		DockedAndEngaged: 12,
	},
	Teleop: PhasePoints{
		GamePieces:       PiecePoints{Top: 5, Middle: 3, Bottom: 2},
		DockedNotEngaged: 6,
		DockedAndEngaged: 10,
		Link:             5,
		Park:             2,
	},
}
