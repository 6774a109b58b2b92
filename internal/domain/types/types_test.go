package types_test

import (
	"encoding/json"
	"errors"
	"testing"

	types "github.com/okian/scout/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGridGeometry(t *testing.T) {
	Convey("Given the 9x3 scoring grid", t, func() {
		Convey("Then rows are derived from the cell index", func() {
			So(types.RowOf(0), ShouldEqual, types.RowTop)
			So(types.RowOf(8), ShouldEqual, types.RowTop)
			So(types.RowOf(9), ShouldEqual, types.RowMiddle)
			So(types.RowOf(17), ShouldEqual, types.RowMiddle)
			So(types.RowOf(18), ShouldEqual, types.RowBottom)
			So(types.RowOf(26), ShouldEqual, types.RowBottom)
		})

		Convey("Then cells outside 0..26 are invalid", func() {
			So(types.ValidCell(-1), ShouldBeFalse)
			So(types.ValidCell(0), ShouldBeTrue)
			So(types.ValidCell(26), ShouldBeTrue)
			So(types.ValidCell(27), ShouldBeFalse)
		})
	})
}

func TestAccepts(t *testing.T) {
	Convey("Given the column compatibility rule", t, func() {
		Convey("When the cell is a cube column above the hybrid row", func() {
			for _, cell := range []int{1, 4, 7, 10, 13, 16} {
				So(types.Accepts(cell, types.ItemCube), ShouldBeTrue)
				So(types.Accepts(cell, types.ItemCone), ShouldBeFalse)
			}
		})

		Convey("When the cell is any other column above the hybrid row", func() {
			for _, cell := range []int{0, 2, 3, 5, 9, 17} {
				So(types.Accepts(cell, types.ItemCube), ShouldBeTrue)
				So(types.Accepts(cell, types.ItemCone), ShouldBeTrue)
			}
		})

		Convey("When the cell is on the hybrid row", func() {
			for cell := 18; cell < types.GridCells; cell++ {
				So(types.Accepts(cell, types.ItemCube), ShouldBeTrue)
				So(types.Accepts(cell, types.ItemCone), ShouldBeTrue)
			}
		})

		Convey("When nothing is held or the cell is off the grid", func() {
			So(types.Accepts(0, types.ItemEmpty), ShouldBeFalse)
			So(types.Accepts(27, types.ItemCube), ShouldBeFalse)
		})
	})
}

func TestPointTable(t *testing.T) {
	Convey("Given the point table", t, func() {
		Convey("Then autonomous pieces are worth more than teleop pieces", func() {
			So(types.Points.For(types.PhaseAuto).GamePieces.ForRow(types.RowTop), ShouldEqual, 6)
			So(types.Points.For(types.PhaseAuto).GamePieces.ForRow(types.RowMiddle), ShouldEqual, 4)
			So(types.Points.For(types.PhaseAuto).GamePieces.ForRow(types.RowBottom), ShouldEqual, 3)
			So(types.Points.For(types.PhaseTeleop).GamePieces.ForRow(types.RowTop), ShouldEqual, 5)
			So(types.Points.For(types.PhaseTeleop).GamePieces.ForRow(types.RowMiddle), ShouldEqual, 3)
			So(types.Points.For(types.PhaseTeleop).GamePieces.ForRow(types.RowBottom), ShouldEqual, 2)
		})

		Convey("Then link and mobility have their own values", func() {
			So(types.Points.Teleop.Link, ShouldEqual, 5)
			So(types.Points.Auto.Mobility, ShouldEqual, 3)
		})
	})
}

func TestEnumText(t *testing.T) {
	Convey("Given enum names", t, func() {
		Convey("When parsing known names case-insensitively", func() {
			kind, err := types.ParseItemKind("CUBE")
			So(err, ShouldBeNil)
			So(kind, ShouldEqual, types.ItemCube)

			color, err := types.ParseColor(" blue ")
			So(err, ShouldBeNil)
			So(color, ShouldEqual, types.Blue)

			origin, err := types.ParseOrigin("double_substation")
			So(err, ShouldBeNil)
			So(origin, ShouldEqual, types.OriginDoubleSubstation)
		})

		Convey("When parsing an unknown name", func() {
			_, err := types.ParseColor("green")
			So(errors.Is(err, types.ErrUnknownValue), ShouldBeTrue)
		})

		Convey("When encoding through JSON", func() {
			type payload struct {
				Item  types.ItemKind `json:"item"`
				Color types.Color    `json:"alliance"`
			}
			b, err := json.Marshal(payload{Item: types.ItemCone, Color: types.Red})
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, `{"item":"cone","alliance":"red"}`)

			var back payload
			So(json.Unmarshal(b, &back), ShouldBeNil)
			So(back.Item, ShouldEqual, types.ItemCone)
			So(back.Color, ShouldEqual, types.Red)
		})

		Convey("Then the opposing color flips", func() {
			So(types.Red.Other(), ShouldEqual, types.Blue)
			So(types.Blue.Other(), ShouldEqual, types.Red)
		})
	})
}
