package model_test

import (
	"errors"
	"testing"

	model "github.com/okian/scout/internal/domain/model"
	"github.com/okian/scout/internal/domain/types"
	"github.com/smartystreets/goconvey/convey"
)

func TestEvent(t *testing.T) {
	convey.Convey("Given events built with the kind constructors", t, func() {
		robot := model.RobotRef{Team: "254", Color: types.Red}

		convey.Convey("When building a pick up", func() {
			e := model.NewPickUp(robot, 3.25, types.ItemCube, types.OriginField)

			convey.Convey("Then it carries the robot, time and payload", func() {
				convey.So(e.Kind, convey.ShouldEqual, model.KindPickUp)
				convey.So(e.Robot, convey.ShouldResemble, robot)
				convey.So(e.Timestamp, convey.ShouldEqual, 3.25)
				convey.So(e.Item, convey.ShouldEqual, types.ItemCube)
				convey.So(e.Origin, convey.ShouldEqual, types.OriginField)
				convey.So(e.Validate(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When checking the autonomous boundary", func() {
			convey.So(model.NewStatus(model.KindEarnMobility, robot, 14.99).IsAuto(15), convey.ShouldBeTrue)
			convey.So(model.NewStatus(model.KindEarnMobility, robot, 15).IsAuto(15), convey.ShouldBeFalse)
			convey.So(model.NewScore(robot, 15.01, 0, types.ItemCone).Phase(15), convey.ShouldEqual, types.PhaseTeleop)
		})

		convey.Convey("When validating malformed events", func() {
			cases := []model.Event{
				{Kind: "teleport", Robot: robot},
				{Kind: model.KindEnable},
				model.NewScore(robot, 1, 27, types.ItemCube),
				model.NewScore(robot, 1, 3, types.ItemEmpty),
				model.NewDislodge(robot, 1, -1),
				model.NewPickUp(robot, 1, types.ItemEmpty, types.OriginField),
				model.NewStatus(model.KindDock, robot, -0.5),
			}

			convey.Convey("Then each one is rejected", func() {
				for _, e := range cases {
					convey.So(errors.Is(e.Validate(), model.ErrInvalidEvent), convey.ShouldBeTrue)
				}
			})
		})

		convey.Convey("When validating every payload-free kind", func() {
			for _, k := range []model.Kind{
				model.KindClearInventory, model.KindEarnMobility, model.KindEnable, model.KindDisable,
				model.KindDock, model.KindUndock, model.KindEngage, model.KindDisengage,
			} {
				convey.So(model.NewStatus(k, robot, 0).Validate(), convey.ShouldBeNil)
			}
		})

		convey.Convey("Then the robot reference prints color and team", func() {
			convey.So(robot.String(), convey.ShouldEqual, "red/254")
		})
	})
}
