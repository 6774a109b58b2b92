package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/scout/internal/adapters/repository"
	service "github.com/okian/scout/internal/app"
	"github.com/okian/scout/internal/domain/match"
	"github.com/okian/scout/internal/domain/model"
	"github.com/okian/scout/internal/domain/snapshot"
	"github.com/okian/scout/internal/domain/types"
	"github.com/okian/scout/pkg/logger"
)

var (
	red  = [3]string{"254", "1678", "971"}
	blue = [3]string{"118", "2056", "148"}
)

func cell(c int) *int { return &c }

func newService(opts ...service.Option) *service.Service {
	return service.New(append([]service.Option{service.WithLogger(logger.Nop())}, opts...)...)
}

func create(s *service.Service) service.View {
	v, err := s.Create(context.Background(), service.CreateRequest{
		Red:  red,
		Blue: blue,
		Info: match.Info{MatchType: "qualification", CompetitionType: "district", MatchNumber: 12},
	})
	So(err, ShouldBeNil)
	return v
}

func exec(s *service.Service, id string, cmd service.Command) service.Result {
	res, err := s.Execute(context.Background(), id, cmd)
	So(err, ShouldBeNil)
	return res
}

func TestCreateAndList(t *testing.T) {
	Convey("Given a service", t, func() {
		s := newService()
		ctx := context.Background()

		Convey("When a match is created", func() {
			v := create(s)

			Convey("Then it starts empty and stopped", func() {
				So(v.ID, ShouldNotBeEmpty)
				So(v.Clock, ShouldEqual, match.ClockStopped)
				So(v.Timer, ShouldEqual, "0:00.00")
				So(v.Phase, ShouldEqual, types.PhaseAuto)
				So(v.Score.Red, ShouldEqual, 0)
				So(v.RedGrid, ShouldHaveLength, types.GridCells)
				So(v.Robots, ShouldHaveLength, 6)
				So(v.Robots[0].Team, ShouldEqual, "254")
				So(v.Robots[3].Alliance, ShouldEqual, types.Blue)
			})

			Convey("Then it is listed and retrievable", func() {
				list := s.List(ctx)
				So(list, ShouldHaveLength, 1)
				So(list[0].ID, ShouldEqual, v.ID)
				got, err := s.Get(ctx, v.ID)
				So(err, ShouldBeNil)
				So(got.Info.MatchNumber, ShouldEqual, 12)
			})

			Convey("Then it can be removed", func() {
				So(s.Remove(ctx, v.ID), ShouldBeNil)
				_, err := s.Get(ctx, v.ID)
				So(errors.Is(err, service.ErrMatchNotFound), ShouldBeTrue)
				So(errors.Is(s.Remove(ctx, v.ID), service.ErrMatchNotFound), ShouldBeTrue)
			})
		})

		Convey("When teams repeat within an alliance", func() {
			_, err := s.Create(ctx, service.CreateRequest{Red: [3]string{"1", "1", "2"}, Blue: blue})
			So(errors.Is(err, match.ErrInvalidTeams), ShouldBeTrue)
		})

		Convey("When custom lengths are requested", func() {
			v, err := s.Create(ctx, service.CreateRequest{Red: red, Blue: blue, AutoLength: 10, MatchLength: 60})
			So(err, ShouldBeNil)
			So(v.AutoLength, ShouldEqual, 10)
			So(v.MatchLength, ShouldEqual, 60)
		})
	})
}

func TestExecute(t *testing.T) {
	Convey("Given a live match", t, func() {
		s := newService()
		ctx := context.Background()
		id := create(s).ID

		Convey("When a robot picks up and scores during auto", func() {
			exec(s, id, service.Command{Type: service.CmdPickUp, Team: "254", Alliance: "red", Item: "cone", Origin: "double_substation"})
			res := exec(s, id, service.Command{Type: service.CmdScore, Team: "254", Alliance: "red", Cell: cell(0)})

			Convey("Then the auto points are banked", func() {
				So(res.Event, ShouldEqual, model.KindScore)
				So(res.Match.Score.Red, ShouldEqual, 6)
				So(res.Match.RedGrid[0], ShouldEqual, types.ItemCone)
				So(res.Match.Robots[0].Points, ShouldEqual, 6)
				So(res.Match.Events, ShouldEqual, 2)
			})

			Convey("Then a field click on the same cell dislodges it", func() {
				res := exec(s, id, service.Command{Type: service.CmdFieldClick, Team: "254", Alliance: "red", Cell: cell(0)})
				So(res.Event, ShouldEqual, model.KindDislodge)
				So(res.Match.RedGrid[0], ShouldEqual, types.ItemEmpty)
				So(res.Match.Score.Red, ShouldEqual, 6)
			})
		})

		Convey("When a command breaks a precondition", func() {
			_, err := s.Execute(ctx, id, service.Command{Type: service.CmdScore, Team: "254", Alliance: "red", Cell: cell(0)})

			Convey("Then the match error is returned and nothing is logged", func() {
				So(errors.Is(err, match.ErrInventoryEmpty), ShouldBeTrue)
				So(service.IsPrecondition(err), ShouldBeTrue)
				v, err := s.Get(ctx, id)
				So(err, ShouldBeNil)
				So(v.Events, ShouldEqual, 0)
			})
		})

		Convey("When commands are malformed", func() {
			_, err := s.Execute(ctx, id, service.Command{Type: "teleport"})
			So(errors.Is(err, service.ErrUnknownCommand), ShouldBeTrue)

			_, err = s.Execute(ctx, id, service.Command{Type: service.CmdScore, Team: "254", Alliance: "red"})
			So(errors.Is(err, service.ErrInvalidCommand), ShouldBeTrue)

			_, err = s.Execute(ctx, id, service.Command{Type: service.CmdPickUp, Team: "254", Alliance: "red", Item: "ball"})
			So(errors.Is(err, service.ErrInvalidCommand), ShouldBeTrue)

			_, err = s.Execute(ctx, id, service.Command{Type: service.CmdMobility, Team: "254", Alliance: "blue"})
			So(errors.Is(err, match.ErrUnknownRobot), ShouldBeTrue)

			_, err = s.Execute(ctx, "nope", service.Command{Type: service.CmdPlay})
			So(errors.Is(err, service.ErrMatchNotFound), ShouldBeTrue)
		})

		Convey("When a command id is repeated", func() {
			cmd := service.Command{ID: "c-1", Type: service.CmdMobility, Team: "118", Alliance: "blue"}
			first := exec(s, id, cmd)
			second := exec(s, id, cmd)

			Convey("Then it is applied once", func() {
				So(first.Duplicate, ShouldBeFalse)
				So(second.Duplicate, ShouldBeTrue)
				So(second.Match.Events, ShouldEqual, 1)
				So(second.Match.Score.Blue, ShouldEqual, 3)
			})
		})

		Convey("When a rejected command id is retried after fixing the state", func() {
			cmd := service.Command{ID: "c-2", Type: service.CmdScore, Team: "118", Alliance: "blue", Cell: cell(19)}
			_, err := s.Execute(ctx, id, cmd)
			So(errors.Is(err, match.ErrInventoryEmpty), ShouldBeTrue)

			exec(s, id, service.Command{Type: service.CmdSetInventory, Team: "118", Alliance: "blue", Item: "cube"})
			res := exec(s, id, cmd)

			Convey("Then the retry is applied", func() {
				So(res.Duplicate, ShouldBeFalse)
				So(res.Match.BlueGrid[19], ShouldEqual, types.ItemCube)
			})
		})

		Convey("When robot toggles and slots change", func() {
			res := exec(s, id, service.Command{Type: service.CmdToggleDocked, Team: "971", Alliance: "red"})
			So(res.Event, ShouldEqual, model.KindDock)
			res = exec(s, id, service.Command{Type: service.CmdToggleDocked, Team: "971", Alliance: "red"})
			So(res.Event, ShouldEqual, model.KindUndock)
			res = exec(s, id, service.Command{Type: service.CmdSetSlot, Team: "971", Alliance: "red", Slot: "center"})
			So(res.Match.Robots[2].Slot, ShouldEqual, types.SlotCenter)
		})
	})
}

func TestClockDriving(t *testing.T) {
	Convey("Given a live match", t, func() {
		s := newService()
		ctx := context.Background()
		id := create(s).ID

		Convey("When a preload is chosen before the start", func() {
			res := exec(s, id, service.Command{Type: service.CmdPreload, Team: "1678", Alliance: "red", Item: "cube"})
			So(res.Match.Robots[1].StartingItem, ShouldEqual, types.ItemCube)

			Convey("Then it is refused once the clock moved", func() {
				exec(s, id, service.Command{Type: service.CmdPlay})
				s.Advance(1)
				_, err := s.Execute(ctx, id, service.Command{Type: service.CmdPreload, Team: "1678", Alliance: "red", Item: "cone"})
				So(errors.Is(err, match.ErrClockStarted), ShouldBeTrue)
			})
		})

		Convey("When the clock runs past auto", func() {
			exec(s, id, service.Command{Type: service.CmdPlay})
			s.Advance(20)

			Convey("Then the match is in teleop and mobility is refused", func() {
				v, err := s.Get(ctx, id)
				So(err, ShouldBeNil)
				So(v.Time, ShouldEqual, 20)
				So(v.Phase, ShouldEqual, types.PhaseTeleop)
				_, err = s.Execute(ctx, id, service.Command{Type: service.CmdMobility, Team: "254", Alliance: "red"})
				So(errors.Is(err, match.ErrWrongPhase), ShouldBeTrue)
			})

			Convey("Then paused matches do not advance", func() {
				exec(s, id, service.Command{Type: service.CmdPause})
				s.Advance(5)
				v, err := s.Get(ctx, id)
				So(err, ShouldBeNil)
				So(v.Time, ShouldEqual, 20)
			})

			Convey("Then the clock stops at the match end", func() {
				s.Advance(500)
				v, err := s.Get(ctx, id)
				So(err, ShouldBeNil)
				So(v.Time, ShouldEqual, match.DefaultMatchLength)
				So(v.Clock, ShouldEqual, match.ClockEnded)
			})
		})
	})
}

func TestSaveAndLoad(t *testing.T) {
	Convey("Given a played match", t, func() {
		ranks := repository.NewTreapStore()
		store := repository.NewMemorySnapshotStore()
		s := newService(service.WithRankStore(ranks), service.WithSnapshotStore(store))
		ctx := context.Background()
		id := create(s).ID

		exec(s, id, service.Command{Type: service.CmdMobility, Team: "254", Alliance: "red"})
		exec(s, id, service.Command{Type: service.CmdSetInventory, Team: "254", Alliance: "red", Item: "cube"})
		exec(s, id, service.Command{Type: service.CmdScore, Team: "254", Alliance: "red", Cell: cell(1)})
		exec(s, id, service.Command{Type: service.CmdSetInventory, Team: "118", Alliance: "blue", Item: "cone"})
		exec(s, id, service.Command{Type: service.CmdScore, Team: "118", Alliance: "blue", Cell: cell(20)})

		Convey("When it is saved and archived", func() {
			res, err := s.Save(ctx, id, true)
			So(err, ShouldBeNil)

			Convey("Then the snapshot is stored under its metadata key", func() {
				So(res.Summary.Key, ShouldEqual, "MATCH-district-qualification-12")
				So(res.Summary.RedScore, ShouldEqual, 9)
				So(res.Summary.BlueScore, ShouldEqual, 3)
				list, err := s.Saved(ctx)
				So(err, ShouldBeNil)
				So(list, ShouldHaveLength, 1)
			})

			Convey("Then every team is ranked by its banked points", func() {
				So(res.Ranked, ShouldHaveLength, 6)
				top, err := s.TopN(ctx, 2)
				So(err, ShouldBeNil)
				So(top[0].TeamID, ShouldEqual, "254")
				So(top[0].Score, ShouldEqual, 9)
				So(top[1].TeamID, ShouldEqual, "118")
				e, err := s.Rank(ctx, "971")
				So(err, ShouldBeNil)
				So(e.Score, ShouldEqual, 0)
				So(e.Rank, ShouldEqual, 3)
			})

			Convey("Then the live match rejects commands", func() {
				_, err := s.Execute(ctx, id, service.Command{Type: service.CmdMobility, Team: "118", Alliance: "blue"})
				So(errors.Is(err, match.ErrArchived), ShouldBeTrue)
			})

			Convey("Then loading it gives an identical, archived match", func() {
				v, err := s.Load(ctx, res.Summary.Key)
				So(err, ShouldBeNil)
				So(v.ID, ShouldNotEqual, id)
				So(v.Archived, ShouldBeTrue)
				So(v.Score.Red, ShouldEqual, 9)
				So(v.RedGrid[1], ShouldEqual, types.ItemCube)
				So(v.Robots[0].MobilityEarned, ShouldBeTrue)
			})
		})

		Convey("When it is exported and imported", func() {
			rec, err := s.Export(ctx, id)
			So(err, ShouldBeNil)
			v, err := s.Import(ctx, rec)
			So(err, ShouldBeNil)

			Convey("Then the copy is live and independent", func() {
				So(v.Archived, ShouldBeFalse)
				So(v.Score.Blue, ShouldEqual, 3)
				exec(s, v.ID, service.Command{Type: service.CmdReset})
				orig, err := s.Get(ctx, id)
				So(err, ShouldBeNil)
				So(orig.Events, ShouldEqual, 5)
			})
		})

		Convey("When loading an unknown key", func() {
			_, err := s.Load(ctx, "MATCH-x-y-1")
			So(errors.Is(err, repository.ErrSnapshotNotFound), ShouldBeTrue)
		})

		Convey("When saving a match without a number", func() {
			v, err := s.Create(ctx, service.CreateRequest{Red: red, Blue: blue})
			So(err, ShouldBeNil)
			res, err := s.Save(ctx, v.ID, false)
			So(err, ShouldBeNil)
			So(res.Summary.Key, ShouldEqual, "MATCH-"+v.ID)
		})

		Convey("When saving a match with a number but no competition", func() {
			v, err := s.Create(ctx, service.CreateRequest{Red: red, Blue: blue, Info: match.Info{MatchNumber: 7}})
			So(err, ShouldBeNil)
			res, err := s.Save(ctx, v.ID, false)
			So(err, ShouldBeNil)
			So(res.Summary.Key, ShouldEqual, "MATCH-"+v.ID)
		})
	})

	Convey("Given a store that refuses writes", t, func() {
		errDisk := errors.New("disk full")
		s := newService(service.WithSnapshotStore(failingStore{
			SnapshotStore: repository.NewMemorySnapshotStore(),
			err:           errDisk,
		}))
		ctx := context.Background()
		id := create(s).ID

		Convey("When an archiving save fails", func() {
			_, err := s.Save(ctx, id, true)
			So(errors.Is(err, errDisk), ShouldBeTrue)

			Convey("Then the live match is still writable", func() {
				v, err := s.Get(ctx, id)
				So(err, ShouldBeNil)
				So(v.Archived, ShouldBeFalse)
				exec(s, id, service.Command{Type: service.CmdMobility, Team: "254", Alliance: "red"})
			})
		})
	})
}

type failingStore struct {
	repository.SnapshotStore
	err error
}

func (f failingStore) Save(context.Context, repository.Summary, *snapshot.Record) error {
	return f.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	frames []model.Frame
}

func (p *recordingPublisher) Publish(ctx context.Context, f model.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, f)
	return nil
}

func (p *recordingPublisher) last() (model.Frame, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.frames) == 0 {
		return model.Frame{}, 0
	}
	return p.frames[len(p.frames)-1], len(p.frames)
}

func TestStartedService(t *testing.T) {
	Convey("Given a started service with a publisher", t, func() {
		pub := &recordingPublisher{}
		s := newService(service.WithPublisher(pub), service.WithTickHz(200))
		ctx := context.Background()
		So(s.Start(ctx), ShouldBeNil)
		defer s.Stop()
		id := create(s).ID

		Convey("When the clock is started", func() {
			exec(s, id, service.Command{Type: service.CmdPlay})

			Convey("Then the ticker advances it and frames reach the publisher", func() {
				deadline := time.Now().Add(2 * time.Second)
				var f model.Frame
				for time.Now().Before(deadline) {
					v, err := s.Get(ctx, id)
					So(err, ShouldBeNil)
					if v.Time > 0 {
						if f, _ = pub.last(); f.Running {
							break
						}
					}
					time.Sleep(10 * time.Millisecond)
				}
				So(f.MatchID, ShouldEqual, id)
				So(f.Running, ShouldBeTrue)
				So(f.Robots, ShouldHaveLength, 6)
			})
		})

		Convey("Then stats report the live match", func() {
			stats := s.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["matches"], ShouldEqual, 1)
		})
	})
}
