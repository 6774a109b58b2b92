package simulate_test

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	service "github.com/okian/scout/internal/app"
	"github.com/okian/scout/internal/config"
	"github.com/okian/scout/internal/server"
	"github.com/okian/scout/internal/simulate"
	"github.com/okian/scout/pkg/logger"
)

func TestGenerate(t *testing.T) {
	Convey("Given generated plans", t, func() {
		plans := simulate.Generate(rand.New(rand.NewPCG(7, 7)), 5, 80, 100)

		Convey("Then teams are unique across plans", func() {
			seen := map[string]bool{}
			for _, p := range plans {
				for _, team := range append(p.Request.Red[:], p.Request.Blue[:]...) {
					So(seen[team], ShouldBeFalse)
					seen[team] = true
				}
			}
			So(seen, ShouldHaveLength, 30)
		})

		Convey("Then every command applies cleanly", func() {
			ctx := context.Background()
			svc := service.New(service.WithLogger(logger.Nop()))
			for _, p := range plans {
				v, err := svc.Create(ctx, p.Request)
				So(err, ShouldBeNil)
				for _, cmd := range p.Commands {
					_, err := svc.Execute(ctx, v.ID, cmd)
					So(err, ShouldBeNil)
				}
			}
		})

		Convey("Then equal seeds give equal plans", func() {
			again := simulate.Generate(rand.New(rand.NewPCG(7, 7)), 5, 80, 100)
			So(again, ShouldResemble, plans)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a scout server", t, func() {
		So(logger.Init(logger.WithWriter(io.Discard)), ShouldBeNil)
		srv, err := server.New(context.Background(), config.New(), logger.Nop())
		So(err, ShouldBeNil)
		ts := httptest.NewServer(srv.Handler())
		defer ts.Close()

		Convey("When a simulation runs against it", func() {
			stats, err := simulate.Run(context.Background(), &simulate.Config{
				BaseURL:       ts.URL,
				Matches:       4,
				Steps:         60,
				Workers:       2,
				Timeout:       5 * time.Second,
				Seed:          42,
				DuplicateRate: 0.25,
				TeamBase:      5000,
			})

			Convey("Then every match derives the same state as the local replay", func() {
				So(err, ShouldBeNil)
				So(stats.MatchesCreated, ShouldEqual, 4)
				So(stats.MatchesVerified, ShouldEqual, 4)
				So(stats.MatchesFailed, ShouldEqual, 0)
				So(stats.Mismatches, ShouldBeEmpty)
				So(stats.CommandsDuplicate, ShouldBeGreaterThan, 0)
				So(stats.CommandsApplied+stats.CommandsDuplicate, ShouldEqual, stats.CommandsSubmitted)
				So(stats.LeaderboardSize, ShouldEqual, 10)
			})
		})

		Convey("When the service is unreachable", func() {
			ts.Close()
			_, err := simulate.Run(context.Background(), &simulate.Config{
				BaseURL: ts.URL, Matches: 1, Steps: 1, Workers: 1, Timeout: time.Second,
			})
			So(err, ShouldNotBeNil)
		})
	})
}
