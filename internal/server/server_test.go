package server_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/scout/internal/config"
	"github.com/okian/scout/internal/server"
	"github.com/okian/scout/pkg/logger"
)

func TestServer(t *testing.T) {
	Convey("Given a server built from default config", t, func() {
		cfg := config.New()
		srv, err := server.New(context.Background(), cfg, logger.Nop())
		So(err, ShouldBeNil)

		Convey("When it serves on a local listener", func() {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			So(err, ShouldBeNil)
			base := "http://" + ln.Addr().String()

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- srv.Serve(ctx, ln) }()

			Convey("Then every surface answers and shutdown is clean", func() {
				for _, path := range []string{"/healthz", "/api-docs", "/openapi.yaml", "/display/", "/leaderboard"} {
					resp, err := http.Get(base + path)
					So(err, ShouldBeNil)
					_ = resp.Body.Close()
					So(resp.StatusCode, ShouldEqual, http.StatusOK)
				}

				resp, err := http.Post(base+"/matches", "application/json",
					strings.NewReader(`{"red":["1","2","3"],"blue":["4","5","6"]}`))
				So(err, ShouldBeNil)
				var view struct {
					ID          string  `json:"id"`
					AutoLength  float64 `json:"auto_length"`
					MatchLength float64 `json:"match_length"`
				}
				So(json.NewDecoder(resp.Body).Decode(&view), ShouldBeNil)
				_ = resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				So(view.AutoLength, ShouldEqual, cfg.AutoLengthSec)
				So(view.MatchLength, ShouldEqual, cfg.MatchLengthSec)
				So(srv.Service().List(context.Background()), ShouldHaveLength, 1)

				cancel()
				select {
				case err := <-done:
					So(err, ShouldBeNil)
				case <-time.After(5 * time.Second):
					So("server did not stop", ShouldBeEmpty)
				}
			})

			Reset(cancel)
		})
	})

	Convey("Given a postgres config with an unusable dsn", t, func() {
		cfg := config.New()
		cfg.StoreDriver = config.StorePostgres
		cfg.PostgresDSN = "not a dsn"

		Convey("Then building the server fails", func() {
			_, err := server.New(context.Background(), cfg, logger.Nop())
			So(err, ShouldNotBeNil)
		})
	})
}
