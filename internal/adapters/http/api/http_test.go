package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/scout/internal/adapters/http/api"
	"github.com/okian/scout/internal/adapters/ws"
	service "github.com/okian/scout/internal/app"
	"github.com/okian/scout/internal/domain/match"
	"github.com/okian/scout/internal/domain/model"
	"github.com/okian/scout/internal/domain/scoring"
	"github.com/okian/scout/internal/domain/snapshot"
	"github.com/okian/scout/internal/domain/types"
	"github.com/okian/scout/pkg/logger"
)

func newMux(streamer api.FrameStreamer) (*http.ServeMux, *service.Service) {
	svc := service.New(service.WithLogger(logger.Nop()))
	mux := http.NewServeMux()
	api.NewServer(svc, streamer, 50).Register(context.Background(), mux)
	return mux, svc
}

func do(mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		So(json.NewEncoder(&buf).Encode(b), ShouldBeNil)
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var createBody = map[string]any{
	"red":  []string{"254", "1678", "971"},
	"blue": []string{"118", "2056", "148"},
	"info": map[string]any{"match_type": "qualification", "competition_type": "district", "match_number": 7},
}

func TestMatchRoutes(t *testing.T) {
	Convey("Given the API on a fresh service", t, func() {
		mux, _ := newMux(nil)

		Convey("When a match is created", func() {
			w := do(mux, http.MethodPost, "/matches", createBody)
			So(w.Code, ShouldEqual, http.StatusCreated)
			v := decode[service.View](w)
			base := "/matches/" + v.ID

			Convey("Then it can be listed and fetched", func() {
				list := decode[[]service.Summary](do(mux, http.MethodGet, "/matches", nil))
				So(list, ShouldHaveLength, 1)
				got := do(mux, http.MethodGet, base, nil)
				So(got.Code, ShouldEqual, http.StatusOK)
				So(decode[service.View](got).Info.MatchNumber, ShouldEqual, 7)
			})

			Convey("Then commands update the score", func() {
				w := do(mux, http.MethodPost, base+"/commands",
					map[string]any{"type": "set_inventory", "team": "254", "alliance": "red", "item": "cube"})
				So(w.Code, ShouldEqual, http.StatusOK)
				w = do(mux, http.MethodPost, base+"/commands",
					map[string]any{"type": "score", "team": "254", "alliance": "red", "cell": 10})
				So(w.Code, ShouldEqual, http.StatusOK)
				res := decode[service.Result](w)
				So(res.Event, ShouldEqual, model.KindScore)
				So(res.Match.Score.Red, ShouldEqual, 4)
			})

			Convey("Then a refused command answers 409 with the reason", func() {
				w := do(mux, http.MethodPost, base+"/commands",
					map[string]any{"type": "score", "team": "254", "alliance": "red", "cell": 10})
				So(w.Code, ShouldEqual, http.StatusConflict)
				body := decode[errorBody](w)
				So(body.Code, ShouldEqual, "precondition_failed")
				So(body.Message, ShouldContainSubstring, "inventory empty")
			})

			Convey("Then malformed commands answer 400", func() {
				So(do(mux, http.MethodPost, base+"/commands", "{").Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, base+"/commands", map[string]any{"type": "fly"}).Code, ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, base+"/commands", map[string]any{"type": "play", "bogus": 1}).Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then unknown robots answer 404", func() {
				w := do(mux, http.MethodPost, base+"/commands",
					map[string]any{"type": "mobility", "team": "9999", "alliance": "red"})
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})

			Convey("Then duplicate command ids are acknowledged once", func() {
				cmd := map[string]any{"command_id": "a1", "type": "mobility", "team": "118", "alliance": "blue"}
				So(decode[service.Result](do(mux, http.MethodPost, base+"/commands", cmd)).Duplicate, ShouldBeFalse)
				res := decode[service.Result](do(mux, http.MethodPost, base+"/commands", cmd))
				So(res.Duplicate, ShouldBeTrue)
				So(res.Match.Score.Blue, ShouldEqual, 3)
			})

			Convey("Then its snapshot can be exported and imported", func() {
				do(mux, http.MethodPost, base+"/commands", map[string]any{"type": "mobility", "team": "971", "alliance": "red"})
				w := do(mux, http.MethodGet, base+"/snapshot", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				rec := decode[snapshot.Record](w)
				So(rec.Events, ShouldHaveLength, 1)
				So(rec.RedAllianceTeams, ShouldResemble, []string{"254", "1678", "971"})

				w = do(mux, http.MethodPost, "/matches/import", w.Body.String())
				So(w.Code, ShouldEqual, http.StatusCreated)
				imported := decode[service.View](w)
				So(imported.ID, ShouldNotEqual, v.ID)
				So(imported.Score.Red, ShouldEqual, 3)
			})

			Convey("Then saving ranks its teams and the snapshot can be loaded", func() {
				do(mux, http.MethodPost, base+"/commands", map[string]any{"type": "mobility", "team": "971", "alliance": "red"})
				w := do(mux, http.MethodPost, base+"/save?archive=true", nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				saved := decode[service.SaveResult](w)
				So(saved.Summary.Key, ShouldEqual, "MATCH-district-qualification-7")

				top := decode[[]api.Entry](do(mux, http.MethodGet, "/leaderboard?limit=1", nil))
				So(top, ShouldHaveLength, 1)
				So(top[0].TeamID, ShouldEqual, "971")

				rank := do(mux, http.MethodGet, "/rank/971", nil)
				So(rank.Code, ShouldEqual, http.StatusOK)
				So(decode[api.Entry](rank).Score, ShouldEqual, 3)

				list := decode[[]map[string]any](do(mux, http.MethodGet, "/snapshots", nil))
				So(list, ShouldHaveLength, 1)

				w = do(mux, http.MethodPost, "/snapshots/"+saved.Summary.Key+"/load", nil)
				So(w.Code, ShouldEqual, http.StatusCreated)
				So(decode[service.View](w).Archived, ShouldBeTrue)

				archived := do(mux, http.MethodPost, base+"/commands", map[string]any{"type": "mobility", "team": "254", "alliance": "red"})
				So(archived.Code, ShouldEqual, http.StatusConflict)
			})

			Convey("Then it can be removed", func() {
				So(do(mux, http.MethodDelete, base, nil).Code, ShouldEqual, http.StatusNoContent)
				So(do(mux, http.MethodGet, base, nil).Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When creating with bad teams", func() {
			w := do(mux, http.MethodPost, "/matches", map[string]any{
				"red": []string{"1", "1", "2"}, "blue": []string{"3", "4", "5"},
			})
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When importing a malformed snapshot", func() {
			w := do(mux, http.MethodPost, "/matches/import", `{"redAllianceTeams":["1"],"blueAllianceTeams":[],"events":[]}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When asking for unknown resources", func() {
			So(do(mux, http.MethodGet, "/matches/nope", nil).Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/matches/nope/ws", nil).Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodPost, "/snapshots/MATCH-x-y-1/load", nil).Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/rank/254", nil).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestLeaderboardLimits(t *testing.T) {
	Convey("Given the API", t, func() {
		mux, _ := newMux(nil)

		Convey("Then limits are validated", func() {
			So(do(mux, http.MethodGet, "/leaderboard", nil).Code, ShouldEqual, http.StatusOK)
			So(do(mux, http.MethodGet, "/leaderboard?limit=0", nil).Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/leaderboard?limit=abc", nil).Code, ShouldEqual, http.StatusBadRequest)
			w := do(mux, http.MethodGet, "/leaderboard?limit=51", nil)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[errorBody](w).Code, ShouldEqual, "limit_exceeded")
		})

		Convey("Then operational endpoints answer", func() {
			So(do(mux, http.MethodGet, "/healthz", nil).Code, ShouldEqual, http.StatusOK)
			So(do(mux, http.MethodGet, "/metrics", nil).Code, ShouldEqual, http.StatusOK)
			stats := decode[map[string]any](do(mux, http.MethodGet, "/stats", nil))
			So(stats["matches"], ShouldEqual, float64(0))
		})
	})
}

func TestErrorKinds(t *testing.T) {
	Convey("Given API errors", t, func() {
		cause := errors.New("disk full")

		Convey("Then kinds and causes are both visible to errors.Is", func() {
			err := api.WrapKind("api.op", api.ErrInternal, cause)
			So(errors.Is(err, api.ErrInternal), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.op: internal error: disk full")
		})

		Convey("Then Wrap keeps the cause kind", func() {
			err := api.Wrap("api.op", match.ErrCellOccupied)
			So(errors.Is(err, match.ErrCellOccupied), ShouldBeTrue)
			So(api.Wrap("api.op", nil), ShouldBeNil)
			So(api.NewKind("api.op", api.ErrNotFound).Error(), ShouldEqual, "api.op: not found")
		})

		Convey("Then a derivation invariant is a server error", func() {
			mux := http.NewServeMux()
			api.NewServer(brokenDeps{}, nil, 10).Register(context.Background(), mux)
			w := do(mux, http.MethodGet, "/matches/x", nil)
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decode[errorBody](w).Code, ShouldEqual, "derivation_invariant")
		})
	})
}

// brokenDeps fails every match read with a fold error.
type brokenDeps struct {
	*service.Service
}

func (brokenDeps) Get(ctx context.Context, id string) (service.View, error) {
	return service.View{}, scoring.ErrDerivationInvariant
}

func TestFrameStream(t *testing.T) {
	Convey("Given the API with a websocket hub and a started service", t, func() {
		hub := ws.NewHub()
		svc := service.New(service.WithLogger(logger.Nop()), service.WithPublisher(hub))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()
		defer hub.Close()

		mux := http.NewServeMux()
		api.NewServer(svc, hub, 50).Register(context.Background(), mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		v, err := svc.Create(context.Background(), service.CreateRequest{
			Red: [3]string{"254", "1678", "971"}, Blue: [3]string{"118", "2056", "148"},
		})
		So(err, ShouldBeNil)

		Convey("When a display subscribes", func() {
			url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/matches/" + v.ID + "/ws"
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			So(err, ShouldBeNil)
			defer conn.Close()

			read := func() model.Frame {
				_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				_, msg, err := conn.ReadMessage()
				So(err, ShouldBeNil)
				var f model.Frame
				So(json.Unmarshal(msg, &f), ShouldBeNil)
				return f
			}

			Convey("Then it gets the current frame and later updates", func() {
				first := read()
				So(first.MatchID, ShouldEqual, v.ID)
				So(first.Timer, ShouldEqual, "0:00.00")

				deadline := time.Now().Add(2 * time.Second)
				for hub.Watchers(v.ID) == 0 && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				_, err := svc.Execute(context.Background(), v.ID, service.Command{
					Type: service.CmdSetInventory, Team: "118", Alliance: "blue", Item: "cone",
				})
				So(err, ShouldBeNil)

				var f model.Frame
				for i := 0; i < 10; i++ {
					if f = read(); f.Robots[3].Inventory == types.ItemCone {
						break
					}
				}
				So(f.Robots[3].Robot.Team, ShouldEqual, "118")
				So(f.Robots[3].Inventory, ShouldEqual, types.ItemCone)
			})
		})
	})
}
