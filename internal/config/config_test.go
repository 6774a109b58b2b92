package config_test

import (
	"errors"
	"testing"

	"github.com/okian/scout/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.AutoLengthSec, convey.ShouldEqual, 15)
			convey.So(cfg.MatchLengthSec, convey.ShouldEqual, 135)
			convey.So(cfg.TickHz, convey.ShouldEqual, 60)
			convey.So(cfg.StoreDriver, convey.ShouldEqual, config.StoreMemory)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad setting", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":           func(c *config.Config) { c.Addr = "" },
			"unknown level":        func(c *config.Config) { c.LogLevel = "loud" },
			"unknown format":       func(c *config.Config) { c.LogFormat = "xml" },
			"auto not shorter":     func(c *config.Config) { c.AutoLengthSec = 135 },
			"zero auto":            func(c *config.Config) { c.AutoLengthSec = 0 },
			"zero tick":            func(c *config.Config) { c.TickHz = 0 },
			"zero queue":           func(c *config.Config) { c.FrameQueueSize = 0 },
			"zero limit":           func(c *config.Config) { c.MaxLeaderboardLimit = 0 },
			"unknown driver":       func(c *config.Config) { c.StoreDriver = "mongo" },
			"postgres without dsn": func(c *config.Config) { c.StoreDriver = config.StorePostgres },
		}
		for name, mutate := range cases {
			convey.Convey("Then "+name+" is rejected", func() {
				cfg := config.New()
				mutate(cfg)
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("Then postgres with a dsn is accepted", func() {
			cfg := config.New()
			cfg.StoreDriver = config.StorePostgres
			cfg.PostgresDSN = "postgres://localhost/scout"
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
