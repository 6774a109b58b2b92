package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/scout/internal/app"
	"github.com/okian/scout/internal/config"
	"github.com/okian/scout/internal/console"
	"github.com/okian/scout/internal/domain/match"
	"github.com/okian/scout/internal/domain/snapshot"
	"github.com/okian/scout/internal/server"
	"github.com/okian/scout/internal/simulate"
	"github.com/okian/scout/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scoutctl",
		Short:         "Operate and inspect FRC match scouting logs",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(replayCmd())
	root.AddCommand(consoleCmd())
	root.AddCommand(simulateCmd())
	return root
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scouting HTTP service (config from SCOUT_CONFIG and SCOUT_* env)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}
			if err := logger.SetLevelString(cfg.LogLevel); err != nil {
				return err
			}
			srv, err := server.New(ctx, cfg, logger.Get())
			if err != nil {
				return err
			}
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides SCOUT_ADDR")
	return cmd
}

func replayCmd() *cobra.Command {
	var at float64

	cmd := &cobra.Command{
		Use:   "replay [snapshot.json]",
		Short: "Fold a saved match and print its grids and score",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upTo *float64
			if cmd.Flags().Changed("at") {
				upTo = &at
			}
			return runReplay(cmd.OutOrStdout(), args[0], upTo)
		},
	}

	cmd.Flags().Float64Var(&at, "at", 0, "fold only events logged at or before this many seconds")
	return cmd
}

func runReplay(out io.Writer, path string, at *float64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	rec, err := snapshot.Unmarshal(data)
	if err != nil {
		return err
	}
	m, err := match.Restore(rec)
	if err != nil {
		return err
	}

	t := m.Time()
	if at != nil {
		t = *at
	}
	st, err := m.DeriveAt(t)
	if err != nil {
		return err
	}

	name := rec.Key()
	if name == "" {
		name = "match"
	}
	header := fmt.Sprintf("%s at %s, %d of %d events", name, match.FormatTimer(t), countUpTo(m, t), m.Len())
	console.BoardFromState(header, m.Engine(), st).Print(out)
	return nil
}

func countUpTo(m *match.Match, t float64) int {
	n := 0
	for _, ev := range m.Events() {
		if ev.Timestamp <= t {
			n++
		}
	}
	return n
}

func consoleCmd() *cobra.Command {
	var red, blue, from string

	cmd := &cobra.Command{
		Use:   "console",
		Short: "Scout a match interactively from line commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc := service.New(service.WithLogger(logger.Nop()))
			if err := svc.Start(ctx); err != nil {
				return err
			}
			defer svc.Stop()

			v, err := openMatch(ctx, svc, red, blue, from)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "match %s, type help for commands\n", v.ID)
			console.BoardFromView(v).Print(out)
			return console.New(svc, v.ID, out).Run(ctx, cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&red, "red", "", "red alliance teams, comma separated")
	cmd.Flags().StringVar(&blue, "blue", "", "blue alliance teams, comma separated")
	cmd.Flags().StringVar(&from, "import", "", "start from a snapshot file instead of new teams")
	return cmd
}

func openMatch(ctx context.Context, svc *service.Service, red, blue, from string) (service.View, error) {
	if from != "" {
		data, err := os.ReadFile(from)
		if err != nil {
			return service.View{}, err
		}
		rec, err := snapshot.Unmarshal(data)
		if err != nil {
			return service.View{}, err
		}
		return svc.Import(ctx, rec)
	}

	var req service.CreateRequest
	for _, side := range []struct {
		flag  string
		teams *[3]string
	}{{red, &req.Red}, {blue, &req.Blue}} {
		parts := strings.Split(side.flag, ",")
		if len(parts) != len(side.teams) {
			return service.View{}, fmt.Errorf("%w: need three comma separated teams per alliance", match.ErrInvalidTeams)
		}
		for i, p := range parts {
			side.teams[i] = strings.TrimSpace(p)
		}
	}
	return svc.Create(ctx, req)
}

func simulateCmd() *cobra.Command {
	cfg := simulate.Config{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play generated matches against a running service and verify its scores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}
			_, err := simulate.Run(cmd.Context(), &cfg)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	f.IntVar(&cfg.Matches, "matches", 20, "number of matches to play")
	f.IntVar(&cfg.Steps, "steps", 120, "robot actions per match")
	f.IntVar(&cfg.Workers, "workers", 4, "matches played concurrently")
	f.DurationVar(&cfg.Timeout, "timeout", 30*time.Second, "HTTP request timeout")
	f.Uint64Var(&cfg.Seed, "seed", uint64(time.Now().UnixNano()), "generator seed")
	f.Float64Var(&cfg.DuplicateRate, "dup-rate", 0.1, "share of commands sent twice")
	f.IntVar(&cfg.TeamBase, "team-base", 1, "first team number handed out")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log every verified match")
	return cmd
}
