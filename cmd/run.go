package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"productload/internal/cli"
	"productload/internal/report"
	"productload/internal/runner"
	"productload/internal/scenario"
	"productload/internal/storage"
	"productload/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the product user scenario against a host",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFromViper(viper.GetViper())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		updates := make(runner.StatsUpdateChan, 100)
		r := runner.NewRunner(cfg, scenario.NewProductFactory(), updates)

		if viper.GetBool("tui") {
			err = runTUI(ctx, r)
		} else {
			err = cli.Run(ctx, r, cmd.OutOrStdout())
		}
		if err != nil {
			return err
		}

		return afterRun(cmd, r)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	def := runner.DefaultConfig()
	f := runCmd.Flags()
	f.StringP("host", "H", def.Host, "target host, e.g. http://localhost:8080")
	f.IntP("users", "u", def.Users, "number of concurrent users")
	f.Float64P("spawn-rate", "r", def.SpawnRate, "users started per second")
	f.DurationP("run-time", "t", 0, "stop after this long, e.g. 30s or 5m (0 runs until interrupted)")
	f.Duration("timeout", def.Timeout, "request timeout")
	f.StringSlice("header", []string{}, "HTTP header (e.g. \"Key: Value\"), repeatable")
	f.StringP("out", "o", "", "output filename prefix for csv/json reports")
	f.Uint64("seed", 0, "random seed (0 uses the clock)")
	f.Bool("tui", false, "show the live dashboard")
	f.Bool("no-history", false, "do not save this run to the history database")
	bindFlags(f)
}

// configFromViper reads flags, environment and config file.
func configFromViper(v *viper.Viper) (runner.Config, error) {
	cfg := runner.Config{
		Host:      v.GetString("host"),
		Users:     v.GetInt("users"),
		SpawnRate: v.GetFloat64("spawn-rate"),
		RunTime:   v.GetDuration("run-time"),
		Timeout:   v.GetDuration("timeout"),
		OutPrefix: v.GetString("out"),
		Seed:      v.GetUint64("seed"),
	}

	headers := v.GetStringMapString("headers")
	parsed, err := parseHeaders(v.GetStringSlice("header"))
	if err != nil {
		return cfg, err
	}
	for k, val := range parsed {
		if headers == nil {
			headers = make(map[string]string)
		}
		headers[k] = val
	}
	cfg.Headers = headers

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseHeaders(raw []string) (map[string]string, error) {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("invalid header %q, want \"Key: Value\"", h)
		}
		headers[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return headers, nil
}

func runTUI(ctx context.Context, r *runner.Runner) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := tui.NewModel(r.Cfg, r.Updates, cancel)
	p := tea.NewProgram(m, tea.WithAltScreen())

	done := make(chan error, 1)
	go func() {
		err := r.Run(ctx)
		p.Send(tui.RunDoneMsg{Summary: report.NewSummary(r), Err: err})
		done <- err
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return fmt.Errorf("dashboard: %w", err)
	}

	// the dashboard may quit before the run ends
	cancel()
	return <-done
}

func afterRun(cmd *cobra.Command, r *runner.Runner) error {
	out := cmd.OutOrStdout()

	if r.Cfg.OutPrefix != "" {
		if err := report.ExportAll(r, r.Cfg.OutPrefix); err != nil {
			return err
		}
		fmt.Fprintf(out, "Reports saved to %s.{csv,json} and %s_summary.json\n", r.Cfg.OutPrefix, r.Cfg.OutPrefix)
	}

	if viper.GetBool("no-history") {
		return nil
	}
	store, err := openHistory()
	if err != nil {
		// history is best effort, the run itself succeeded
		log.Warn().Err(err).Msg("history unavailable, run not saved")
		return nil
	}
	defer store.Close()

	item := storage.NewHistoryItem(r)
	if err := store.Save(item); err != nil {
		log.Warn().Err(err).Msg("save run")
		return nil
	}
	log.Info().Str("run", item.ID).Dur("elapsed", item.Summary.Duration.Round(time.Millisecond)).Msg("run saved to history")
	return nil
}
