package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"productload/internal/report"
	"productload/internal/runner"
)

const progressInterval = 500 * time.Millisecond

// Run drives r headless, printing a progress line to out until the run ends,
// then the stats table and failure summary.
func Run(ctx context.Context, r *runner.Runner, out io.Writer) error {
	printHeader(out, r.Cfg)

	errC := make(chan error, 1)
	go func() { errC <- r.Run(ctx) }()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Updates:
			// Drain updates
		case <-ticker.C:
			printProgress(out, r.Snapshot(), r.Cfg.RunTime)
		case err := <-errC:
			if err != nil {
				return err
			}
			printSummary(out, report.NewSummary(r))
			return nil
		}
	}
}

func printHeader(out io.Writer, cfg runner.Config) {
	runTime := "until stopped"
	if cfg.RunTime > 0 {
		runTime = cfg.RunTime.String()
	}
	fmt.Fprintf(out, "\nSTARTING PRODUCT LOAD TEST\n")
	fmt.Fprintf(out, "%s\n", strings.Repeat("=", 70))
	fmt.Fprintf(out, "Host       : %s\n", cfg.Host)
	fmt.Fprintf(out, "Users      : %d (spawn rate %.2f/s, ramp-up %s)\n", cfg.Users, cfg.SpawnRate, cfg.RampUp().Round(time.Millisecond))
	fmt.Fprintf(out, "Run time   : %s\n", runTime)
	fmt.Fprintf(out, "Timeout    : %s\n", cfg.Timeout)
	fmt.Fprintf(out, "%s\n\n", strings.Repeat("=", 70))
}

func printProgress(out io.Writer, s runner.StatsSnapshot, runTime time.Duration) {
	rps := 0.0
	if s.Elapsed.Seconds() > 0 {
		rps = float64(s.Requests) / s.Elapsed.Seconds()
	}

	bar := ""
	if runTime > 0 {
		pct := s.Elapsed.Seconds() / runTime.Seconds()
		bar = fmt.Sprintf("%s %3.0f%% | ", progressBar(pct, 20), min(pct, 1.0)*100)
	}

	fmt.Fprintf(out, "\r%s%s | Users: %3d | Inf: %3d | RPS: %.1f | OK: %d | Fail: %d",
		bar,
		s.Elapsed.Round(time.Second),
		s.Users,
		s.Inflight,
		rps,
		s.Success,
		s.Fail,
	)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

func printSummary(out io.Writer, s report.Summary) {
	fmt.Fprintf(out, "\n\nLOAD TEST RESULTS (%s)\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "%s\n", strings.Repeat("=", 70))
	report.WriteStatsTable(out, s)

	if len(s.Errors) > 0 {
		fmt.Fprintf(out, "\nFAILURES\n")
		report.WriteFailures(out, s)
	}
	fmt.Fprintf(out, "%s\n", strings.Repeat("=", 70))
}
