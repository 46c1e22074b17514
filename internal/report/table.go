// Package report renders and exports the results of a run.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

func ms(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}

func row(e EntrySummary) []string {
	return []string{
		e.Method,
		e.Name,
		strconv.FormatUint(e.Requests, 10),
		fmt.Sprintf("%d(%.2f%%)", e.Failures, failPct(e)),
		ms(e.AvgMs),
		ms(e.MinMs),
		ms(e.MaxMs),
		ms(e.P50Ms),
		ms(e.P95Ms),
		ms(e.P99Ms),
		fmt.Sprintf("%.2f", e.RPS),
	}
}

func failPct(e EntrySummary) float64 {
	if e.Requests == 0 {
		return 0
	}
	return float64(e.Failures) / float64(e.Requests) * 100
}

// WriteStatsTable renders one row per request name plus an aggregated footer.
func WriteStatsTable(w io.Writer, s Summary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Type", "Name", "# reqs", "# fails", "Avg", "Min", "Max", "Med", "95%", "99%", "req/s"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	for _, e := range s.Entries {
		table.Append(row(e))
	}
	table.SetFooter(row(s.Total))
	table.Render()
}

// WriteFailures lists error counts, most frequent first.
func WriteFailures(w io.Writer, s Summary) {
	if len(s.Errors) == 0 {
		return
	}

	type kv struct {
		msg   string
		count uint64
	}
	var errs []kv
	for m, c := range s.Errors {
		errs = append(errs, kv{m, c})
	}
	sort.Slice(errs, func(i, j int) bool {
		if errs[i].count != errs[j].count {
			return errs[i].count > errs[j].count
		}
		return errs[i].msg < errs[j].msg
	})

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"# occurrences", "Error"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, e := range errs {
		table.Append([]string{strconv.FormatUint(e.count, 10), e.msg})
	}
	table.Render()
}
