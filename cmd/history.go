package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"productload/internal/storage"
	"productload/internal/tui/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previous runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		if browse, _ := cmd.Flags().GetBool("tui"); browse {
			_, err := tea.NewProgram(history.NewModel(store), tea.WithAltScreen()).Run()
			return err
		}

		items, err := store.List()
		if err != nil {
			return err
		}
		writeHistory(cmd.OutOrStdout(), items)
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one run as JSON (a unique id prefix is enough)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}
		defer store.Close()

		item, err := store.Get(args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(item)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.Flags().Bool("tui", false, "browse runs interactively")
}

func writeHistory(w io.Writer, items []storage.HistoryItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No runs saved yet.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Started", "Run", "Host", "Users", "Reqs", "Fails", "RPS", "P99 ms"})
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	for _, row := range history.Rows(items) {
		table.Append(row)
	}
	table.Render()
}
