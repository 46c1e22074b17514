package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"productload/internal/productapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the in-memory product API",
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		addr, _ := f.GetString("addr")
		minLat, _ := f.GetDuration("min-latency")
		maxLat, _ := f.GetDuration("max-latency")
		errRate, _ := f.GetFloat64("error-rate")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return productapi.ListenAndServe(ctx, productapi.NewStore(), productapi.ServerConfig{
			Addr:       addr,
			MinLatency: minLat,
			MaxLatency: maxLat,
			ErrorRate:  errRate,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "listen address")
	serveCmd.Flags().Duration("min-latency", 0, "minimum artificial latency per request")
	serveCmd.Flags().Duration("max-latency", 0, "maximum artificial latency per request (0 disables)")
	serveCmd.Flags().Float64("error-rate", 0, "fraction of requests answered with 500")
}
