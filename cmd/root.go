package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"productload/internal/banner"
	"productload/internal/storage"
)

var (
	cfgFile string
	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:   "productload",
	Short: "productload - load test for the product API",
	Long: `
productload simulates users against a product API. Each user picks a task
from a weighted table (GET /products/{id} ten times as often as
POST /products/{id}/details) and waits 1-5s between tasks.

Commands:
1. run:     start a load test (headless, or --tui for the dashboard)
2. serve:   run the in-memory product API to test against
3. history: list previous runs`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(viper.GetString("log-level"), viper.GetString("log-file"), cmd.Name() == "run" && viper.GetBool("tui"))
	},
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	err := rootCmd.Execute()
	closeLogging()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bindFlags exposes fs to viper under the flag names, so config file and
// PRODUCTLOAD_* env values apply to every flag.
func bindFlags(fs *pflag.FlagSet) {
	if err := viper.BindPFlags(fs); err != nil {
		panic(fmt.Sprintf("bind flags: %v", err))
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.productload.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-file", "", "write logs to this file instead of stderr")
	rootCmd.PersistentFlags().String("history-db", "", "run history database (default is $HOME/.productload/history.db)")
	bindFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".productload")
		}
	}
	viper.SetEnvPrefix("PRODUCTLOAD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
		}
	}
}

// setupLogging configures the global zerolog logger. The dashboard owns the
// terminal, so without a log file its logs are dropped. A log file gets the
// same console format as stderr, without colours.
func setupLogging(level, file string, tui bool) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	closeLogging()

	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMilli}
	switch {
	case file != "":
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		logFile = f
		out = zerolog.ConsoleWriter{Out: f, NoColor: true, TimeFormat: time.StampMilli}
	case tui:
		out = io.Discard
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return nil
}

func closeLogging() {
	if logFile == nil {
		return
	}
	log.Logger = zerolog.New(io.Discard)
	logFile.Close()
	logFile = nil
}

func openHistory() (*storage.Store, error) {
	path := viper.GetString("history-db")
	if path == "" {
		p, err := storage.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return storage.NewStore(path)
}
