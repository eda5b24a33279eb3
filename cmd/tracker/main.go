package main

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pocket-tracker/tracker/internal/config"
)

var (
	configFile string
	recordsDir string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Log a location track to GeoJSON",
	Long: `tracker polls the device location command on a fixed interval and appends
every reading as a Point feature to a per-run GeoJSON file under the records
directory. Type q and Enter to stop.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runTracker,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&recordsDir, "records-dir", "", "directory for track files (default records)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", `run journal database path, "off" to disable (default tracker.db)`)

	addRunFlags(rootCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("time", "t", 60, "polling interval in seconds")
	cmd.Flags().StringP("provider", "p", "n", "location provider: g (gps), n (network) or p (passive)")
	cmd.Flags().Int("timeout", 10, "location command timeout in seconds")
	cmd.Flags().String("logs-dir", "", "directory for run log files (default logs)")
	cmd.Flags().Bool("no-wakelock", false, "do not acquire the wake-lock")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers defaults, .env, environment, the YAML file and
// explicitly set flags, in that order
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	_ = godotenv.Load()

	cfg := config.Load()
	if configFile != "" {
		if err := cfg.LoadFile(configFile); err != nil {
			return nil, err
		}
	}

	if recordsDir != "" {
		cfg.RecordsDir = recordsDir
	}
	switch dbPath {
	case "":
	case "off":
		cfg.DatabasePath = ""
	default:
		cfg.DatabasePath = dbPath
	}

	// Local flags only exist on the root command
	flags := cmd.Flags()
	if flags.Changed("time") {
		seconds, _ := flags.GetInt("time")
		cfg.PollInterval = time.Duration(seconds) * time.Second
	}
	if flags.Changed("provider") {
		provider, _ := flags.GetString("provider")
		cfg.Provider = config.NormalizeProvider(provider)
	}
	if flags.Changed("timeout") {
		seconds, _ := flags.GetInt("timeout")
		cfg.ProviderTimeout = time.Duration(seconds) * time.Second
	}
	if flags.Changed("logs-dir") {
		cfg.LogsDir, _ = flags.GetString("logs-dir")
	}
	if flags.Changed("no-wakelock") {
		noWakeLock, _ := flags.GetBool("no-wakelock")
		cfg.WakeLockEnabled = !noWakeLock
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
