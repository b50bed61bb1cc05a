package main

import (
	"os"

	"github.com/spf13/cobra"

	"agendash/internal/config"
	appLog "agendash/internal/log"
)

// version is set at build time via -ldflags.
var version = "0.1.0-dev"

var (
	configPath string
	logLevel   string
	logJSON    bool
	ephemeral  bool
)

var rootCmd = &cobra.Command{
	Use:   "agendash",
	Short: "Personal academic event dashboard",
	Long: `agendash merges institutional events (quizzes, midsems, labs, deadlines,
compres) with personal tasks and groups them into Daily, Weekly and Monthly
views, served as JSON and a minimal HTML dashboard.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		if cmd.Flags().Changed("log-level") {
			appLog.SetLevel(appLog.ParseLevel(logLevel))
		}
	},
}

func main() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(`{{printf "agendash version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./agendash.yaml", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info or error (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit JSON log lines")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep personal tasks in memory only")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAgendaCmd())
	rootCmd.AddCommand(newTasksCmd())
	rootCmd.AddCommand(newSnapshotCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// loadConfig loads the config file and applies logging settings from it
// unless overridden on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", configPath)
		return nil, err
	}
	if !cmd.Flags().Changed("log-level") {
		appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	}
	if logJSON || conf.LogJSON {
		appLog.SetOutput(os.Stderr, true)
	}
	return conf, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("agendash version %s\n", version)
		},
	}
}
