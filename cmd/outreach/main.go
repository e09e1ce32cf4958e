package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foxzi/outreach/internal/config"
)

// defaultConfigFile is used when -c is not given and the file exists
const defaultConfigFile = "config.yaml"

var (
	cfgFile   string
	envFile   string
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "outreach",
	Short: "Outreach - templated recruiting email sender",
	Long: `Outreach sends templated emails with an attached prospectus to the
contacts listed in a CSV roster, remembering who was already emailed.

Running outreach without a subcommand is the same as "outreach send".`,
	SilenceUsage: true,
	RunE:         runSend,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file and environment",
	RunE:  runConfigValidate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("outreach version %s\n", version)
		if commit != "unknown" {
			fmt.Printf("  commit: %s\n", commit)
		}
		if buildTime != "unknown" {
			fmt.Printf("  built:  %s\n", buildTime)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default ./config.yaml when present)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	addSendFlags(rootCmd)

	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd, versionCmd)
}

// loadConfig reads the env file then the config file
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	path := cfgFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("configuration is invalid: %w", err)
	}

	fmt.Printf("Configuration is valid\n")
	fmt.Printf("  Sender: %s <%s>\n", cfg.Sender.FullName, cfg.Sender.Email)
	fmt.Printf("  Year: %s\n", cfg.Event.Year)
	fmt.Printf("  Roster: %s\n", cfg.Roster.Path)
	fmt.Printf("  Templates: %s (%d kinds)\n", cfg.Templates.Dir, len(cfg.Templates.Kinds))
	fmt.Printf("  Transport: %s (%s mode)\n", cfg.Transport.Type, cfg.Transport.Mode)
	if cfg.Transport.Type == config.TransportSMTP {
		fmt.Printf("  SMTP: %s:%d (%s)\n", cfg.Transport.SMTP.Host, cfg.Transport.SMTP.Port, cfg.Transport.SMTP.Security)
	}
	switch cfg.Storage.Type {
	case config.StorageBolt:
		fmt.Printf("  Sent record: %s (bolt)\n", cfg.Storage.DBPath)
	default:
		fmt.Printf("  Sent record: %s\n", cfg.Storage.Path)
	}
	if cfg.DKIM.Enabled {
		fmt.Printf("  DKIM: %s._domainkey.%s\n", cfg.DKIM.Selector, cfg.DKIM.Domain)
	}

	return nil
}
