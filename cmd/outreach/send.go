package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foxzi/outreach/internal/app"
	"github.com/foxzi/outreach/internal/config"
)

var (
	sendRoster string
	sendMode   string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send emails to every roster contact not yet emailed",
	Long: `Send asks for confirmation, then emails every roster contact whose
address is not in the sent record. Progress is saved on success, on a
failed send and on Ctrl-C.`,
	RunE: runSend,
}

func init() {
	addSendFlags(sendCmd)
	rootCmd.AddCommand(sendCmd)
}

func addSendFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sendRoster, "roster", "", "Roster CSV path (overrides roster.path)")
	cmd.Flags().StringVar(&sendMode, "mode", "", "Transport mode: production, sandbox, redirect (overrides transport.mode)")
}

// loadSendConfig loads the configuration and applies the send flags
func loadSendConfig() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if sendRoster != "" {
		cfg.Roster.Path = sendRoster
	}
	if sendMode != "" {
		cfg.Transport.Mode = sendMode
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return cfg, nil
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadSendConfig()
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer application.Close()

	return application.Run(cmd.Context(), os.Stdin, os.Stdout)
}
