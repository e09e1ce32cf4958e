package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foxzi/outreach/internal/config"
	"github.com/foxzi/outreach/internal/email"
	"github.com/foxzi/outreach/internal/sentlog"
)

var sentCmd = &cobra.Command{
	Use:   "sent",
	Short: "Sent record commands",
}

var sentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List addresses already emailed",
	RunE:  runSentList,
}

var sentAddCmd = &cobra.Command{
	Use:   "add <address>...",
	Short: "Mark addresses as already emailed",
	Long:  `Add addresses to the sent record so future runs skip them, e.g. contacts emailed by hand.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSentAdd,
}

func init() {
	sentCmd.AddCommand(sentListCmd, sentAddCmd)
	rootCmd.AddCommand(sentCmd)
}

// openSentStore opens the configured store without the rest of the application
func openSentStore(cfg *config.Config) (sentlog.Store, error) {
	if cfg.Storage.Type == config.StorageBolt {
		store, err := sentlog.OpenBoltStore(cfg.Storage.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sent record: %w", err)
		}
		return store, nil
	}
	return sentlog.NewFileStore(cfg.Storage.Path, nil), nil
}

func runSentList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openSentStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	record, err := sentlog.LoadRecord(context.Background(), store)
	if err != nil {
		return err
	}

	if record.Len() == 0 {
		fmt.Println("No addresses in sent record")
		return nil
	}
	for _, addr := range record.Addresses() {
		fmt.Println(addr)
	}
	fmt.Printf("\nTotal: %d\n", record.Len())
	return nil
}

func runSentAdd(cmd *cobra.Command, args []string) error {
	for _, addr := range args {
		if !email.Valid(addr) {
			return fmt.Errorf("invalid address: %q", addr)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openSentStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	record, err := sentlog.LoadRecord(ctx, store)
	if err != nil {
		return err
	}

	added := 0
	for _, addr := range args {
		if record.Add(addr) {
			added++
		}
	}

	if err := store.Persist(ctx, record.Addresses()); err != nil {
		return fmt.Errorf("failed to persist sent record: %w", err)
	}

	fmt.Printf("Added %d address(es), %d already present\n", added, len(args)-added)
	return nil
}
