package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	bolt "go.etcd.io/bbolt"

	"github.com/foxzi/outreach/internal/message"
	"github.com/foxzi/outreach/internal/sandbox"
	"github.com/foxzi/outreach/internal/storage"
)

var (
	sandboxListDomain string
	sandboxListMode   string
	sandboxListLimit  int
	sandboxShowFormat string
	sandboxExportOut  string
	sandboxClearDays  int
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Inspect messages captured in sandbox and redirect mode",
}

var sandboxListCmd = &cobra.Command{
	Use:   "list",
	Short: "List captured messages",
	RunE:  runSandboxList,
}

var sandboxShowCmd = &cobra.Command{
	Use:   "show <message_id>",
	Short: "Show captured message details",
	Args:  cobra.ExactArgs(1),
	RunE:  runSandboxShow,
}

var sandboxExportCmd = &cobra.Command{
	Use:   "export <message_id>",
	Short: "Export captured message to an .eml file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSandboxExport,
}

var sandboxClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear captured messages",
	RunE:  runSandboxClear,
}

var sandboxStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show capture statistics",
	RunE:  runSandboxStats,
}

func init() {
	sandboxListCmd.Flags().StringVar(&sandboxListDomain, "domain", "", "Filter by recipient domain")
	sandboxListCmd.Flags().StringVar(&sandboxListMode, "mode", "", "Filter by mode (sandbox, redirect)")
	sandboxListCmd.Flags().IntVar(&sandboxListLimit, "limit", 50, "Maximum number of messages")

	sandboxShowCmd.Flags().StringVar(&sandboxShowFormat, "format", "text", "Output format (text, raw, html)")

	sandboxExportCmd.Flags().StringVarP(&sandboxExportOut, "output", "o", "", "Output file (default <message_id>.eml)")

	sandboxClearCmd.Flags().IntVar(&sandboxClearDays, "older-than", 0, "Clear messages older than N days")

	sandboxCmd.AddCommand(sandboxListCmd, sandboxShowCmd, sandboxExportCmd, sandboxClearCmd, sandboxStatsCmd)
	rootCmd.AddCommand(sandboxCmd)
}

func openSandboxStorage() (*sandbox.Storage, *bolt.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	db, err := storage.Open(cfg.Storage.DBPath, sandbox.BucketSandbox)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	store, err := sandbox.NewStorage(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to create sandbox storage: %w", err)
	}

	return store, db, nil
}

func runSandboxList(cmd *cobra.Command, args []string) error {
	store, db, err := openSandboxStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	messages, err := store.List(context.Background(), sandbox.ListFilter{
		Mode:   sandboxListMode,
		Domain: sandboxListDomain,
		Limit:  sandboxListLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to list messages: %w", err)
	}

	if len(messages) == 0 {
		fmt.Println("No messages in sandbox")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tTO\tORIGINAL TO\tCAPTURED")
	fmt.Fprintln(w, "--\t----\t--\t-----------\t--------")

	for _, msg := range messages {
		original := "-"
		if len(msg.OriginalTo) > 0 {
			original = truncate(strings.Join(msg.OriginalTo, ", "), 30)
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			msg.ID,
			msg.Mode,
			truncate(strings.Join(msg.To, ", "), 30),
			original,
			msg.CapturedAt.Local().Format("2006-01-02 15:04"),
		)
	}

	w.Flush()
	fmt.Printf("\nTotal: %d messages\n", len(messages))

	return nil
}

func runSandboxShow(cmd *cobra.Command, args []string) error {
	store, db, err := openSandboxStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	msg, err := store.Get(context.Background(), args[0])
	if errors.Is(err, sandbox.ErrNotFound) {
		return fmt.Errorf("message not found: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to get message: %w", err)
	}

	switch sandboxShowFormat {
	case "raw":
		_, err := os.Stdout.Write(msg.Data)
		return err

	case "html":
		html, err := message.HTMLBody(msg.Data)
		if err != nil {
			return fmt.Errorf("failed to extract html: %w", err)
		}
		fmt.Println(html)
		return nil

	default:
		fmt.Printf("Message: %s\n\n", msg.ID)
		fmt.Printf("Mode:        %s\n", msg.Mode)
		fmt.Printf("Domain:      %s\n", msg.Domain)
		fmt.Printf("From:        %s\n", msg.From)
		fmt.Printf("To:          %s\n", strings.Join(msg.To, ", "))
		if len(msg.Cc) > 0 {
			fmt.Printf("Cc:          %s\n", strings.Join(msg.Cc, ", "))
		}
		if len(msg.OriginalTo) > 0 {
			fmt.Printf("Original To: %s\n", strings.Join(msg.OriginalTo, ", "))
		}
		fmt.Printf("Subject:     %s\n", msg.Subject)
		fmt.Printf("Captured:    %s\n", msg.CapturedAt.Format(time.RFC3339))
		fmt.Printf("Size:        %d bytes\n", len(msg.Data))
		return nil
	}
}

func runSandboxExport(cmd *cobra.Command, args []string) error {
	store, db, err := openSandboxStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	id := args[0]
	msg, err := store.Get(context.Background(), id)
	if errors.Is(err, sandbox.ErrNotFound) {
		return fmt.Errorf("message not found: %s", id)
	}
	if err != nil {
		return fmt.Errorf("failed to get message: %w", err)
	}

	filename := sandboxExportOut
	if filename == "" {
		filename = fmt.Sprintf("%s.eml", id)
	}

	if err := os.WriteFile(filename, msg.Data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	fmt.Printf("Message exported to: %s\n", filename)
	return nil
}

func runSandboxClear(cmd *cobra.Command, args []string) error {
	store, db, err := openSandboxStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	var olderThan time.Duration
	if sandboxClearDays > 0 {
		olderThan = time.Duration(sandboxClearDays) * 24 * time.Hour
	}

	count, err := store.Clear(context.Background(), olderThan)
	if err != nil {
		return fmt.Errorf("failed to clear sandbox: %w", err)
	}

	fmt.Printf("Cleared %d messages from sandbox\n", count)
	return nil
}

func runSandboxStats(cmd *cobra.Command, args []string) error {
	store, db, err := openSandboxStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := store.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get sandbox stats: %w", err)
	}

	fmt.Println("Sandbox Statistics")
	fmt.Println("==================")
	fmt.Printf("Total Messages: %d\n", stats.Total)

	if len(stats.ByMode) > 0 {
		fmt.Println("\nBy Mode:")
		for mode, count := range stats.ByMode {
			fmt.Printf("  %s: %d\n", mode, count)
		}
	}

	if len(stats.ByDomain) > 0 {
		fmt.Println("\nBy Domain:")
		for domain, count := range stats.ByDomain {
			fmt.Printf("  %s: %d\n", domain, count)
		}
	}

	if !stats.NewestAt.IsZero() {
		fmt.Printf("\nNewest Message: %s\n", stats.NewestAt.Format(time.RFC3339))
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
