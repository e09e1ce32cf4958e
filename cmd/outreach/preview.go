package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foxzi/outreach/internal/app"
	"github.com/foxzi/outreach/internal/template"
)

var (
	previewKind    string
	previewCompany string
	previewName    string
	previewEmail   string
	previewRaw     bool
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render the email one contact would receive",
	Long: `Render the subject and HTML body for a template kind without sending
anything. With --raw the complete MIME message is printed, including the
attachment and the DKIM signature when enabled.`,
	RunE: runPreview,
}

func init() {
	previewCmd.Flags().StringVar(&previewKind, "type", "Regular", "Template kind (Type column value)")
	previewCmd.Flags().StringVar(&previewCompany, "company", "Acme", "Company name")
	previewCmd.Flags().StringVar(&previewName, "name", "NO_NAME", "Recipient name")
	previewCmd.Flags().StringVar(&previewEmail, "email", "contact@example.com", "Recipient address")
	previewCmd.Flags().BoolVar(&previewRaw, "raw", false, "Print the encoded MIME message")

	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	defer application.Close()

	if previewRaw {
		data, err := application.Preview(previewKind, previewCompany, previewName, previewEmail)
		if err != nil {
			return fmt.Errorf("failed to render preview: %w", err)
		}
		_, err = os.Stdout.Write(data)
		return err
	}

	result, err := application.Renderer().Render(previewKind, template.Params{
		SenderFullName: cfg.Sender.FullName,
		Year:           cfg.Event.Year,
		Company:        previewCompany,
		RecipientName:  previewName,
	})
	if err != nil {
		return fmt.Errorf("failed to render preview: %w", err)
	}

	fmt.Printf("Kinds:   %v\n", application.Renderer().Kinds())
	fmt.Printf("To:      %s\n", previewEmail)
	fmt.Printf("Cc:      %v\n", cfg.Sender.CC)
	fmt.Printf("Subject: %s\n", result.Subject)
	fmt.Printf("\n%s\n", result.HTML)

	return nil
}
