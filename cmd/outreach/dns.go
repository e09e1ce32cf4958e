package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxzi/outreach/internal/dkim"
	"github.com/foxzi/outreach/internal/dnscheck"
	"github.com/foxzi/outreach/internal/email"
)

var (
	dnsDomain   string
	dnsSelector string
	dnsTimeout  time.Duration
)

var dnsCmd = &cobra.Command{
	Use:   "dns",
	Short: "DNS deliverability commands",
}

var dnsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check SPF, DKIM and DMARC for the sending domain",
	Long: `Check the DNS records receivers use to authenticate outreach mail.

The domain defaults to dkim.domain when DKIM is enabled, otherwise to the
domain of sender.email. With DKIM enabled the published key is compared with
the configured private key.`,
	RunE: runDNSCheck,
}

func init() {
	dnsCheckCmd.Flags().StringVar(&dnsDomain, "domain", "", "Domain to check (default from config)")
	dnsCheckCmd.Flags().StringVar(&dnsSelector, "selector", "", "DKIM selector (default from config)")
	dnsCheckCmd.Flags().DurationVar(&dnsTimeout, "timeout", 10*time.Second, "Lookup timeout")

	dnsCmd.AddCommand(dnsCheckCmd)
	rootCmd.AddCommand(dnsCmd)
}

func runDNSCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	domain := dnsDomain
	selector := dnsSelector
	var expected string

	if cfg.DKIM.Enabled {
		if domain == "" {
			domain = cfg.DKIM.Domain
		}
		if selector == "" {
			selector = cfg.DKIM.Selector
		}
		kp, err := dkim.LoadKeyPair(cfg.DKIM.KeyFile, cfg.DKIM.Domain, cfg.DKIM.Selector)
		if err != nil {
			return fmt.Errorf("failed to load DKIM key: %w", err)
		}
		if expected, err = kp.DNSRecord(); err != nil {
			return err
		}
	}
	if domain == "" {
		domain = email.ExtractDomain(cfg.Sender.Email)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), dnsTimeout)
	defer cancel()

	report, err := dnscheck.NewChecker(nil).Check(ctx, domain, dnscheck.Options{
		Selector:     selector,
		ExpectedDKIM: expected,
	})
	if err != nil {
		return err
	}

	fmt.Printf("DNS check for %s\n\n", report.Domain)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHECK\tSTATUS\tNAME\tMESSAGE")
	fmt.Fprintln(w, "-----\t------\t----\t-------")
	for _, r := range report.Results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Type, r.Status, r.Name, r.Message)
	}
	w.Flush()

	if !report.OK() {
		return fmt.Errorf("DNS check failed for %s", report.Domain)
	}
	return nil
}
