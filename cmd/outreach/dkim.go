package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/foxzi/outreach/internal/dkim"
)

var (
	dkimDomain    string
	dkimSelector  string
	dkimKeyFile   string
	dkimOutDir    string
	dkimAlgorithm string
	dkimBits      int
)

var dkimCmd = &cobra.Command{
	Use:   "dkim",
	Short: "DKIM key management commands",
}

var dkimGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new DKIM key pair",
	Long:  `Generate a new DKIM key pair (RSA by default, or ed25519) and print the DNS record to publish.`,
	RunE:  runDKIMGenerate,
}

var dkimShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show DKIM DNS record from existing key",
	Long:  `Show the DNS TXT record for an existing DKIM private key.`,
	RunE:  runDKIMShow,
}

func init() {
	dkimGenerateCmd.Flags().StringVar(&dkimDomain, "domain", "", "Domain name (required)")
	dkimGenerateCmd.Flags().StringVar(&dkimSelector, "selector", "outreach", "DKIM selector")
	dkimGenerateCmd.Flags().StringVar(&dkimOutDir, "out", ".", "Output directory for key file")
	dkimGenerateCmd.Flags().StringVar(&dkimAlgorithm, "algorithm", dkim.AlgorithmRSA, "Key algorithm (rsa, ed25519)")
	dkimGenerateCmd.Flags().IntVar(&dkimBits, "bits", 2048, "RSA key size")
	dkimGenerateCmd.MarkFlagRequired("domain")

	dkimShowCmd.Flags().StringVar(&dkimKeyFile, "key", "", "Path to private key file (required)")
	dkimShowCmd.Flags().StringVar(&dkimDomain, "domain", "", "Domain name (required)")
	dkimShowCmd.Flags().StringVar(&dkimSelector, "selector", "outreach", "DKIM selector")
	dkimShowCmd.MarkFlagRequired("key")
	dkimShowCmd.MarkFlagRequired("domain")

	dkimCmd.AddCommand(dkimGenerateCmd, dkimShowCmd)
	rootCmd.AddCommand(dkimCmd)
}

func runDKIMGenerate(cmd *cobra.Command, args []string) error {
	kp, err := dkim.GenerateKey(dkimAlgorithm, dkimBits, dkimDomain, dkimSelector)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	keyPath := filepath.Join(dkimOutDir, fmt.Sprintf("%s.key", dkimDomain))
	if err := kp.SavePrivateKey(keyPath); err != nil {
		return fmt.Errorf("failed to save private key: %w", err)
	}

	fmt.Printf("DKIM key generated successfully\n\n")
	fmt.Printf("Private key saved to: %s\n\n", keyPath)
	return printDNSRecord(kp)
}

func runDKIMShow(cmd *cobra.Command, args []string) error {
	kp, err := dkim.LoadKeyPair(dkimKeyFile, dkimDomain, dkimSelector)
	if err != nil {
		return fmt.Errorf("failed to load private key: %w", err)
	}
	return printDNSRecord(kp)
}

func printDNSRecord(kp *dkim.KeyPair) error {
	record, err := kp.DNSRecord()
	if err != nil {
		return fmt.Errorf("failed to build DNS record: %w", err)
	}

	fmt.Printf("DNS Record:\n")
	fmt.Printf("  Name: %s\n", kp.DNSName())
	fmt.Printf("  Type: TXT\n")
	fmt.Printf("  Value: %s\n", record)
	fmt.Printf("\nConfiguration:\n")
	fmt.Printf("  dkim:\n    enabled: true\n    domain: %s\n    selector: %s\n", kp.Domain, kp.Selector)
	return nil
}
