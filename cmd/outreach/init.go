package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/foxzi/outreach/internal/config"
	"github.com/foxzi/outreach/internal/dkim"
	"github.com/foxzi/outreach/internal/email"
)

var (
	initFullName  string
	initEmail     string
	initYear      string
	initTransport string
	initMode      string
	initRedirect  string
	initOutput    string
	initTemplates string
	initDKIM      bool
	initDKIMDir   string
	initForce     bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize outreach configuration",
	Long: `Interactive wizard to create an outreach configuration file.

This command helps you set up outreach by:
  1. Creating a configuration file
  2. Creating starter templates for each kind
  3. Optionally generating DKIM keys

The credential is not written to the file: set PASSWORD (smtp) or
RESEND_API_KEY (resend) in the environment or in .env.

Examples:
  # Interactive mode - prompts for missing values
  outreach init

  # Non-interactive rehearsal setup
  outreach init --full-name "Jordan Lee" --email jordan@umich.edu --year 2026 --mode sandbox`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initFullName, "full-name", "", "Sender full name")
	initCmd.Flags().StringVar(&initEmail, "email", "", "Sender address")
	initCmd.Flags().StringVar(&initYear, "year", "", "Event year")
	initCmd.Flags().StringVar(&initTransport, "transport", config.TransportSMTP, "Transport: smtp, resend, ses")
	initCmd.Flags().StringVar(&initMode, "mode", config.ModeProduction, "Mode: production, sandbox, redirect")
	initCmd.Flags().StringVar(&initRedirect, "redirect-to", "", "Redirect address for redirect mode (default: sender address)")
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "config.yaml", "Output configuration file path")
	initCmd.Flags().StringVar(&initTemplates, "templates", "templates", "Templates directory")
	initCmd.Flags().BoolVar(&initDKIM, "dkim", false, "Generate DKIM keys")
	initCmd.Flags().StringVar(&initDKIMDir, "dkim-dir", "dkim", "DKIM keys directory")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config file")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Outreach Configuration Wizard")
	fmt.Println("=============================")
	fmt.Println()

	if initFullName == "" {
		initFullName = prompt(reader, "Your full name", "")
		if initFullName == "" {
			return fmt.Errorf("full name is required")
		}
	}

	if initEmail == "" {
		initEmail = prompt(reader, "Sending address", "")
	}
	if !email.Valid(initEmail) {
		return fmt.Errorf("invalid sending address: %q", initEmail)
	}

	if initYear == "" {
		initYear = prompt(reader, "Event year", "")
		if initYear == "" {
			return fmt.Errorf("event year is required")
		}
	}

	if initMode == config.ModeRedirect && initRedirect == "" {
		initRedirect = prompt(reader, "Redirect all messages to", initEmail)
	}

	if !initDKIM {
		answer := prompt(reader, "Generate DKIM keys? [y/N]", "n")
		initDKIM = strings.ToLower(answer) == "y" || strings.ToLower(answer) == "yes"
	}

	if !initForce {
		if _, err := os.Stat(initOutput); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", initOutput)
		}
	}

	fmt.Println()
	fmt.Println("Creating configuration...")

	created, err := writeStarterTemplates(initTemplates)
	if err != nil {
		return err
	}
	for _, path := range created {
		fmt.Printf("  Template created: %s\n", path)
	}

	var dkimKeyPath, dkimDNSName, dkimDNSRecord string
	if initDKIM {
		domain := email.ExtractDomain(initEmail)
		kp, err := dkim.GenerateKey(dkim.AlgorithmRSA, 2048, domain, "outreach")
		if err != nil {
			return fmt.Errorf("failed to generate DKIM key: %w", err)
		}

		dkimKeyPath = filepath.Join(initDKIMDir, domain+".key")
		if err := kp.SavePrivateKey(dkimKeyPath); err != nil {
			return fmt.Errorf("failed to save DKIM key: %w", err)
		}

		dkimDNSName = kp.DNSName()
		dkimDNSRecord, err = kp.DNSRecord()
		if err != nil {
			return fmt.Errorf("failed to build DKIM record: %w", err)
		}
		fmt.Printf("  DKIM key saved to: %s\n", dkimKeyPath)
	}

	cfg := generateConfig(dkimKeyPath)
	if err := os.WriteFile(initOutput, []byte(cfg), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	fmt.Printf("  Configuration saved to: %s\n", initOutput)
	fmt.Println()

	if dkimDNSName != "" {
		fmt.Println("Add this DNS record before sending:")
		fmt.Printf("  %s TXT \"%s\"\n\n", dkimDNSName, dkimDNSRecord)
	}

	printNextSteps()
	return nil
}

func prompt(reader *bufio.Reader, question, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", question, defaultValue)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultValue
	}
	return input
}

func generateConfig(dkimKeyPath string) string {
	var sb strings.Builder

	sb.WriteString("# Outreach configuration\n")
	sb.WriteString("# Credentials come from the environment or .env (PASSWORD, RESEND_API_KEY)\n\n")

	sb.WriteString("sender:\n")
	sb.WriteString(fmt.Sprintf("  full_name: %q\n", initFullName))
	sb.WriteString(fmt.Sprintf("  email: %q\n", initEmail))
	sb.WriteString("  cc:\n")
	sb.WriteString("    - \"v1startupfair@umich.edu\"\n\n")

	sb.WriteString("event:\n")
	sb.WriteString(fmt.Sprintf("  year: %q\n\n", initYear))

	sb.WriteString("roster:\n")
	sb.WriteString("  path: \"companies.csv\"\n")
	sb.WriteString("  no_name_sentinel: \"NO_NAME\"\n\n")

	sb.WriteString("templates:\n")
	sb.WriteString(fmt.Sprintf("  dir: %q\n", initTemplates))
	sb.WriteString("  kinds:\n")
	sb.WriteString("    Regular: \"personal.html\"\n")
	sb.WriteString("    Small: \"personal.html\"\n")
	sb.WriteString("    Business: \"business.html\"\n\n")

	sb.WriteString("attachment:\n")
	sb.WriteString("  path: \"assets/prospectus.pdf\"\n")
	sb.WriteString("  filename: \"V1 Startup Fair Prospectus.pdf\"\n\n")

	sb.WriteString("transport:\n")
	sb.WriteString(fmt.Sprintf("  type: %s\n", initTransport))
	sb.WriteString(fmt.Sprintf("  mode: %s\n", initMode))
	if initMode == config.ModeRedirect {
		redirect := initRedirect
		if redirect == "" {
			redirect = initEmail
		}
		sb.WriteString("  redirect_to:\n")
		sb.WriteString(fmt.Sprintf("    - %q\n", redirect))
	}
	switch initTransport {
	case config.TransportSES:
		sb.WriteString("  ses:\n")
		sb.WriteString("    region: \"us-east-1\"\n")
	case config.TransportResend:
	default:
		sb.WriteString("  smtp:\n")
		sb.WriteString("    host: \"smtp.gmail.com\"\n")
		sb.WriteString("    port: 465\n")
		sb.WriteString("    security: tls\n")
	}
	sb.WriteString("\n")

	if dkimKeyPath != "" {
		sb.WriteString("dkim:\n")
		sb.WriteString("  enabled: true\n")
		sb.WriteString("  selector: \"outreach\"\n")
		sb.WriteString(fmt.Sprintf("  domain: %q\n", email.ExtractDomain(initEmail)))
		sb.WriteString(fmt.Sprintf("  key_file: %q\n\n", dkimKeyPath))
	}

	sb.WriteString("storage:\n")
	sb.WriteString("  type: file\n")
	sb.WriteString("  path: \"emails_sent.json\"\n")
	sb.WriteString("  db_path: \"outreach.db\"\n\n")

	sb.WriteString("logging:\n")
	sb.WriteString("  level: info\n")
	sb.WriteString("  format: text\n")

	return sb.String()
}

const starterPersonal = `<p>{{.Greeting}},</p>
<p>My name is {{.FullName}} and I help organize the V1 Startup Fair {{.Year}} at the
University of Michigan. We would love to see {{.Company}} recruiting with us.</p>
<p>The attached prospectus has the details.</p>
<p>Best,<br>{{.FirstName}}</p>
`

const starterBusiness = `<p>{{.Greeting}},</p>
<p>My name is {{.FullName}} from the V1 Startup Fair {{.Year}} team. We think
{{.Company}} would be a great partner for this year's fair.</p>
<p>The attached prospectus describes the sponsorship options.</p>
<p>Best,<br>{{.FirstName}}</p>
`

// writeStarterTemplates creates the default template files that do not exist yet
func writeStarterTemplates(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create templates directory: %w", err)
	}

	var created []string
	for name, body := range map[string]string{
		"personal.html": starterPersonal,
		"business.html": starterBusiness,
	} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			return nil, fmt.Errorf("failed to write template %s: %w", name, err)
		}
		created = append(created, path)
	}
	return created, nil
}

func printNextSteps() {
	fmt.Println("Next steps:")
	fmt.Println("  1. Put the roster in companies.csv (columns Company, Name, Email, Type)")
	fmt.Println("  2. Put the prospectus at assets/prospectus.pdf")
	fmt.Printf("  3. Set the credential: echo 'PASSWORD=...' >> .env\n")
	fmt.Printf("  4. Check the setup: outreach -c %s config validate\n", initOutput)
	fmt.Printf("  5. Preview a message: outreach -c %s preview --type Regular\n", initOutput)
	fmt.Printf("  6. Send: outreach -c %s send\n", initOutput)
}
