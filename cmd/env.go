package cmd

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

var showExamples bool

// envVars lists the environment variables the tool reads, in display order
var envVars = []struct {
	name        string
	description string
}{
	{"SELFCERT_SUBJECT", "Subject DN for issued certificates"},
	{"SELFCERT_ISSUER", "Issuer DN (must equal the subject)"},
	{"SELFCERT_VALIDITY", "Validity period (365, 30d, 1y6m, ...)"},
	{"SELFCERT_KEY_SIZE", "RSA key size (2048, 3072, 4096)"},
	{"SELFCERT_KEY_TYPE", "Key type (rsa)"},
	{"SELFCERT_FORMAT", "Output format (base64, pem, der, p12)"},
	{"SELFCERT_FILE", "Output file path"},
	{"SELFCERT_PASSWORD", "Password for PKCS#12 bundles"},
}

// envCmd represents the env command
var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Show environment variable setup instructions",
	Long: `Environment Variables:
  SELFCERT_SUBJECT     Subject DN for issued certificates
  SELFCERT_ISSUER      Issuer DN (must equal the subject)
  SELFCERT_VALIDITY    Validity period (365, 30d, 1y6m, ...)
  SELFCERT_KEY_SIZE    RSA key size (2048, 3072, 4096)
  SELFCERT_KEY_TYPE    Key type (rsa)
  SELFCERT_FORMAT      Output format (base64, pem, der, p12)
  SELFCERT_FILE        Output file path
  SELFCERT_PASSWORD    Password for PKCS#12 bundles

Configuration:
  Use --config to specify a profile configuration file (selfcert.cnf)
  Use --profile to select a specific profile from the config file
  Profile file values override environment variables; explicit flags
  override both`,
	Example: `  selfcert env              # Show current status and basic usage
  selfcert env --examples   # Show platform-specific setup instructions`,
	RunE: runEnv,
}

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.Flags().BoolVar(&showExamples, "examples", false, "Show platform-specific setup instructions")
}

func runEnv(cmd *cobra.Command, args []string) error {
	// Show current status
	fmt.Println("Current Status:")
	for _, v := range envVars {
		checkEnvVar(v.name)
	}
	fmt.Println()

	if showExamples {
		platform := runtime.GOOS
		fmt.Printf("Platform-Specific Setup Instructions for %s\n\n", strings.Title(platform))

		switch platform {
		case "windows":
			showWindowsInstructions()
		default:
			showUnixInstructions(platform)
		}
	} else {
		fmt.Println("Basic Usage:")
		fmt.Println("  Set SELFCERT_* variables to preconfigure issuance")
		fmt.Println("  Use --examples flag for platform-specific instructions")
		fmt.Println()
	}

	return nil
}

func checkEnvVar(name string) {
	value := os.Getenv(name)
	if value != "" {
		fmt.Printf("  ✓ %s is set\n", name)
	} else {
		fmt.Printf("  ✗ %s is not set\n", name)
	}
}

func showWindowsInstructions() {
	fmt.Println("Windows Setup Instructions:")
	fmt.Println()

	fmt.Println("Option 1: Command Prompt (Current Session)")
	fmt.Println("  set SELFCERT_SUBJECT=CN=test.example.com")
	fmt.Println("  set SELFCERT_VALIDITY=1y")
	fmt.Println("  set SELFCERT_PASSWORD=your_bundle_password")
	fmt.Println()

	fmt.Println("Option 2: PowerShell (Current Session)")
	fmt.Println("  $env:SELFCERT_SUBJECT=\"CN=test.example.com\"")
	fmt.Println("  $env:SELFCERT_VALIDITY=\"1y\"")
	fmt.Println("  $env:SELFCERT_PASSWORD=\"your_bundle_password\"")
	fmt.Println()

	fmt.Println("Option 3: Permanent (System Environment Variables)")
	fmt.Println("  1. Open System Properties -> Advanced -> Environment Variables")
	fmt.Println("  2. Under 'User variables', click 'New'")
	fmt.Println("  3. Add each variable name and value")
	fmt.Println("  4. Restart your command prompt/PowerShell")
}

func showUnixInstructions(platform string) {
	switch platform {
	case "darwin":
		fmt.Println("macOS Setup Instructions:")
	case "linux":
		fmt.Println("Linux Setup Instructions:")
	default:
		fmt.Println("Unix-like System Setup Instructions:")
	}
	fmt.Println()

	fmt.Println("Option 1: Current Terminal Session")
	fmt.Println("  export SELFCERT_SUBJECT=\"CN=test.example.com\"")
	fmt.Println("  export SELFCERT_VALIDITY=1y")
	fmt.Println("  export SELFCERT_PASSWORD=your_bundle_password")
	fmt.Println()

	fmt.Println("Option 2: Shell Profile (Persistent)")
	fmt.Println("  1. Edit your profile: ~/.bashrc, ~/.zshrc or ~/.profile")
	fmt.Println("  2. Add the export lines from Option 1")
	fmt.Println("  3. Reload the profile: source ~/.bashrc")
	fmt.Println()

	fmt.Println("Option 3: Per-invocation")
	fmt.Println("  SELFCERT_SUBJECT=\"CN=test.example.com\" selfcert issue")
}
