package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"selfcert/internal/cert"
	"selfcert/internal/config"
	"selfcert/internal/issuer"
	"selfcert/internal/utils"
	"selfcert/internal/validity"
)

var (
	issueCN       string
	issueSubject  string
	issueIssuer   string
	issueValidity string
	issueKeySize  int
	issueKeyType  string
	issueSigAlg   string
	issueFormat   string
	issueOutfile  string
	issueKeyFile  string
	issuePassword string
	issueNoKey    bool
)

// issueCmd represents the issue command
var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Issue a new self-signed certificate",
	Long: `The issue command creates a new self-signed X.509 certificate. It
generates an RSA key pair locally, derives the serial number from a
random UUID, signs the certificate with its own private key and
verifies the signature before anything is written.

The subject is taken literally: attribute order and empty values are
preserved, so "E=, CN=TestIssuer, O=, OU=, L=, ST=, C=DE" produces
exactly those seven attributes. Issuer and subject are always the
same name.

By default the certificate is printed to stdout as a single base64
line and the private key stays in memory. Use --format and --file to
write PEM, DER or PKCS#12 output instead.

Examples:
  # Base64 certificate on stdout
  selfcert issue --cn "test.example.com"

  # Full subject, one year split into units
  selfcert issue --subject "E=, CN=TestIssuer, O=, OU=, L=, ST=, C=DE" --validity 1y

  # PEM certificate and key files
  selfcert issue --cn "server.local" --format pem --file server.pem

  # PKCS#12 bundle
  selfcert issue --cn "bundle.local" --format p12 --file bundle.p12 --password secret

  # Using profile configuration
  selfcert --config selfcert.cnf --profile server issue`,
	RunE: runIssue,
}

func init() {
	rootCmd.AddCommand(issueCmd)

	// Certificate subject flags
	issueCmd.Flags().StringVar(&issueCN, "cn", "", "Common Name for the certificate subject")
	issueCmd.Flags().StringVar(&issueSubject, "subject", "", "Full subject DN, e.g. \"CN=test, O=Example, C=DE\" (overrides --cn)")
	issueCmd.Flags().StringVar(&issueIssuer, "issuer", "", "Issuer DN (must equal the subject; informational)")

	// Key generation options
	issueCmd.Flags().IntVar(&issueKeySize, "key-size", 0, "RSA key size in bits: 2048, 3072 or 4096 (default 4096)")
	issueCmd.Flags().StringVar(&issueKeyType, "key-type", "", "Key type (only rsa is supported)")
	issueCmd.Flags().StringVar(&issueSigAlg, "sig-alg", "", "Signature algorithm: sha256, sha384 or sha512 (default sha256)")
	issueCmd.Flags().StringVar(&issueValidity, "validity", "", "Validity period: days or unit form like 30d, 6m, 1y6m (default 365)")

	// Output options
	issueCmd.Flags().StringVar(&issueFormat, "format", "", "Output format: base64, pem, der, p12 (default base64)")
	issueCmd.Flags().StringVar(&issueOutfile, "file", "", "Output file path (required for der and p12)")
	issueCmd.Flags().StringVar(&issueKeyFile, "key-file", "", "Private key output file (pem format)")
	issueCmd.Flags().StringVar(&issuePassword, "password", "", "Password for PKCS#12 bundles and encrypted key files")
	issueCmd.Flags().StringVar(&issuePassword, "p12-password", "", "Password for PKCS#12 format (alias for --password)")
	issueCmd.Flags().BoolVar(&issueNoKey, "no-key-output", false, "Don't write the private key anywhere")
}

func runIssue(cmd *cobra.Command, args []string) error {
	// Profile from --config/--profile, or the viper-backed defaults
	// (YAML fallback config and SELFCERT_* variables)
	base := GetCurrentProfile()
	if base == nil {
		base = config.FromViper()
	}

	merged := config.MergeProfileWithFlags(base, issueFlagOverrides(cmd))

	// An explicit --cn overrides a full subject string inherited from
	// the profile or environment, while keeping field-wise subject
	// components the profile may add (organization, country, ...).
	if cmd.Flags().Changed("cn") && !cmd.Flags().Changed("subject") {
		merged.Subject = ""
		merged.SubjectCommonName = issueCN
	}

	subject := merged.SubjectDN()
	if subject == "" {
		return utils.NewSubjectRequiredError()
	}
	if err := config.Validate(merged); err != nil {
		return err
	}

	period, err := validity.Parse(merged.Validity)
	if err != nil {
		return utils.NewParameterValidationError("validity", err.Error())
	}

	format := strings.ToLower(merged.Format)
	password := merged.Password
	if (format == "p12" || format == "pfx") && password == "" {
		if utils.IsInteractive() {
			// Prompt failures (closed stdin) fall through to the
			// password-required error below
			password, _ = utils.PromptPassword("Enter PKCS#12 password: ")
		}
		if password == "" {
			return utils.NewPasswordRequiredError(format)
		}
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Issuing self-signed certificate\n")
		fmt.Fprintf(os.Stderr, "  Subject:   %s\n", subject)
		fmt.Fprintf(os.Stderr, "  Key:       %d bit %s\n", merged.KeySize, strings.ToLower(merged.KeyType))
		fmt.Fprintf(os.Stderr, "  Signature: %s\n", strings.ToLower(merged.SigAlg))
		fmt.Fprintf(os.Stderr, "  Validity:  %d days\n", period.TotalDays())
	}

	certificate, err := issuer.Issue(issuer.Config{
		Subject:            subject,
		Issuer:             merged.Issuer,
		KeyType:            strings.ToLower(merged.KeyType),
		KeySize:            merged.KeySize,
		SignatureAlgorithm: strings.ToLower(merged.SigAlg),
		Validity:           period.Duration(),
	})
	if err != nil {
		return utils.NewIssuanceError(err)
	}

	if viper.GetBool("verbose") {
		if id, ok := issuer.SerialUUID(certificate.Cert.SerialNumber); ok {
			fmt.Fprintf(os.Stderr, "  Serial:    %s (UUID %s)\n", certificate.Cert.SerialNumber, id)
		}
		fmt.Fprintf(os.Stderr, "  Expires:   %s\n", certificate.Cert.NotAfter.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintln(os.Stderr, "Self-verification passed")
	}

	outputter := cert.NewOutputter(format, merged.File, merged.KeyFile, password, nil)
	return outputter.Output(certificate, !merged.NoKeyOut)
}

// issueFlagOverrides collects only the flags the user actually set,
// so that unset flags never shadow profile or environment values.
func issueFlagOverrides(cmd *cobra.Command) *config.Profile {
	flags := &config.Profile{}

	if cmd.Flags().Changed("cn") {
		flags.SubjectCommonName = issueCN
	}
	if cmd.Flags().Changed("subject") {
		flags.Subject = issueSubject
	}
	if cmd.Flags().Changed("issuer") {
		flags.Issuer = issueIssuer
	}
	if cmd.Flags().Changed("validity") {
		flags.Validity = issueValidity
	}
	if cmd.Flags().Changed("key-size") {
		flags.KeySize = issueKeySize
	}
	if cmd.Flags().Changed("key-type") {
		flags.KeyType = issueKeyType
	}
	if cmd.Flags().Changed("sig-alg") {
		flags.SigAlg = issueSigAlg
	}
	if cmd.Flags().Changed("format") {
		flags.Format = issueFormat
	}
	if cmd.Flags().Changed("file") {
		flags.File = issueOutfile
	}
	if cmd.Flags().Changed("key-file") {
		flags.KeyFile = issueKeyFile
	}
	if cmd.Flags().Changed("password") || cmd.Flags().Changed("p12-password") {
		flags.Password = issuePassword
	}
	if cmd.Flags().Changed("no-key-output") {
		flags.NoKeyOut = issueNoKey
	}

	return flags
}
