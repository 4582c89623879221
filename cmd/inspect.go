package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"selfcert/internal/cert"
	"selfcert/internal/utils"
)

var inspectFormat string

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect [certificate-file]",
	Short: "Display the details of a certificate",
	Long: `The inspect command reads a certificate and prints its details:
subject, issuer, serial number (and the UUID it encodes, when it
does), validity window, key and signature algorithms, extensions and
the SHA-256 fingerprint.

The input encoding is detected automatically: PEM, single-line base64
(the issue command's default output) or raw DER all work. Reading
from stdin lets the output of issue be piped straight in.

Examples:
  selfcert inspect server.pem
  selfcert inspect --format json bundle.der
  selfcert issue --cn "test.example.com" | selfcert inspect -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format: text, json, yaml")
}

func runInspect(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error

	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return utils.NewFileReadError("certificate", err)
		}
	} else {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return utils.NewFileReadError("certificate", err)
		}
	}

	parsed, err := cert.ParseAny(data)
	if err != nil {
		return utils.NewCertificateParseError(err)
	}

	details := cert.ExtractDetails(parsed)
	if details.Expired {
		utils.DisplayWarning(fmt.Sprintf("Certificate expired at %s", details.NotAfter.Format(time.RFC3339)))
	}

	return details.Render(os.Stdout, inspectFormat)
}
