package cert

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"selfcert/internal/issuer"
	"selfcert/internal/utils"
)

// OutputFormat represents the output format for issued certificates
type OutputFormat string

const (
	FormatBase64 OutputFormat = "base64"
	FormatPEM    OutputFormat = "pem"
	FormatDER    OutputFormat = "der"
	FormatP12    OutputFormat = "p12"
	FormatPFX    OutputFormat = "pfx"
)

// SupportedFormats lists the accepted output format names
func SupportedFormats() []string {
	return []string{"base64", "pem", "der", "p12"}
}

// Outputter writes an issued certificate in the configured format,
// either to the screen writer or to files
type Outputter struct {
	format   OutputFormat
	certFile string
	keyFile  string
	password string
	out      io.Writer
}

// NewOutputter creates a new certificate outputter. When out is nil,
// screen output goes to stdout.
func NewOutputter(format, certFile, keyFile, password string, out io.Writer) *Outputter {
	if out == nil {
		out = os.Stdout
	}
	if format == "" {
		format = string(FormatBase64)
	}
	return &Outputter{
		format:   OutputFormat(strings.ToLower(format)),
		certFile: certFile,
		keyFile:  keyFile,
		password: password,
		out:      out,
	}
}

// Output writes the certificate in the configured format
func (o *Outputter) Output(c *issuer.Certificate, includeKey bool) error {
	switch o.format {
	case FormatBase64:
		return o.outputBase64(c)
	case FormatPEM:
		return o.outputPEM(c, includeKey)
	case FormatDER:
		return o.outputDER(c)
	case FormatP12, FormatPFX:
		return o.outputPKCS12(c)
	default:
		return utils.NewUnsupportedFormatError(string(o.format), SupportedFormats())
	}
}

// outputBase64 writes the single line base64 encoding of the DER
// certificate, the canonical textual form
func (o *Outputter) outputBase64(c *issuer.Certificate) error {
	if o.certFile == "" {
		_, err := fmt.Fprintln(o.out, c.Base64())
		return err
	}

	if err := os.WriteFile(o.certFile, []byte(c.Base64()+"\n"), 0644); err != nil {
		return utils.NewFileWriteError("certificate", err)
	}
	utils.DisplayInfo(fmt.Sprintf("Certificate written to: %s", o.certFile))
	return nil
}

// outputPEM writes the certificate in PEM format, plus the private
// key when requested
func (o *Outputter) outputPEM(c *issuer.Certificate, includeKey bool) error {
	if o.certFile == "" {
		if _, err := o.out.Write(c.PEM()); err != nil {
			return err
		}
		if includeKey && o.keyFile != "" {
			return o.writeKeyFile(c, o.keyFile)
		}
		return nil
	}

	certFile := o.certFile
	if !strings.HasSuffix(certFile, ".pem") && !strings.HasSuffix(certFile, ".crt") {
		certFile += ".pem"
	}
	if err := os.WriteFile(certFile, c.PEM(), 0644); err != nil {
		return utils.NewFileWriteError("certificate", err)
	}
	utils.DisplayInfo(fmt.Sprintf("Certificate written to: %s", certFile))

	if includeKey {
		keyFile := o.keyFile
		if keyFile == "" {
			keyFile = strings.TrimSuffix(certFile, filepath.Ext(certFile)) + "-key.pem"
		}
		return o.writeKeyFile(c, keyFile)
	}
	return nil
}

// writeKeyFile writes the private key with restrictive permissions,
// encrypting it when a password is configured
func (o *Outputter) writeKeyFile(c *issuer.Certificate, keyFile string) error {
	var keyPEM []byte
	var err error
	if o.password != "" {
		keyPEM, err = EncodePrivateKeyPEMWithPassword(c.Key, o.password)
	} else {
		keyPEM, err = EncodePrivateKeyPEM(c.Key)
	}
	if err != nil {
		return fmt.Errorf("failed to encode private key: %w", err)
	}

	if err := os.WriteFile(keyFile, keyPEM, 0600); err != nil {
		return utils.NewFileWriteError("private key", err)
	}
	utils.DisplayInfo(fmt.Sprintf("Private key written to: %s", keyFile))
	return nil
}

// outputDER writes the raw DER certificate. DER is binary, so a file
// is required.
func (o *Outputter) outputDER(c *issuer.Certificate) error {
	if o.certFile == "" {
		return fmt.Errorf("der output requires an output file (use --file)")
	}

	outfile := o.certFile
	if !strings.HasSuffix(outfile, ".der") {
		outfile += ".der"
	}
	if err := os.WriteFile(outfile, c.DER, 0644); err != nil {
		return utils.NewFileWriteError("certificate", err)
	}
	utils.DisplayInfo(fmt.Sprintf("DER certificate written to: %s", outfile))
	return nil
}

// outputPKCS12 writes certificate and key as a PKCS#12 bundle
func (o *Outputter) outputPKCS12(c *issuer.Certificate) error {
	if o.certFile == "" {
		return fmt.Errorf("%s output requires an output file (use --file)", o.format)
	}
	if o.password == "" {
		return fmt.Errorf("%s output requires a password (use --password)", o.format)
	}

	bundle, err := utils.CreatePKCS12Bundle(c.Key, c.Cert, o.password)
	if err != nil {
		return fmt.Errorf("failed to create PKCS#12 bundle: %w", err)
	}

	outfile := o.certFile
	if !strings.HasSuffix(outfile, ".p12") && !strings.HasSuffix(outfile, ".pfx") {
		outfile += ".p12"
	}
	if err := os.WriteFile(outfile, bundle, 0600); err != nil {
		return utils.NewFileWriteError("PKCS#12 bundle", err)
	}
	utils.DisplayInfo(fmt.Sprintf("PKCS#12 bundle written to: %s", outfile))
	return nil
}
