package cert

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"selfcert/internal/dn"
	"selfcert/internal/issuer"
	"selfcert/internal/utils"
)

// Details is the flattened view of a certificate used for display
type Details struct {
	Subject            string    `json:"subject" yaml:"subject"`
	Issuer             string    `json:"issuer" yaml:"issuer"`
	SelfSigned         bool      `json:"self_signed" yaml:"self_signed"`
	SerialNumber       string    `json:"serial_number" yaml:"serial_number"`
	SerialUUID         string    `json:"serial_uuid,omitempty" yaml:"serial_uuid,omitempty"`
	NotBefore          time.Time `json:"not_before" yaml:"not_before"`
	NotAfter           time.Time `json:"not_after" yaml:"not_after"`
	Expired            bool      `json:"expired" yaml:"expired"`
	PublicKeyAlgorithm string    `json:"public_key_algorithm" yaml:"public_key_algorithm"`
	KeySize            int       `json:"key_size,omitempty" yaml:"key_size,omitempty"`
	SignatureAlgorithm string    `json:"signature_algorithm" yaml:"signature_algorithm"`
	IsCA               bool      `json:"is_ca" yaml:"is_ca"`
	BasicConstraints   string    `json:"basic_constraints,omitempty" yaml:"basic_constraints,omitempty"`
	SHA256Fingerprint  string    `json:"sha256_fingerprint" yaml:"sha256_fingerprint"`
}

// ExtractDetails builds the display view of a parsed certificate
func ExtractDetails(c *x509.Certificate) *Details {
	d := &Details{
		Subject:            dn.FromPkixAttributes(c.Subject.Names).String(),
		Issuer:             dn.FromPkixAttributes(c.Issuer.Names).String(),
		SelfSigned:         bytes.Equal(c.RawSubject, c.RawIssuer),
		SerialNumber:       c.SerialNumber.String(),
		NotBefore:          c.NotBefore,
		NotAfter:           c.NotAfter,
		Expired:            time.Now().After(c.NotAfter),
		PublicKeyAlgorithm: c.PublicKeyAlgorithm.String(),
		SignatureAlgorithm: c.SignatureAlgorithm.String(),
		IsCA:               c.IsCA,
		SHA256Fingerprint:  fingerprint(c.Raw),
	}

	if id, ok := issuer.SerialUUID(c.SerialNumber); ok {
		d.SerialUUID = id
	}

	switch pub := c.PublicKey.(type) {
	case *rsa.PublicKey:
		d.KeySize = pub.N.BitLen()
	case *ecdsa.PublicKey:
		d.KeySize = pub.Curve.Params().BitSize
	case ed25519.PublicKey:
		d.KeySize = len(pub) * 8
	}

	for _, ext := range c.Extensions {
		if ext.Id.Equal([]int{2, 5, 29, 19}) {
			criticality := "non-critical"
			if ext.Critical {
				criticality = "critical"
			}
			d.BasicConstraints = fmt.Sprintf("CA=%t (%s)", c.IsCA, criticality)
		}
	}

	return d
}

func fingerprint(der []byte) string {
	sum := sha256.Sum256(der)
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}

// Render writes the details in the requested format: text, json or
// yaml
func (d *Details) Render(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case "", "text":
		return d.renderText(w)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	default:
		return utils.NewUnsupportedFormatError(format, []string{"text", "json", "yaml"})
	}
}

func (d *Details) renderText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)

	fmt.Fprintf(tw, "Subject:\t%s\n", d.Subject)
	fmt.Fprintf(tw, "Issuer:\t%s\n", d.Issuer)
	fmt.Fprintf(tw, "Self-signed:\t%t\n", d.SelfSigned)
	fmt.Fprintf(tw, "Serial:\t%s\n", d.SerialNumber)
	if d.SerialUUID != "" {
		fmt.Fprintf(tw, "Serial UUID:\t%s\n", d.SerialUUID)
	}
	fmt.Fprintf(tw, "Not before:\t%s\n", d.NotBefore.Format(time.RFC3339))
	fmt.Fprintf(tw, "Not after:\t%s\n", d.NotAfter.Format(time.RFC3339))
	fmt.Fprintf(tw, "Expired:\t%t\n", d.Expired)
	fmt.Fprintf(tw, "Public key:\t%s", d.PublicKeyAlgorithm)
	if d.KeySize > 0 {
		fmt.Fprintf(tw, " (%d bit)", d.KeySize)
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Signature:\t%s\n", d.SignatureAlgorithm)
	if d.BasicConstraints != "" {
		fmt.Fprintf(tw, "Basic constraints:\t%s\n", d.BasicConstraints)
	}
	fmt.Fprintf(tw, "SHA-256:\t%s\n", d.SHA256Fingerprint)

	return tw.Flush()
}

// ParseAny parses a certificate supplied as PEM, single line base64
// or raw DER, detecting the encoding
func ParseAny(data []byte) (*x509.Certificate, error) {
	if block, _ := pem.Decode(data); block != nil {
		if block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("PEM block is %q, expected CERTIFICATE", block.Type)
		}
		c, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		return c, nil
	}

	compact := strings.Join(strings.Fields(string(data)), "")
	if der, err := base64.StdEncoding.DecodeString(compact); err == nil {
		if c, err := x509.ParseCertificate(der); err == nil {
			return c, nil
		}
	}

	c, err := x509.ParseCertificate(data)
	if err != nil {
		return nil, fmt.Errorf("input is not a PEM, base64 or DER certificate: %w", err)
	}
	return c, nil
}
