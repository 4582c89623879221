package issuer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"io"
	"strings"
)

// Provider supplies the cryptographic primitives the issuance
// pipeline runs on. Callers pass a Provider explicitly instead of
// registering one globally, so two issuers with different providers
// can coexist in one process.
type Provider interface {
	// Rand is the randomness source for key generation and serial
	// derivation.
	Rand() io.Reader
	// GenerateKey creates a fresh private key for the given
	// algorithm and size.
	GenerateKey(keyType string, bits int) (crypto.Signer, error)
	// CreateCertificate signs template with priv and returns the
	// certificate in DER form.
	CreateCertificate(template, parent *x509.Certificate, pub crypto.PublicKey, priv crypto.PrivateKey) ([]byte, error)
	// ParseCertificate decodes signed DER bytes.
	ParseCertificate(der []byte) (*x509.Certificate, error)
}

// DefaultProvider returns the provider backed by the platform crypto
// stack.
func DefaultProvider() Provider {
	return platformProvider{}
}

type platformProvider struct{}

func (platformProvider) Rand() io.Reader {
	return rand.Reader
}

func (platformProvider) GenerateKey(keyType string, bits int) (crypto.Signer, error) {
	switch strings.ToLower(keyType) {
	case "", KeyTypeRSA:
		return rsa.GenerateKey(rand.Reader, bits)
	default:
		return nil, fmt.Errorf("unsupported key type %q", keyType)
	}
}

func (platformProvider) CreateCertificate(template, parent *x509.Certificate, pub crypto.PublicKey, priv crypto.PrivateKey) ([]byte, error) {
	return x509.CreateCertificate(rand.Reader, template, parent, pub, priv)
}

func (platformProvider) ParseCertificate(der []byte) (*x509.Certificate, error) {
	return x509.ParseCertificate(der)
}
