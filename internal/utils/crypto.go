package utils

import (
	"crypto"
	"crypto/rand"
	"crypto/x509"
	"fmt"

	"software.sslmate.com/src/go-pkcs12"
)

// CreatePKCS12Bundle packs a private key and its certificate into a
// password protected PKCS#12 bundle
func CreatePKCS12Bundle(privateKey crypto.PrivateKey, cert *x509.Certificate, password string) ([]byte, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("private key is required for PKCS#12 output")
	}
	if cert == nil {
		return nil, fmt.Errorf("certificate is required for PKCS#12 output")
	}

	p12Data, err := pkcs12.Encode(rand.Reader, privateKey, cert, nil, password)
	if err != nil {
		return nil, fmt.Errorf("failed to create PKCS#12 bundle: %w", err)
	}
	return p12Data, nil
}
