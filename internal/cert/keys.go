package cert

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
)

const (
	pemTypeRSAPrivateKey   = "RSA PRIVATE KEY"
	pemTypePKCS8PrivateKey = "PRIVATE KEY"
)

// EncodePrivateKeyPEM encodes a private key to PEM format
func EncodePrivateKeyPEM(privateKey crypto.PrivateKey) ([]byte, error) {
	switch key := privateKey.(type) {
	case *rsa.PrivateKey:
		return pem.EncodeToMemory(&pem.Block{
			Type:  pemTypeRSAPrivateKey,
			Bytes: x509.MarshalPKCS1PrivateKey(key),
		}), nil
	default:
		return nil, fmt.Errorf("unsupported private key type %T", privateKey)
	}
}

// EncodePrivateKeyPEMWithPassword encodes a private key to PEM format
// encrypted with AES-256-CBC under the given password
func EncodePrivateKeyPEMWithPassword(privateKey crypto.PrivateKey, password string) ([]byte, error) {
	key, ok := privateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("unsupported private key type %T", privateKey)
	}

	block, err := x509.EncryptPEMBlock(rand.Reader, pemTypeRSAPrivateKey,
		x509.MarshalPKCS1PrivateKey(key), []byte(password), x509.PEMCipherAES256)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt private key: %w", err)
	}
	return pem.EncodeToMemory(block), nil
}

// ParsePrivateKeyPEM parses a PEM encoded private key, decrypting it
// with the given password when the block is encrypted
func ParsePrivateKeyPEM(data []byte, password string) (crypto.Signer, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	der := block.Bytes
	if x509.IsEncryptedPEMBlock(block) {
		if password == "" {
			return nil, fmt.Errorf("private key is encrypted but no password was given")
		}
		decrypted, err := x509.DecryptPEMBlock(block, []byte(password))
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt private key: %w", err)
		}
		der = decrypted
	}

	switch block.Type {
	case pemTypeRSAPrivateKey:
		key, err := x509.ParsePKCS1PrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		return key, nil
	case pemTypePKCS8PrivateKey:
		parsed, err := x509.ParsePKCS8PrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		signer, ok := parsed.(crypto.Signer)
		if !ok {
			return nil, fmt.Errorf("unsupported private key type %T", parsed)
		}
		return signer, nil
	default:
		return nil, fmt.Errorf("PEM block is not a private key: %s", block.Type)
	}
}

// KeyInfo returns the algorithm name and bit size of a private key
func KeyInfo(privateKey crypto.PrivateKey) (string, int, error) {
	switch key := privateKey.(type) {
	case *rsa.PrivateKey:
		return "RSA", key.N.BitLen(), nil
	default:
		return "", 0, fmt.Errorf("unsupported private key type %T", privateKey)
	}
}
