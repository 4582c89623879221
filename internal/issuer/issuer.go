package issuer

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"time"

	"selfcert/internal/dn"
)

const (
	KeyTypeRSA = "rsa"

	DefaultKeySize            = 4096
	DefaultSignatureAlgorithm = "sha256"
	DefaultValidity           = 365 * 24 * time.Hour
)

var signatureAlgorithms = map[string]x509.SignatureAlgorithm{
	"sha256": x509.SHA256WithRSA,
	"sha384": x509.SHA384WithRSA,
	"sha512": x509.SHA512WithRSA,
}

var allowedKeySizes = map[int]bool{2048: true, 3072: true, 4096: true}

// Config holds the parameters for one issuance. The zero value of
// every optional field selects its default.
type Config struct {
	// Subject is the distinguished name of the certificate holder,
	// e.g. "E=, CN=TestIssuer, O=, OU=, L=, ST=, C=DE". Required.
	// Attribute order and empty values are preserved in the
	// certificate.
	Subject string

	// Issuer optionally names the certificate issuer. Issuance is
	// strictly self-signed, so when set it must encode to the same
	// name as Subject; empty means "same as Subject".
	Issuer string

	// KeyType selects the key algorithm. Only "rsa" is supported.
	KeyType string

	// KeySize is the RSA modulus size in bits: 2048, 3072 or 4096.
	// Zero selects 4096.
	KeySize int

	// SignatureAlgorithm names the signing digest: "sha256",
	// "sha384" or "sha512". Empty selects "sha256".
	SignatureAlgorithm string

	// Validity is the certificate lifetime, added to the moment of
	// issuance as an exact duration (365 days means exactly 8760
	// hours, no calendar arithmetic). Zero selects 365 days.
	Validity time.Duration
}

// issuance is a Config with defaults applied and every field parsed.
type issuance struct {
	subjectDER []byte
	keyType    string
	keySize    int
	sigAlg     x509.SignatureAlgorithm
	validity   time.Duration
}

func resolve(cfg Config) (*issuance, error) {
	if cfg.Subject == "" {
		return nil, newError(StepConfig, "subject is required")
	}
	subject, err := dn.Parse(cfg.Subject)
	if err != nil {
		return nil, newError(StepConfig, "invalid subject: %w", err)
	}
	subjectDER, err := subject.Encode()
	if err != nil {
		return nil, newError(StepConfig, "invalid subject: %w", err)
	}

	if cfg.Issuer != "" {
		issuerName, err := dn.Parse(cfg.Issuer)
		if err != nil {
			return nil, newError(StepConfig, "invalid issuer: %w", err)
		}
		issuerDER, err := issuerName.Encode()
		if err != nil {
			return nil, newError(StepConfig, "invalid issuer: %w", err)
		}
		if !bytes.Equal(issuerDER, subjectDER) {
			return nil, newError(StepConfig, "issuer %q does not match subject %q: issuance is self-signed only", cfg.Issuer, cfg.Subject)
		}
	}

	keyType := cfg.KeyType
	if keyType == "" {
		keyType = KeyTypeRSA
	}
	if keyType != KeyTypeRSA {
		return nil, newError(StepConfig, "unsupported key type %q (supported: rsa)", cfg.KeyType)
	}

	keySize := cfg.KeySize
	if keySize == 0 {
		keySize = DefaultKeySize
	}
	if !allowedKeySizes[keySize] {
		return nil, newError(StepConfig, "unsupported key size %d (supported: 2048, 3072, 4096)", cfg.KeySize)
	}

	sigName := cfg.SignatureAlgorithm
	if sigName == "" {
		sigName = DefaultSignatureAlgorithm
	}
	sigAlg, ok := signatureAlgorithms[sigName]
	if !ok {
		return nil, newError(StepConfig, "unsupported signature algorithm %q (supported: sha256, sha384, sha512)", cfg.SignatureAlgorithm)
	}

	validity := cfg.Validity
	if validity == 0 {
		validity = DefaultValidity
	}
	if validity < 0 {
		return nil, newError(StepConfig, "validity must be positive, got %s", cfg.Validity)
	}

	return &issuance{
		subjectDER: subjectDER,
		keyType:    keyType,
		keySize:    keySize,
		sigAlg:     sigAlg,
		validity:   validity,
	}, nil
}

// Certificate is the outcome of a successful issuance. The private
// key stays in memory only; nothing is written anywhere unless the
// caller does it.
type Certificate struct {
	// DER holds the signed certificate exactly as produced.
	DER []byte
	// Cert is the parsed form of DER.
	Cert *x509.Certificate
	// Key is the private key the certificate was signed with.
	Key crypto.Signer
}

// Base64 returns the single-line standard base64 encoding of the DER
// certificate, the canonical textual output of an issuance.
func (c *Certificate) Base64() string {
	return base64.StdEncoding.EncodeToString(c.DER)
}

// PEM returns the certificate as a PEM block.
func (c *Certificate) PEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.DER})
}

// Issuer issues self-signed certificates. The pipeline is strictly
// linear: validate, generate key, derive serial, assemble, extend,
// sign, rebuild, self-verify. The first failing stage aborts the run
// with a typed Error. An Issuer holds no mutable state and is safe
// for concurrent use.
type Issuer struct {
	provider Provider
}

// New returns an Issuer backed by the given provider. A nil provider
// selects the platform default.
func New(p Provider) *Issuer {
	if p == nil {
		p = DefaultProvider()
	}
	return &Issuer{provider: p}
}

// Issue runs one issuance with the default provider.
func Issue(cfg Config) (*Certificate, error) {
	return New(nil).Issue(cfg)
}

// Issue runs one issuance.
func (i *Issuer) Issue(cfg Config) (*Certificate, error) {
	res, err := resolve(cfg)
	if err != nil {
		return nil, err
	}

	key, err := i.provider.GenerateKey(res.keyType, res.keySize)
	if err != nil {
		return nil, newError(StepKeyGeneration, "failed to generate %d bit %s key: %w", res.keySize, res.keyType, err)
	}

	serial, err := newSerial(i.provider.Rand())
	if err != nil {
		return nil, newError(StepSerial, "failed to derive serial number: %w", err)
	}

	ext, err := basicConstraintsExtension()
	if err != nil {
		return nil, newError(StepExtension, "failed to encode basic constraints: %w", err)
	}

	notBefore := time.Now()
	template := &x509.Certificate{
		SerialNumber:       serial,
		RawSubject:         res.subjectDER,
		NotBefore:          notBefore,
		NotAfter:           notBefore.Add(res.validity),
		SignatureAlgorithm: res.sigAlg,
		ExtraExtensions:    []pkix.Extension{ext},
	}
	// The parent carries the issuer name, which for a self-signed
	// certificate is the subject itself.
	parent := &x509.Certificate{RawSubject: res.subjectDER}

	der, err := i.provider.CreateCertificate(template, parent, key.Public(), key)
	if err != nil {
		return nil, newError(StepSigning, "failed to sign certificate: %w", err)
	}

	cert, err := i.provider.ParseCertificate(der)
	if err != nil {
		return nil, newError(StepBuild, "failed to parse signed certificate: %w", err)
	}

	if err := verify(cert, key.Public(), time.Now()); err != nil {
		return nil, err
	}

	return &Certificate{DER: der, Cert: cert, Key: key}, nil
}

var oidBasicConstraints = asn1.ObjectIdentifier{2, 5, 29, 19}

// basicConstraints mirrors the ASN.1 structure from RFC 5280 4.2.1.9.
// For a non-CA end entity both fields are omitted from the encoding,
// leaving the empty SEQUENCE 0x30 0x00.
type basicConstraints struct {
	IsCA       bool `asn1:"optional"`
	MaxPathLen int  `asn1:"optional,default:-1"`
}

// basicConstraintsExtension builds the certificate's single
// extension: basic constraints, marked non-critical. The template's
// convenience field cannot produce this, it always sets critical.
func basicConstraintsExtension() (pkix.Extension, error) {
	value, err := asn1.Marshal(basicConstraints{IsCA: false, MaxPathLen: -1})
	if err != nil {
		return pkix.Extension{}, err
	}
	return pkix.Extension{Id: oidBasicConstraints, Critical: false, Value: value}, nil
}

// verify runs the post-signing self checks: validity window, public
// key match and the certificate's own signature. Chain verification
// is deliberately not used, it would reject the non-CA issuer.
func verify(cert *x509.Certificate, pub crypto.PublicKey, now time.Time) error {
	if err := checkWindow(cert, now); err != nil {
		return err
	}

	certPub, ok := cert.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !certPub.Equal(pub) {
		return newError(StepVerification, "certificate public key does not match the generated key")
	}

	if err := cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature); err != nil {
		return newError(StepVerification, "self-signature verification failed: %w", err)
	}
	return nil
}

func checkWindow(cert *x509.Certificate, now time.Time) error {
	if now.Before(cert.NotBefore) {
		return newError(StepNotYetValid, "certificate is not valid before %s", cert.NotBefore.Format(time.RFC3339))
	}
	if now.After(cert.NotAfter) {
		return newError(StepExpired, "certificate expired at %s", cert.NotAfter.Format(time.RFC3339))
	}
	return nil
}
