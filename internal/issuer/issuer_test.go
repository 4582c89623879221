package issuer

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"selfcert/internal/dn"
)

const referenceSubject = "E=, CN=TestIssuer, O=, OU=, L=, ST=, C=DE"

var (
	keyOnce  sync.Once
	cached   *rsa.PrivateKey
	cachedB  *rsa.PrivateKey
	keyError error
)

// testKeys returns two shared RSA keys so the pipeline tests do not
// pay for key generation on every run.
func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keyOnce.Do(func() {
		cached, keyError = rsa.GenerateKey(rand.Reader, 2048)
		if keyError == nil {
			cachedB, keyError = rsa.GenerateKey(rand.Reader, 2048)
		}
	})
	if keyError != nil {
		t.Fatalf("failed to generate test keys: %v", keyError)
	}
	return cached, cachedB
}

// stubProvider wraps the default provider and allows individual
// stages to be replaced or forced to fail.
type stubProvider struct {
	rand     io.Reader
	key      crypto.Signer
	keyErr   error
	signErr  error
	parseErr error
}

func (s *stubProvider) Rand() io.Reader {
	if s.rand != nil {
		return s.rand
	}
	return rand.Reader
}

func (s *stubProvider) GenerateKey(keyType string, bits int) (crypto.Signer, error) {
	if s.keyErr != nil {
		return nil, s.keyErr
	}
	if s.key != nil {
		return s.key, nil
	}
	return DefaultProvider().GenerateKey(keyType, bits)
}

func (s *stubProvider) CreateCertificate(template, parent *x509.Certificate, pub crypto.PublicKey, priv crypto.PrivateKey) ([]byte, error) {
	if s.signErr != nil {
		return nil, s.signErr
	}
	return DefaultProvider().CreateCertificate(template, parent, pub, priv)
}

func (s *stubProvider) ParseCertificate(der []byte) (*x509.Certificate, error) {
	if s.parseErr != nil {
		return nil, s.parseErr
	}
	return DefaultProvider().ParseCertificate(der)
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) {
	return 0, r.err
}

func TestIssueReferenceSubject(t *testing.T) {
	key, _ := testKeys(t)
	iss := New(&stubProvider{key: key})

	c, err := iss.Issue(Config{Subject: referenceSubject})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	cert := c.Cert
	if !bytes.Equal(cert.Raw, c.DER) {
		t.Error("parsed certificate bytes differ from issued DER")
	}
	if !bytes.Equal(cert.RawSubject, cert.RawIssuer) {
		t.Error("issuer and subject encodings differ for a self-signed certificate")
	}

	name := dn.FromPkixAttributes(cert.Subject.Names)
	if got := name.String(); got != referenceSubject {
		t.Errorf("subject = %q, want %q", got, referenceSubject)
	}

	if len(cert.Extensions) != 1 {
		t.Fatalf("expected exactly 1 extension, got %d", len(cert.Extensions))
	}
	ext := cert.Extensions[0]
	if !ext.Id.Equal(oidBasicConstraints) {
		t.Errorf("extension OID = %v, want %v", ext.Id, oidBasicConstraints)
	}
	if ext.Critical {
		t.Error("basic constraints must not be critical")
	}
	if !bytes.Equal(ext.Value, []byte{0x30, 0x00}) {
		t.Errorf("basic constraints value = %x, want 3000", ext.Value)
	}
	if cert.IsCA {
		t.Error("certificate must not be a CA")
	}

	if _, ok := SerialUUID(cert.SerialNumber); !ok {
		t.Errorf("serial %v does not recover to a UUID", cert.SerialNumber)
	}

	if got := cert.NotAfter.Sub(cert.NotBefore); got != DefaultValidity {
		t.Errorf("validity span = %v, want %v", got, DefaultValidity)
	}

	if cert.SignatureAlgorithm != x509.SHA256WithRSA {
		t.Errorf("signature algorithm = %v, want %v", cert.SignatureAlgorithm, x509.SHA256WithRSA)
	}
}

func TestIssueBase64RoundTrip(t *testing.T) {
	key, _ := testKeys(t)
	c, err := New(&stubProvider{key: key}).Issue(Config{Subject: "CN=roundtrip"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	der, err := base64.StdEncoding.DecodeString(c.Base64())
	if err != nil {
		t.Fatalf("base64 output does not decode: %v", err)
	}
	parsed, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("decoded base64 does not parse: %v", err)
	}
	if !bytes.Equal(parsed.Raw, c.DER) {
		t.Error("certificate decoded from base64 differs from issued DER")
	}

	block, rest := pem.Decode(c.PEM())
	if block == nil || block.Type != "CERTIFICATE" {
		t.Fatal("PEM output is not a CERTIFICATE block")
	}
	if len(rest) != 0 {
		t.Errorf("PEM output has %d trailing bytes", len(rest))
	}
	if !bytes.Equal(block.Bytes, c.DER) {
		t.Error("PEM payload differs from issued DER")
	}
}

func TestIssueCustomValidity(t *testing.T) {
	key, _ := testKeys(t)
	c, err := New(&stubProvider{key: key}).Issue(Config{
		Subject:  "CN=short-lived",
		Validity: 48 * time.Hour,
	})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if got := c.Cert.NotAfter.Sub(c.Cert.NotBefore); got != 48*time.Hour {
		t.Errorf("validity span = %v, want %v", got, 48*time.Hour)
	}
}

func TestIssueSignatureAlgorithms(t *testing.T) {
	key, _ := testKeys(t)
	tests := []struct {
		name string
		want x509.SignatureAlgorithm
	}{
		{name: "sha256", want: x509.SHA256WithRSA},
		{name: "sha384", want: x509.SHA384WithRSA},
		{name: "sha512", want: x509.SHA512WithRSA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(&stubProvider{key: key}).Issue(Config{
				Subject:            "CN=algs",
				SignatureAlgorithm: tt.name,
			})
			if err != nil {
				t.Fatalf("Issue returned error: %v", err)
			}
			if c.Cert.SignatureAlgorithm != tt.want {
				t.Errorf("signature algorithm = %v, want %v", c.Cert.SignatureAlgorithm, tt.want)
			}
		})
	}
}

func TestIssueExplicitMatchingIssuer(t *testing.T) {
	key, _ := testKeys(t)
	// Same name, different spacing: must be accepted because both
	// encode identically.
	c, err := New(&stubProvider{key: key}).Issue(Config{
		Subject: referenceSubject,
		Issuer:  "E=,CN=TestIssuer,O=,OU=,L=,ST=,C=DE",
	})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if !bytes.Equal(c.Cert.RawIssuer, c.Cert.RawSubject) {
		t.Error("issuer and subject encodings differ")
	}
}

func TestIssueDefaultProvider(t *testing.T) {
	c, err := Issue(Config{Subject: "CN=direct", KeySize: 2048})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if got := c.Cert.PublicKeyAlgorithm; got != x509.RSA {
		t.Errorf("public key algorithm = %v, want RSA", got)
	}
	pub, ok := c.Cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		t.Fatalf("certificate public key is %T, want *rsa.PublicKey", c.Cert.PublicKey)
	}
	if pub.N.BitLen() != 2048 {
		t.Errorf("key size = %d, want 2048", pub.N.BitLen())
	}
}

func TestIssueConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing subject", cfg: Config{}},
		{name: "malformed subject", cfg: Config{Subject: "not a dn"}},
		{name: "malformed issuer", cfg: Config{Subject: "CN=a", Issuer: "also not a dn"}},
		{name: "issuer differs from subject", cfg: Config{Subject: "CN=a", Issuer: "CN=b"}},
		{name: "unknown key type", cfg: Config{Subject: "CN=a", KeyType: "dsa"}},
		{name: "unknown key size", cfg: Config{Subject: "CN=a", KeySize: 1024}},
		{name: "unknown signature algorithm", cfg: Config{Subject: "CN=a", SignatureAlgorithm: "md5"}},
		{name: "negative validity", cfg: Config{Subject: "CN=a", Validity: -time.Hour}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Issue(tt.cfg)
			if err == nil {
				t.Fatal("Issue succeeded, expected config error")
			}
			if got := StepOf(err); got != StepConfig {
				t.Errorf("StepOf(err) = %q, want %q (err: %v)", got, StepConfig, err)
			}
		})
	}
}

func TestIssueProviderFailurePropagation(t *testing.T) {
	key, _ := testKeys(t)
	cause := errors.New("provider broke")

	tests := []struct {
		name     string
		provider *stubProvider
		want     Step
	}{
		{name: "key generation", provider: &stubProvider{keyErr: cause}, want: StepKeyGeneration},
		{name: "serial randomness", provider: &stubProvider{key: key, rand: errReader{err: cause}}, want: StepSerial},
		{name: "signing", provider: &stubProvider{key: key, signErr: cause}, want: StepSigning},
		{name: "parsing", provider: &stubProvider{key: key, parseErr: cause}, want: StepBuild},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.provider).Issue(Config{Subject: "CN=failure"})
			if err == nil {
				t.Fatal("Issue succeeded, expected provider failure")
			}
			if got := StepOf(err); got != tt.want {
				t.Errorf("StepOf(err) = %q, want %q", got, tt.want)
			}
			if !errors.Is(err, cause) {
				t.Errorf("error %v does not wrap the provider cause", err)
			}
		})
	}
}

func TestCheckWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cert := &x509.Certificate{
		NotBefore: now.Add(-time.Hour),
		NotAfter:  now.Add(time.Hour),
	}

	if err := checkWindow(cert, now); err != nil {
		t.Errorf("in-window check failed: %v", err)
	}

	err := checkWindow(cert, now.Add(-2*time.Hour))
	if StepOf(err) != StepNotYetValid {
		t.Errorf("before window: StepOf(err) = %q, want %q", StepOf(err), StepNotYetValid)
	}
	if !IsValidityError(err) {
		t.Error("not-yet-valid error not classified as validity error")
	}

	err = checkWindow(cert, now.Add(2*time.Hour))
	if StepOf(err) != StepExpired {
		t.Errorf("after window: StepOf(err) = %q, want %q", StepOf(err), StepExpired)
	}
	if !IsValidityError(err) {
		t.Error("expired error not classified as validity error")
	}

	if err := checkWindow(cert, cert.NotBefore); err != nil {
		t.Errorf("boundary notBefore rejected: %v", err)
	}
	if err := checkWindow(cert, cert.NotAfter); err != nil {
		t.Errorf("boundary notAfter rejected: %v", err)
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	key, otherKey := testKeys(t)
	c, err := New(&stubProvider{key: key}).Issue(Config{Subject: "CN=tamper"})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	tampered := *c.Cert
	tampered.RawTBSCertificate = bytes.Clone(c.Cert.RawTBSCertificate)
	tampered.RawTBSCertificate[len(tampered.RawTBSCertificate)-1] ^= 0xff

	err = verify(&tampered, key.Public(), time.Now())
	if StepOf(err) != StepVerification {
		t.Errorf("tampered cert: StepOf(err) = %q, want %q", StepOf(err), StepVerification)
	}

	err = verify(c.Cert, otherKey.Public(), time.Now())
	if StepOf(err) != StepVerification {
		t.Errorf("foreign key: StepOf(err) = %q, want %q", StepOf(err), StepVerification)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := newError(StepSigning, "failed to sign: %w", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is does not reach the wrapped cause")
	}
	var typed *Error
	if !errors.As(err, &typed) {
		t.Fatal("errors.As does not recover *Error")
	}
	if typed.Step != StepSigning {
		t.Errorf("Step = %q, want %q", typed.Step, StepSigning)
	}
	if StepOf(errors.New("plain")) != "" {
		t.Error("StepOf of a plain error should be empty")
	}
}
