package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-config.cnf")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	testConfig := `# Test configuration
[Default]
subject = E=, CN=TestIssuer, O=, OU=, L=, ST=, C=DE
key-size = 2048
signature-algorithm = sha384
validity = 90
format = pem

[bundle]
subject = CN=bundle.example.com
format = p12
file = bundle.p12
password = secret
`

	config, err := LoadConfig(writeTestConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Default == nil {
		t.Fatal("Expected Default profile to be set")
	}

	defaultProfile := config.GetProfile("")
	if defaultProfile == nil {
		t.Fatal("Expected to get default profile")
	}

	if defaultProfile.Subject != "E=, CN=TestIssuer, O=, OU=, L=, ST=, C=DE" {
		t.Errorf("Unexpected default subject: %q", defaultProfile.Subject)
	}
	if defaultProfile.KeySize != 2048 {
		t.Errorf("Expected key size 2048, got %d", defaultProfile.KeySize)
	}
	if defaultProfile.SigAlg != "sha384" {
		t.Errorf("Expected signature algorithm 'sha384', got %q", defaultProfile.SigAlg)
	}
	if defaultProfile.Validity != "90" {
		t.Errorf("Expected validity '90', got %q", defaultProfile.Validity)
	}
	if defaultProfile.Format != "pem" {
		t.Errorf("Expected format 'pem', got %q", defaultProfile.Format)
	}

	// Values not present in the file keep the standard defaults
	if defaultProfile.KeyType != "rsa" {
		t.Errorf("Expected default key type 'rsa', got %q", defaultProfile.KeyType)
	}

	bundleProfile := config.GetProfile("bundle")
	if bundleProfile == nil {
		t.Fatal("Expected to get bundle profile")
	}
	if bundleProfile.Format != "p12" {
		t.Errorf("Expected bundle format 'p12', got %q", bundleProfile.Format)
	}
	if bundleProfile.File != "bundle.p12" {
		t.Errorf("Expected bundle file 'bundle.p12', got %q", bundleProfile.File)
	}
	if bundleProfile.Password != "secret" {
		t.Errorf("Expected bundle password 'secret', got %q", bundleProfile.Password)
	}
	if bundleProfile.KeySize != 4096 {
		t.Errorf("Expected bundle key size default 4096, got %d", bundleProfile.KeySize)
	}

	profiles := config.ListProfiles()
	if len(profiles) != 2 {
		t.Errorf("Expected 2 profiles, got %d", len(profiles))
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.cnf"))
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
	if !strings.Contains(err.Error(), "failed to open config file") {
		t.Errorf("Unexpected error message: %v", err)
	}
}

func TestLoadConfigImplicitDefault(t *testing.T) {
	testConfig := `subject = CN=Implicit
validity = 30d
`

	config, err := LoadConfig(writeTestConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Default == nil {
		t.Fatal("Expected keys before any section to create a Default profile")
	}
	if config.Default.Subject != "CN=Implicit" {
		t.Errorf("Expected subject 'CN=Implicit', got %q", config.Default.Subject)
	}
	if config.Default.Validity != "30d" {
		t.Errorf("Expected validity '30d', got %q", config.Default.Validity)
	}
}

func TestLoadConfigSubjectBlock(t *testing.T) {
	testConfig := `[server]
subject = {
    common_name = server.example.com
    email = admin@example.com
    country = DE
    state = Berlin
    organization = Example GmbH
}

[inline]
subject = { cn = inline.example.com, o = Inline Org, c = US }
`

	config, err := LoadConfig(writeTestConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	server := config.GetProfile("server")
	if server == nil {
		t.Fatal("Expected to get server profile")
	}
	if server.SubjectCommonName != "server.example.com" {
		t.Errorf("Expected common name 'server.example.com', got %q", server.SubjectCommonName)
	}
	if server.SubjectEmail != "admin@example.com" {
		t.Errorf("Expected email 'admin@example.com', got %q", server.SubjectEmail)
	}
	if server.SubjectCountry != "DE" {
		t.Errorf("Expected country 'DE', got %q", server.SubjectCountry)
	}
	if server.SubjectProvince != "Berlin" {
		t.Errorf("Expected province 'Berlin', got %q", server.SubjectProvince)
	}

	wantDN := "E=admin@example.com, CN=server.example.com, O=Example GmbH, ST=Berlin, C=DE"
	if got := server.SubjectDN(); got != wantDN {
		t.Errorf("Expected subject DN %q, got %q", wantDN, got)
	}

	inline := config.GetProfile("inline")
	if inline == nil {
		t.Fatal("Expected to get inline profile")
	}
	if inline.SubjectCommonName != "inline.example.com" {
		t.Errorf("Expected common name 'inline.example.com', got %q", inline.SubjectCommonName)
	}
	if inline.SubjectOrganization != "Inline Org" {
		t.Errorf("Expected organization 'Inline Org', got %q", inline.SubjectOrganization)
	}
	if inline.SubjectCountry != "US" {
		t.Errorf("Expected country 'US', got %q", inline.SubjectCountry)
	}
}

func TestLoadConfigSubjectFields(t *testing.T) {
	testConfig := `[fields]
cn = fields.example.com
email = ops@example.com
organization = Example GmbH
ou = Operations
locality = Berlin
state = Berlin
country = DE
`

	config, err := LoadConfig(writeTestConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	profile := config.GetProfile("fields")
	if profile == nil {
		t.Fatal("Expected to get fields profile")
	}

	wantDN := "E=ops@example.com, CN=fields.example.com, O=Example GmbH, OU=Operations, L=Berlin, ST=Berlin, C=DE"
	if got := profile.SubjectDN(); got != wantDN {
		t.Errorf("Expected subject DN %q, got %q", wantDN, got)
	}
}

func TestEnvironmentVariableExpansion(t *testing.T) {
	os.Setenv("TEST_BUNDLE_PASSWORD", "expanded-secret")
	defer os.Unsetenv("TEST_BUNDLE_PASSWORD")

	testConfig := `[Default]
subject = CN=Env
password = ${TEST_BUNDLE_PASSWORD}
file = ${UNSET_TEST_VARIABLE}
`

	config, err := LoadConfig(writeTestConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	profile := config.GetProfile("")
	if profile.Password != "expanded-secret" {
		t.Errorf("Expected expanded password 'expanded-secret', got %q", profile.Password)
	}

	// Unset variables are left as-is so the mistake is visible
	if profile.File != "${UNSET_TEST_VARIABLE}" {
		t.Errorf("Expected unset variable to stay literal, got %q", profile.File)
	}
}

func TestLoadConfigQuotesAndComments(t *testing.T) {
	testConfig := `[Default]
subject = "CN=Quoted, O=Example"  # trailing comment
format = 'pem'
; full-line comment
validity = 1y
`

	config, err := LoadConfig(writeTestConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	profile := config.GetProfile("")
	if profile.Subject != "CN=Quoted, O=Example" {
		t.Errorf("Expected quotes stripped, got %q", profile.Subject)
	}
	if profile.Format != "pem" {
		t.Errorf("Expected format 'pem', got %q", profile.Format)
	}
	if profile.Validity != "1y" {
		t.Errorf("Expected validity '1y', got %q", profile.Validity)
	}
}

func TestGetProfileCaseInsensitive(t *testing.T) {
	testConfig := `[Server]
subject = CN=server
`

	config, err := LoadConfig(writeTestConfig(t, testConfig))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	for _, name := range []string{"Server", "server", "SERVER"} {
		if profile := config.GetProfile(name); profile == nil {
			t.Errorf("Expected to find profile via name %q", name)
		}
	}

	if profile := config.GetProfile("missing"); profile != nil {
		t.Errorf("Expected nil for unknown profile, got %q", profile.Name)
	}
}

func TestSubjectDNFullStringWins(t *testing.T) {
	profile := &Profile{
		Subject:           "CN=Full",
		SubjectCommonName: "ignored.example.com",
	}
	if got := profile.SubjectDN(); got != "CN=Full" {
		t.Errorf("Expected full subject string to win, got %q", got)
	}

	empty := &Profile{}
	if got := empty.SubjectDN(); got != "" {
		t.Errorf("Expected empty DN for empty profile, got %q", got)
	}
}

func TestMergeProfileWithFlags(t *testing.T) {
	os.Setenv("SELFCERT_SUBJECT", "CN=FromEnv")
	os.Setenv("SELFCERT_KEY_SIZE", "2048")
	defer os.Unsetenv("SELFCERT_SUBJECT")
	defer os.Unsetenv("SELFCERT_KEY_SIZE")

	profile := &Profile{
		Subject:  "CN=FromProfile",
		Format:   "pem",
		Validity: "90",
	}
	flags := &Profile{
		Format: "p12",
	}

	merged := MergeProfileWithFlags(profile, flags)

	// Profile beats environment
	if merged.Subject != "CN=FromProfile" {
		t.Errorf("Expected profile subject to win over environment, got %q", merged.Subject)
	}
	// Flags beat profile
	if merged.Format != "p12" {
		t.Errorf("Expected flag format to win, got %q", merged.Format)
	}
	// Environment fills in what nothing else set
	if merged.KeySize != 2048 {
		t.Errorf("Expected key size 2048 from environment, got %d", merged.KeySize)
	}
	// Profile-only values survive
	if merged.Validity != "90" {
		t.Errorf("Expected validity '90' from profile, got %q", merged.Validity)
	}
	// Untouched values keep the standard defaults
	if merged.KeyType != "rsa" {
		t.Errorf("Expected default key type 'rsa', got %q", merged.KeyType)
	}
}

func TestMergeProfileWithFlagsNilProfile(t *testing.T) {
	merged := MergeProfileWithFlags(nil, &Profile{Subject: "CN=FlagsOnly"})
	if merged.Subject != "CN=FlagsOnly" {
		t.Errorf("Expected subject 'CN=FlagsOnly', got %q", merged.Subject)
	}
	if merged.KeySize != 4096 {
		t.Errorf("Expected default key size 4096, got %d", merged.KeySize)
	}
	if merged.Format != "base64" {
		t.Errorf("Expected default format 'base64', got %q", merged.Format)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr string
	}{
		{
			name:    "valid defaults",
			profile: *newProfile("test"),
		},
		{
			name:    "valid p12",
			profile: Profile{Format: "P12", KeyType: "RSA", KeySize: 3072, SigAlg: "SHA512", Validity: "1y6m"},
		},
		{
			name:    "unsupported key type",
			profile: Profile{KeyType: "ecdsa"},
			wantErr: "unsupported key type",
		},
		{
			name:    "unsupported key size",
			profile: Profile{KeySize: 1024},
			wantErr: "unsupported key size",
		},
		{
			name:    "unsupported signature algorithm",
			profile: Profile{SigAlg: "md5"},
			wantErr: "--sig-alg",
		},
		{
			name:    "unsupported format",
			profile: Profile{Format: "jks"},
			wantErr: "unsupported output format",
		},
		{
			name:    "invalid validity",
			profile: Profile{Validity: "soon"},
			wantErr: "--validity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.profile)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateExampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selfcert.cnf")
	if err := CreateExampleConfig(path); err != nil {
		t.Fatalf("Failed to create example config: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat example config: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	// The example must load cleanly and validate
	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load example config: %v", err)
	}

	for _, name := range []string{"Default", "server", "bundle"} {
		profile := config.GetProfile(name)
		if profile == nil {
			t.Fatalf("Expected example profile %q", name)
		}
		if err := Validate(profile); err != nil {
			t.Errorf("Example profile %q does not validate: %v", name, err)
		}
		if profile.SubjectDN() == "" {
			t.Errorf("Example profile %q has no subject", name)
		}
	}

	server := config.GetProfile("server")
	if server.SubjectCommonName != "server.example.com" {
		t.Errorf("Expected server common name from subject block, got %q", server.SubjectCommonName)
	}
	if server.KeySize != 2048 {
		t.Errorf("Expected server key size 2048, got %d", server.KeySize)
	}
}
