package config

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Profile represents a configuration profile
type Profile struct {
	Name     string
	Subject  string
	Issuer   string
	Format   string
	File     string
	KeyFile  string
	Password string
	KeySize  int
	KeyType  string
	SigAlg   string
	Validity string
	NoKeyOut bool
	Verbose  bool

	// Subject building blocks, used when the subject is configured
	// field by field instead of as one DN string
	SubjectEmail              string
	SubjectCommonName         string
	SubjectOrganization       string
	SubjectOrganizationalUnit string
	SubjectLocality           string
	SubjectProvince           string
	SubjectCountry            string
}

// SubjectDN returns the subject distinguished name configured on the
// profile: the full subject string when given, otherwise a DN
// composed from the individual fields in E, CN, O, OU, L, ST, C
// order.
func (p *Profile) SubjectDN() string {
	if p.Subject != "" {
		return p.Subject
	}

	var parts []string
	add := func(attr, value string) {
		if value != "" {
			parts = append(parts, attr+"="+value)
		}
	}
	add("E", p.SubjectEmail)
	add("CN", p.SubjectCommonName)
	add("O", p.SubjectOrganization)
	add("OU", p.SubjectOrganizationalUnit)
	add("L", p.SubjectLocality)
	add("ST", p.SubjectProvince)
	add("C", p.SubjectCountry)
	return strings.Join(parts, ", ")
}

// ProfileConfig manages multiple profiles
type ProfileConfig struct {
	Profiles map[string]*Profile
	Default  *Profile
}

// newProfile creates a profile with the standard defaults applied
func newProfile(name string) *Profile {
	return &Profile{
		Name:     name,
		Format:   "base64",
		KeySize:  4096,
		KeyType:  "rsa",
		SigAlg:   "sha256",
		Validity: "365",
	}
}

// LoadConfig loads profiles from an INI-style configuration file
func LoadConfig(filename string) (*ProfileConfig, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", filename, err)
	}
	defer file.Close()

	config := &ProfileConfig{
		Profiles: make(map[string]*Profile),
	}

	scanner := bufio.NewScanner(file)
	var currentProfile *Profile
	var inSubjectSection bool
	var subjectContent strings.Builder

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments (but not inside a subject block)
		if !inSubjectSection && (line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";")) {
			continue
		}

		// Handle multi-line subject blocks
		if inSubjectSection {
			subjectContent.WriteString(line + "\n")
			if strings.Contains(line, "}") {
				parseSubjectContent(currentProfile, subjectContent.String())
				inSubjectSection = false
				subjectContent.Reset()
			}
			continue
		}

		// Section headers [ProfileName]
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section := strings.TrimSpace(line[1 : len(line)-1])
			currentProfile = newProfile(section)
			config.Profiles[section] = currentProfile

			if strings.EqualFold(section, "default") {
				config.Default = currentProfile
			}
			continue
		}

		if !strings.Contains(line, "=") {
			continue
		}

		// Keys before any section header land in an implicit Default
		if currentProfile == nil {
			currentProfile = newProfile("Default")
			config.Profiles["Default"] = currentProfile
			config.Default = currentProfile
		}

		parts := strings.SplitN(line, "=", 2)
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Strip inline comments
		if commentIndex := strings.Index(value, "#"); commentIndex != -1 {
			value = strings.TrimSpace(value[:commentIndex])
		}

		// Strip surrounding quotes
		if (strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"")) ||
			(strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'")) {
			value = value[1 : len(value)-1]
		}

		// Expand environment variables in ${VAR} format
		value = expandEnvVars(value)

		switch strings.ToLower(key) {
		case "subject":
			if strings.Contains(value, "{") {
				inSubjectSection = true
				subjectContent.WriteString(value + "\n")
				if strings.Contains(value, "}") {
					parseSubjectContent(currentProfile, value)
					inSubjectSection = false
					subjectContent.Reset()
				}
			} else {
				currentProfile.Subject = value
			}
		case "issuer":
			currentProfile.Issuer = value
		case "format":
			currentProfile.Format = value
		case "file", "out", "output":
			currentProfile.File = value
		case "key-file", "keyfile":
			currentProfile.KeyFile = value
		case "password", "p12-password", "p12-pass":
			currentProfile.Password = value
		case "key-size", "keysize":
			if size, err := strconv.Atoi(value); err == nil {
				currentProfile.KeySize = size
			}
		case "key-type", "keytype":
			currentProfile.KeyType = value
		case "signature-algorithm", "sig-alg", "algo":
			currentProfile.SigAlg = value
		case "validity":
			currentProfile.Validity = value
		case "no-key-output":
			currentProfile.NoKeyOut = strings.EqualFold(value, "true")
		case "verbose":
			currentProfile.Verbose = strings.EqualFold(value, "true")
		case "email", "e":
			currentProfile.SubjectEmail = value
		case "common-name", "cn":
			currentProfile.SubjectCommonName = value
		case "organization", "o":
			currentProfile.SubjectOrganization = value
		case "organizational-unit", "ou":
			currentProfile.SubjectOrganizationalUnit = value
		case "locality", "l":
			currentProfile.SubjectLocality = value
		case "province", "state", "st":
			currentProfile.SubjectProvince = value
		case "country", "c":
			currentProfile.SubjectCountry = value
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Ensure we have a default profile
	if config.Default == nil && len(config.Profiles) > 0 {
		for _, profile := range config.Profiles {
			config.Default = profile
			break
		}
	}

	return config, nil
}

// expandEnvVars expands environment variables in ${VAR} format
func expandEnvVars(value string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		if envValue := os.Getenv(varName); envValue != "" {
			return envValue
		}
		return match
	})
}

// setSubjectField sets a subject building block on the profile
func setSubjectField(profile *Profile, key, value string) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "email", "e", "email_address":
		profile.SubjectEmail = value
	case "cn", "common_name":
		profile.SubjectCommonName = value
	case "o", "organization":
		profile.SubjectOrganization = value
	case "ou", "organizational_unit":
		profile.SubjectOrganizationalUnit = value
	case "l", "locality":
		profile.SubjectLocality = value
	case "st", "state", "province":
		profile.SubjectProvince = value
	case "c", "country":
		profile.SubjectCountry = value
	}
}

// parseSubjectContent parses the multi-line subject block content
func parseSubjectContent(profile *Profile, content string) {
	content = strings.ReplaceAll(content, "{", "")
	content = strings.ReplaceAll(content, "}", "")

	var entries []string
	if strings.Contains(content, "\n") {
		entries = strings.Split(content, "\n")
	} else {
		entries = strings.Split(content, ",")
	}

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" || !strings.Contains(entry, "=") {
			continue
		}
		kv := strings.SplitN(entry, "=", 2)
		setSubjectField(profile, strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1]))
	}
}

// GetProfile returns a specific profile by name
func (pc *ProfileConfig) GetProfile(name string) *Profile {
	if name == "" && pc.Default != nil {
		return pc.Default
	}

	if profile, exists := pc.Profiles[name]; exists {
		return profile
	}

	// Case-insensitive lookup
	for profileName, profile := range pc.Profiles {
		if strings.EqualFold(profileName, name) {
			return profile
		}
	}

	return nil
}

// ListProfiles returns all available profile names
func (pc *ProfileConfig) ListProfiles() []string {
	profiles := make([]string, 0, len(pc.Profiles))
	for name := range pc.Profiles {
		profiles = append(profiles, name)
	}
	return profiles
}

// MergeProfileWithFlags merges environment variables, profile values
// and command-line flags into one effective profile, lowest to
// highest priority. Flag values must only be passed for flags the
// user actually set.
func MergeProfileWithFlags(profile, flags *Profile) *Profile {
	merged := *newProfile("effective")

	// Environment variables as base (lowest priority)
	applyEnv(&merged)

	// Configuration file values (medium priority)
	if profile != nil {
		overlay(&merged, profile)
	}

	// Command-line flags (highest priority)
	if flags != nil {
		overlay(&merged, flags)
	}

	return &merged
}

func applyEnv(p *Profile) {
	if v := os.Getenv("SELFCERT_SUBJECT"); v != "" {
		p.Subject = v
	}
	if v := os.Getenv("SELFCERT_ISSUER"); v != "" {
		p.Issuer = v
	}
	if v := os.Getenv("SELFCERT_FORMAT"); v != "" {
		p.Format = v
	}
	if v := os.Getenv("SELFCERT_FILE"); v != "" {
		p.File = v
	}
	if v := os.Getenv("SELFCERT_PASSWORD"); v != "" {
		p.Password = v
	}
	if v := os.Getenv("SELFCERT_KEY_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			p.KeySize = size
		}
	}
	if v := os.Getenv("SELFCERT_KEY_TYPE"); v != "" {
		p.KeyType = v
	}
	if v := os.Getenv("SELFCERT_VALIDITY"); v != "" {
		p.Validity = v
	}
}

func overlay(dst, src *Profile) {
	if src.Subject != "" {
		dst.Subject = src.Subject
	}
	if src.Issuer != "" {
		dst.Issuer = src.Issuer
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.File != "" {
		dst.File = src.File
	}
	if src.KeyFile != "" {
		dst.KeyFile = src.KeyFile
	}
	if src.Password != "" {
		dst.Password = src.Password
	}
	if src.KeySize > 0 {
		dst.KeySize = src.KeySize
	}
	if src.KeyType != "" {
		dst.KeyType = src.KeyType
	}
	if src.SigAlg != "" {
		dst.SigAlg = src.SigAlg
	}
	if src.Validity != "" {
		dst.Validity = src.Validity
	}
	if src.NoKeyOut {
		dst.NoKeyOut = true
	}
	if src.Verbose {
		dst.Verbose = true
	}
	if src.SubjectEmail != "" {
		dst.SubjectEmail = src.SubjectEmail
	}
	if src.SubjectCommonName != "" {
		dst.SubjectCommonName = src.SubjectCommonName
	}
	if src.SubjectOrganization != "" {
		dst.SubjectOrganization = src.SubjectOrganization
	}
	if src.SubjectOrganizationalUnit != "" {
		dst.SubjectOrganizationalUnit = src.SubjectOrganizationalUnit
	}
	if src.SubjectLocality != "" {
		dst.SubjectLocality = src.SubjectLocality
	}
	if src.SubjectProvince != "" {
		dst.SubjectProvince = src.SubjectProvince
	}
	if src.SubjectCountry != "" {
		dst.SubjectCountry = src.SubjectCountry
	}
}

// CreateExampleConfig creates an example profile configuration file
func CreateExampleConfig(filename string) error {
	content := `# selfcert Profile Configuration File
# This file supports multiple profiles for different certificate
# shapes. Use: selfcert --config selfcert.cnf issue
#          or: selfcert --config selfcert.cnf --profile server issue

[Default]
# Default profile used when no --profile is specified
subject = E=, CN=TestIssuer, O=, OU=, L=, ST=, C=DE
key-size = 4096
key-type = rsa
signature-algorithm = sha256
validity = 365  # Days (can use 365, 30d, 6m, 1y, etc.)
format = base64

[server]
# Building the subject from individual fields
subject = {
    common_name = server.example.com
    email = admin@example.com
    country = DE
    state = Berlin
    locality = Berlin
    organization = Example GmbH
    organizational_unit = Operations
}
key-size = 2048
validity = 90  # Short lived server certificate
format = pem
file = server.pem

[bundle]
# PKCS#12 bundle with the password taken from the environment
common-name = bundle.example.com
organization = Example GmbH
format = p12
file = bundle.p12
password = ${SELFCERT_PASSWORD}
validity = 1y
`
	return os.WriteFile(filename, []byte(content), 0600)
}
