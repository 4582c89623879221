package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"selfcert/internal/utils"
	"selfcert/internal/validity"
)

// InitDefaults sets up the default configuration values and binds
// the SELFCERT_* environment variables
func InitDefaults() {
	viper.SetDefault("subject", "")
	viper.SetDefault("issuer", "")
	viper.SetDefault("format", "base64")
	viper.SetDefault("file", "")
	viper.SetDefault("key_file", "")
	viper.SetDefault("password", "")
	viper.SetDefault("key_size", 4096)
	viper.SetDefault("key_type", "rsa")
	viper.SetDefault("signature_algorithm", "sha256")
	viper.SetDefault("validity", "365")
	viper.SetDefault("no_key_output", false)
	viper.SetDefault("verbose", false)

	viper.SetEnvPrefix("SELFCERT")
	viper.AutomaticEnv()

	// Bind aliases that do not follow from the prefix mechanically
	_ = viper.BindEnv("password", "SELFCERT_PASSWORD", "SELFCERT_P12_PASSWORD")
	_ = viper.BindEnv("signature_algorithm", "SELFCERT_SIGNATURE_ALGORITHM", "SELFCERT_SIG_ALG")
}

// FromViper builds a profile from the active viper configuration.
// This backs the YAML configuration file and plain environment
// variable usage when no profile file is loaded.
func FromViper() *Profile {
	return &Profile{
		Name:     "default",
		Subject:  viper.GetString("subject"),
		Issuer:   viper.GetString("issuer"),
		Format:   viper.GetString("format"),
		File:     viper.GetString("file"),
		KeyFile:  viper.GetString("key_file"),
		Password: viper.GetString("password"),
		KeySize:  viper.GetInt("key_size"),
		KeyType:  viper.GetString("key_type"),
		SigAlg:   viper.GetString("signature_algorithm"),
		Validity: viper.GetString("validity"),
		NoKeyOut: viper.GetBool("no_key_output"),
		Verbose:  viper.GetBool("verbose"),
	}
}

var (
	supportedFormats  = []string{"base64", "pem", "der", "p12", "pfx"}
	supportedKeyTypes = []string{"rsa"}
	supportedKeySizes = []int{2048, 3072, 4096}
	supportedSigAlgs  = []string{"sha256", "sha384", "sha512"}
)

// Validate checks the effective profile for unsupported parameter
// values. The subject is checked separately by the caller so that a
// missing subject produces its own guidance.
func Validate(p *Profile) error {
	if p.KeyType != "" && !strings.EqualFold(p.KeyType, "rsa") {
		return utils.NewUnsupportedKeyTypeError(p.KeyType, supportedKeyTypes)
	}
	if p.KeySize != 0 && !containsInt(supportedKeySizes, p.KeySize) {
		return utils.NewUnsupportedKeySizeError(p.KeySize, supportedKeySizes)
	}
	if p.SigAlg != "" && !containsString(supportedSigAlgs, strings.ToLower(p.SigAlg)) {
		return utils.NewParameterValidationError("sig-alg",
			fmt.Sprintf("unsupported algorithm %q (supported: %v)", p.SigAlg, supportedSigAlgs))
	}
	if p.Format != "" && !containsString(supportedFormats, strings.ToLower(p.Format)) {
		return utils.NewUnsupportedFormatError(p.Format, supportedFormats)
	}
	if p.Validity != "" {
		if _, err := validity.Parse(p.Validity); err != nil {
			return utils.NewParameterValidationError("validity", err.Error())
		}
	}
	return nil
}

func containsString(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

func containsInt(values []int, v int) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}
