package utils

import "fmt"

// Standardized error messages for consistent user experience across commands

// Subject and parameter validation errors
func NewSubjectRequiredError() error {
	return fmt.Errorf("subject is required (use --cn or --subject, a profile, or the SELFCERT_SUBJECT environment variable)")
}

func NewParameterValidationError(param, reason string) error {
	return fmt.Errorf("invalid parameter --%s: %s", param, reason)
}

// Format validation errors
func NewUnsupportedFormatError(format string, supported []string) error {
	return fmt.Errorf("unsupported output format: %s (supported: %v)", format, supported)
}

func NewUnsupportedKeyTypeError(keyType string, supported []string) error {
	return fmt.Errorf("unsupported key type: %s (supported: %v)", keyType, supported)
}

func NewUnsupportedKeySizeError(keySize int, supported []int) error {
	return fmt.Errorf("unsupported key size: %d (supported: %v)", keySize, supported)
}

// File I/O errors
func NewFileReadError(fileType string, err error) error {
	return fmt.Errorf("failed to read %s file: %w", fileType, err)
}

func NewFileWriteError(fileType string, err error) error {
	return fmt.Errorf("failed to write %s file: %w", fileType, err)
}

// Configuration errors
func NewConfigurationError(message string, err error) error {
	if err != nil {
		return fmt.Errorf("configuration error: %s: %w", message, err)
	}
	return fmt.Errorf("configuration error: %s", message)
}

// Issuance errors
func NewIssuanceError(err error) error {
	return fmt.Errorf("failed to issue certificate: %w", err)
}

// Inspection errors
func NewCertificateParseError(err error) error {
	return fmt.Errorf("failed to parse certificate: %w", err)
}

// Password handling errors
func NewPasswordRequiredError(format string) error {
	return fmt.Errorf("%s output requires a password (use --password or the SELFCERT_PASSWORD environment variable)", format)
}
