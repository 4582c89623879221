package utils

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// PromptConfirm prompts the user for a yes/no confirmation
func PromptConfirm(prompt string, defaultValue bool) (bool, error) {
	reader := bufio.NewReader(os.Stdin)

	defaultStr := "y/N"
	if defaultValue {
		defaultStr = "Y/n"
	}
	fmt.Fprintf(os.Stderr, "%s (%s): ", prompt, defaultStr)

	input, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}

	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return defaultValue, nil
	}
	return input == "y" || input == "yes", nil
}

// PromptPassword prompts for a password. Input is read in the clear;
// hiding it would need a terminal handling dependency.
func PromptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(password), nil
}

// IsInteractive checks if the current session is interactive (has a TTY)
func IsInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// DisplayError formats and displays an error message to stderr
func DisplayError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}

// DisplayWarning formats and displays a warning message to stderr
func DisplayWarning(message string) {
	fmt.Fprintf(os.Stderr, "Warning: %s\n", message)
}

// DisplayInfo formats and displays an informational message to stderr
func DisplayInfo(message string) {
	fmt.Fprintf(os.Stderr, "Info: %s\n", message)
}
