package cmd

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"selfcert/internal/config"
)

var (
	cfgFile        string
	profileName    string
	verbose        bool
	profileConfig  *config.ProfileConfig
	currentProfile *config.Profile

	// Version information
	version   string
	gitCommit string
	buildTime string
	goVersion string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "selfcert",
	Short: "A CLI tool for issuing self-signed X.509 certificates",
	Long: `selfcert issues self-signed X.509 certificates entirely on the local
machine: it generates an RSA key pair, derives a UUID-based serial
number, signs the certificate with its own key and verifies the
result before printing it.

Subject names are taken literally. Attribute order and empty values
(e.g. "E=, CN=TestIssuer, O=, C=DE") are preserved in the issued
certificate exactly as given.`,
	Version: "", // Will be set dynamically
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	registerFlagCompletions()
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Disable the auto-generated completion command, completion lives
	// under "config completion"
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "profile config file (e.g., selfcert.cnf)")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "profile name from config file (default: Default)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	config.InitDefaults()

	// Auto-detect configuration file if not specified
	if cfgFile == "" {
		commonConfigFiles := []string{"selfcert.cnf", ".selfcert.cnf"}
		for _, filename := range commonConfigFiles {
			if _, err := os.Stat(filename); err == nil {
				cfgFile = filename
				if verbose {
					fmt.Fprintf(os.Stderr, "Auto-detected config file: %s\n", cfgFile)
				}
				break
			}
		}
	}

	// Load profile-based configuration if specified or auto-detected
	if cfgFile != "" {
		var err error
		profileConfig, err = config.LoadConfig(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading profile config: %v\n", err)
			os.Exit(1)
		}

		if profileName != "" {
			currentProfile = profileConfig.GetProfile(profileName)
			if currentProfile == nil {
				fmt.Fprintf(os.Stderr, "Profile '%s' not found in config file\n", profileName)
				fmt.Fprintf(os.Stderr, "Available profiles: %v\n", profileConfig.ListProfiles())
				os.Exit(1)
			}
		} else {
			currentProfile = profileConfig.GetProfile("")
			if currentProfile == nil {
				fmt.Fprintf(os.Stderr, "No default profile found in config file\n")
				os.Exit(1)
			}
		}

		if verbose {
			fmt.Fprintf(os.Stderr, "Using profile config: %s, profile: %s\n", cfgFile, currentProfile.Name)
		}
	} else {
		// Fall back to the YAML configuration in the home directory
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".selfcert")

		if err := viper.ReadInConfig(); err == nil && verbose {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

// GetCurrentProfile returns the currently active profile
func GetCurrentProfile() *config.Profile {
	return currentProfile
}

// SetVersion sets the version information for the application
func SetVersion(ver, commit, buildTimeArg, goVer string) {
	version = ver
	gitCommit = commit
	buildTime = buildTimeArg
	goVersion = goVer

	rootCmd.Version = version
	rootCmd.SetVersionTemplate(getVersionTemplate())
}

// getVersionTemplate returns a detailed version template
func getVersionTemplate() string {
	return fmt.Sprintf(`selfcert
Self-Signed Certificate Utility
  Version: %s
  Git Commit: %s
  Build Timestamp: %s
  Go Version: %s
  Platform: %s
`, version, gitCommit, convertToTimestamp(buildTime), goVersion, getPlatform())
}

// convertToTimestamp converts build time to a compact timestamp format
func convertToTimestamp(buildTime string) string {
	// Parse the build time format: 2025-06-11_04:44:50_UTC
	// Convert to: 20250611.044450
	if buildTime == "unknown" {
		return "unknown"
	}

	parts := strings.Split(buildTime, "_")
	if len(parts) >= 2 {
		datePart := strings.ReplaceAll(parts[0], "-", "")
		timePart := strings.ReplaceAll(parts[1], ":", "")
		return fmt.Sprintf("%s.%s", datePart, timePart)
	}

	return buildTime
}

// getPlatform returns the current platform information
func getPlatform() string {
	return fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
}
