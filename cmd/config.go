package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"selfcert/internal/config"
	"selfcert/internal/utils"
)

var configExampleFile string

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `The config command shows where the effective configuration comes
from and what it contains: the loaded profile file (if any), the
active profile, and the merged values that an issue run would use.

Subcommands generate an example profile file and shell completion
scripts.

Examples:
  selfcert config
  selfcert --config selfcert.cnf --profile server config
  selfcert config example --file selfcert.cnf`,
	RunE: runConfig,
}

var configExampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Write an example profile configuration file",
	Long: `Writes a commented example selfcert.cnf with Default, server and
bundle profiles demonstrating full subject strings, field-wise
subject blocks and ${ENV_VAR} expansion.`,
	RunE: runConfigExample,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configExampleCmd)

	configExampleCmd.Flags().StringVar(&configExampleFile, "file", "selfcert.cnf", "Path of the example file to write")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		fmt.Printf("Config file:  %s\n", cfgFile)
	} else {
		fmt.Println("Config file:  (none, using environment and defaults)")
	}

	base := GetCurrentProfile()
	if base == nil {
		base = config.FromViper()
	} else {
		fmt.Printf("Profile:      %s\n", base.Name)
		if profileConfig != nil {
			fmt.Printf("Profiles:     %v\n", profileConfig.ListProfiles())
		}
	}

	effective := config.MergeProfileWithFlags(base, nil)
	fmt.Println()
	fmt.Println("Effective values:")
	fmt.Printf("  subject:              %s\n", effective.SubjectDN())
	if effective.Issuer != "" {
		fmt.Printf("  issuer:               %s\n", effective.Issuer)
	}
	fmt.Printf("  key-type:             %s\n", effective.KeyType)
	fmt.Printf("  key-size:             %d\n", effective.KeySize)
	fmt.Printf("  signature-algorithm:  %s\n", effective.SigAlg)
	fmt.Printf("  validity:             %s\n", effective.Validity)
	fmt.Printf("  format:               %s\n", effective.Format)
	if effective.File != "" {
		fmt.Printf("  file:                 %s\n", effective.File)
	}
	if effective.KeyFile != "" {
		fmt.Printf("  key-file:             %s\n", effective.KeyFile)
	}
	if effective.Password != "" {
		fmt.Printf("  password:             %s\n", maskSecret(effective.Password))
	}
	return nil
}

func runConfigExample(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configExampleFile); err == nil {
		overwrite := false
		if utils.IsInteractive() {
			// A failed prompt (closed stdin) counts as a refusal
			overwrite, _ = utils.PromptConfirm(fmt.Sprintf("%s already exists. Overwrite?", configExampleFile), false)
		}
		if !overwrite {
			return fmt.Errorf("%s already exists, not overwriting", configExampleFile)
		}
	}

	if err := config.CreateExampleConfig(configExampleFile); err != nil {
		return utils.NewFileWriteError("example config", err)
	}

	fmt.Printf("Example configuration written to: %s\n", configExampleFile)
	fmt.Println()
	fmt.Println("Edit the profiles, then issue with:")
	fmt.Printf("  selfcert --config %s issue\n", configExampleFile)
	fmt.Printf("  selfcert --config %s --profile server issue\n", configExampleFile)
	return nil
}

func maskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
