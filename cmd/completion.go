package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var completionShell string

var completionCmd = &cobra.Command{
	Use:   "completion",
	Short: "Generate shell completion scripts",
	Long: `Examples:
  selfcert config completion --shell bash > selfcert-completion.bash
  selfcert config completion --shell zsh > _selfcert
  selfcert config completion --shell fish > selfcert.fish

Supported shells: bash, zsh, fish, powershell`,
}

func init() {
	configCmd.AddCommand(completionCmd)

	completionCmd.Flags().StringVar(&completionShell, "shell", "", "Shell type (bash, zsh, fish, powershell)")

	// Show help when no shell is selected
	completionCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if completionShell == "" {
			return cmd.Help()
		}
		return runCompletion(cmd, args)
	}
}

// registerFlagCompletions wires the value suggestions for all command
// flags. Called from Execute once every command has added its flags.
func registerFlagCompletions() {
	setupIssueCompletions()
	setupInspectCompletions()
	setupRootCompletions()
}

func runCompletion(cmd *cobra.Command, args []string) error {
	switch completionShell {
	case "bash":
		return rootCmd.GenBashCompletionV2(os.Stdout, true)
	case "zsh":
		return rootCmd.GenZshCompletion(os.Stdout)
	case "fish":
		return rootCmd.GenFishCompletion(os.Stdout, true)
	case "powershell":
		return rootCmd.GenPowerShellCompletion(os.Stdout)
	default:
		return fmt.Errorf("unsupported shell: %s (supported: bash, zsh, fish, powershell)", completionShell)
	}
}

// setupIssueCompletions registers custom completion functions for issue command flags
func setupIssueCompletions() {
	formatCompletion := func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"base64", "pem", "der", "p12"}, cobra.ShellCompDirectiveNoFileComp
	}

	keyTypeCompletion := func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"rsa"}, cobra.ShellCompDirectiveNoFileComp
	}

	keySizeCompletion := func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"2048", "3072", "4096"}, cobra.ShellCompDirectiveNoFileComp
	}

	sigAlgCompletion := func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"sha256", "sha384", "sha512"}, cobra.ShellCompDirectiveNoFileComp
	}

	validityCompletion := func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		suggestions := []string{
			"30d\tThirty days",
			"90d\tNinety days",
			"6m\tSix months",
			"365\tOne year in days",
			"1y\tOne year",
			"1y6m\tOne year and six months",
			"2y\tTwo years",
		}
		return suggestions, cobra.ShellCompDirectiveNoFileComp
	}

	_ = issueCmd.RegisterFlagCompletionFunc("format", formatCompletion)
	_ = issueCmd.RegisterFlagCompletionFunc("key-type", keyTypeCompletion)
	_ = issueCmd.RegisterFlagCompletionFunc("key-size", keySizeCompletion)
	_ = issueCmd.RegisterFlagCompletionFunc("sig-alg", sigAlgCompletion)
	_ = issueCmd.RegisterFlagCompletionFunc("validity", validityCompletion)
}

// setupInspectCompletions registers custom completion functions for inspect command flags
func setupInspectCompletions() {
	formatCompletion := func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	}

	_ = inspectCmd.RegisterFlagCompletionFunc("format", formatCompletion)
}

// setupRootCompletions registers completion for global flags
func setupRootCompletions() {
	configCompletion := func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"selfcert.cnf", ".selfcert.cnf"}, cobra.ShellCompDirectiveDefault
	}

	profileCompletion := func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if profileConfig != nil {
			return profileConfig.ListProfiles(), cobra.ShellCompDirectiveNoFileComp
		}
		return []string{"Default"}, cobra.ShellCompDirectiveNoFileComp
	}

	_ = rootCmd.RegisterFlagCompletionFunc("config", configCompletion)
	_ = rootCmd.RegisterFlagCompletionFunc("profile", profileCompletion)
}
