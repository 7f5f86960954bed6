package cmd

import (
	"github.com/spf13/cobra"
)

var (
	policyIdentity     string
	policyPattern      string
	policyCapabilities []string
)

var addPolicyCmd = &cobra.Command{
	Use:     "add-policy",
	GroupID: "policy",
	Short:   "Grant an identity capabilities over a path pattern",
	Long: `Add-policy requires an active session but no policy gate of its
own — the session itself is the authority for policy administration.`,
	RunE: runAddPolicy,
}

var removePolicyCmd = &cobra.Command{
	Use:     "remove-policy",
	GroupID: "policy",
	Short:   "Remove the rule exactly matching an identity and pattern",
	RunE:    runRemovePolicy,
}

func init() {
	rootCmd.AddCommand(addPolicyCmd)
	rootCmd.AddCommand(removePolicyCmd)

	for _, c := range []*cobra.Command{addPolicyCmd, removePolicyCmd} {
		c.Flags().StringVar(&policyIdentity, "identity", "", "identity the rule applies to")
		c.Flags().StringVar(&policyPattern, "pattern", "", "path pattern the rule matches")
	}
	addPolicyCmd.Flags().StringArrayVar(&policyCapabilities, "capability", nil, "capability to grant (repeatable): read, write, list, delete")
}

func runAddPolicy(cmd *cobra.Command, args []string) error {
	if err := newEngine().AddPolicy(policyIdentity, policyPattern, policyCapabilities); err != nil {
		return err
	}
	printSuccess("Granted %v on %q to %s", policyCapabilities, policyPattern, policyIdentity)
	return nil
}

func runRemovePolicy(cmd *cobra.Command, args []string) error {
	if err := newEngine().RemovePolicy(policyIdentity, policyPattern); err != nil {
		return err
	}
	printSuccess("Removed policy for %s on %q", policyIdentity, policyPattern)
	return nil
}
