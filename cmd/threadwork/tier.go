package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/threadwork-cc/threadwork/internal/formatter"
	"github.com/threadwork-cc/threadwork/internal/tier"
)

var tierInstructions bool

var tierCmd = &cobra.Command{
	Use:   "tier",
	Short: "Output tier (beginner, advanced, ninja)",
	Long: `Get or set the output tier that shapes correction prompts, warnings
and the style instructions injected into agent prompts.

Examples:
  threadwork tier get
  threadwork tier get --instructions
  threadwork tier set ninja`,
}

var tierGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the current tier",
	Args:  cobra.NoArgs,
	RunE:  runTierGet,
}

var tierSetCmd = &cobra.Command{
	Use:       "set <tier>",
	Short:     "Set the tier",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(tier.Beginner), string(tier.Advanced), string(tier.Ninja)},
	RunE:      runTierSet,
}

func init() {
	rootCmd.AddCommand(tierCmd)
	tierCmd.AddCommand(tierGetCmd, tierSetCmd)
	tierGetCmd.Flags().BoolVar(&tierInstructions, "instructions", false, "Also print the output-style instructions")
}

type tierOutput struct {
	Tier         tier.Tier `json:"tier" yaml:"tier"`
	Instructions string    `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}

func runTierGet(cmd *cobra.Command, args []string) error {
	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close() //nolint:errcheck // log close best-effort

	out := tierOutput{Tier: proj.Tier()}
	if tierInstructions {
		out.Instructions = tier.Instructions(out.Tier)
	}
	return formatter.Write(cmd.OutOrStdout(), outputFormat(proj), out, func(w io.Writer) error {
		fmt.Fprintln(w, out.Tier)
		if out.Instructions != "" {
			fmt.Fprintln(w)
			fmt.Fprintln(w, out.Instructions)
		}
		return nil
	})
}

func runTierSet(cmd *cobra.Command, args []string) error {
	proj, err := openProject()
	if err != nil {
		return err
	}
	defer proj.Close() //nolint:errcheck // log close best-effort

	t, err := proj.SetTier(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Tier set to %s\n", t)
	return nil
}
