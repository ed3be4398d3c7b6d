package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan <abstract>",
	Short: "Print the dependency tree of a binding",
	Long:  "Plan the resolution of a bound abstract without building it and print the request tree.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := bootApplication()
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, a.Shutdown(context.WithoutCancel(cmd.Context()))) }()

		plan, err := a.IOC().Plan(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), plan.Tree())
		return nil
	},
}

var bindingsCmd = &cobra.Command{
	Use:   "bindings",
	Short: "List every bound abstract",
	Long:  "Boot the application and list the abstracts bound in the root container, in registration order.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		a, err := bootApplication()
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, a.Shutdown(context.WithoutCancel(cmd.Context()))) }()

		for _, abstract := range a.Bindings() {
			fmt.Fprintln(cmd.OutOrStdout(), abstract)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(bindingsCmd)
}
