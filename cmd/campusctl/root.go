package main

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "campusctl",
		Short: "Operational jobs for the campus administration services",
	}
	cmd.AddCommand(newVerifyPaymentsCmd())
	cmd.AddCommand(newExpireConsentsCmd())
	return cmd
}
