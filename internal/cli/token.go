package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newTokenCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the stored access token",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set TOKEN",
			Short: "Store TOKEN as the current session",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := rt.client.SaveToken(args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "token saved")
				return nil
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Print the stored token",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				tok, ok, err := rt.client.Token()
				if err != nil {
					return err
				}
				if !ok {
					return errors.New("no stored session")
				}
				fmt.Fprintln(cmd.OutOrStdout(), tok)
				return nil
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Forget the stored token",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := rt.client.ClearToken(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "token cleared")
				return nil
			},
		},
	)
	return cmd
}
