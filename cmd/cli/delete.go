package cli

import (
	"context"
	"fmt"

	"github.com/axellelanca/linkshortener/cmd"
	"github.com/spf13/cobra"
)

// DeleteCmd removes a short link; its code becomes available again.
var DeleteCmd = &cobra.Command{
	Use:   "delete [short-code]",
	Short: "Delete a short link",
	Args:  cobra.ExactArgs(1),
	RunE: func(command *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(command.Context(), commandTimeout)
		defer cancel()

		linkService, closeStore, err := openLinkService(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		if err := linkService.DeleteLink(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to delete %s: %w", args[0], err)
		}
		fmt.Fprintf(command.OutOrStdout(), "Lien %s supprimé.\n", args[0])
		return nil
	},
}

func init() {
	cmd.RootCmd.AddCommand(DeleteCmd)
}
