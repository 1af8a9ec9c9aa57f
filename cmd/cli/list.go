package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/axellelanca/linkshortener/cmd"
	"github.com/spf13/cobra"
)

// ListCmd prints every link, newest first.
var ListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all short links, newest first",
	Args:  cobra.NoArgs,
	RunE: func(command *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(command.Context(), commandTimeout)
		defer cancel()

		linkService, closeStore, err := openLinkService(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		links, err := linkService.ListLinks(ctx)
		if err != nil {
			return fmt.Errorf("failed to list links: %w", err)
		}

		tw := tabwriter.NewWriter(command.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "CODE\tCLICKS\tCREATED\tURL")
		for _, link := range links {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", link.Code, link.Clicks, link.CreatedAt.Local().Format("2006-01-02 15:04"), link.URL)
		}
		return tw.Flush()
	},
}

func init() {
	cmd.RootCmd.AddCommand(ListCmd)
}
