package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/axellelanca/linkshortener/cmd"
	customerrors "github.com/axellelanca/linkshortener/internal/errors"
	"github.com/spf13/cobra"
)

// StatsCmd représente la commande 'stats'
var StatsCmd = &cobra.Command{
	Use:   "stats [short-code]",
	Short: "Get statistics for a short link",
	Long:  `Get the click count and last click time for the provided short code.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	cmd.RootCmd.AddCommand(StatsCmd)
}

// runStats exécute la logique pour la commande stats
func runStats(command *cobra.Command, args []string) error {
	code := args[0]

	ctx, cancel := context.WithTimeout(command.Context(), commandTimeout)
	defer cancel()

	linkService, closeStore, err := openLinkService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	link, err := linkService.GetLink(ctx, code)
	if err != nil {
		if errors.Is(err, customerrors.ErrLinkNotFound) {
			return fmt.Errorf("short code '%s' not found", code)
		}
		return fmt.Errorf("error retrieving statistics: %w", err)
	}

	lastClick := "jamais"
	if link.LastClickedAt != nil {
		lastClick = link.LastClickedAt.Local().Format("2006-01-02 15:04:05")
	}

	out := command.OutOrStdout()
	fmt.Fprintf(out, "Statistiques pour le code court: %s\n", link.Code)
	fmt.Fprintf(out, "URL longue: %s\n", link.URL)
	fmt.Fprintf(out, "Total de clics: %d\n", link.Clicks)
	fmt.Fprintf(out, "Dernier clic: %s\n", lastClick)
	fmt.Fprintf(out, "Date de création: %s\n", link.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}
