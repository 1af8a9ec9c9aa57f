package cli

import (
	"context"
	"fmt"

	"github.com/axellelanca/linkshortener/cmd"
	"github.com/spf13/cobra"
)

var (
	longURLFlag    string
	customCodeFlag string
)

// CreateCmd représente la commande 'create'
var CreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Crée un lien court à partir d'une URL longue.",
	Long: `Cette commande raccourcit une URL longue et affiche le code court.
Sans --code, un code aléatoire de 6 caractères est généré.

Exemple:
  linkshortener create --url="https://www.google.com/search?q=go+lang"
  linkshortener create --url="https://go.dev" --code=golang1`,
	RunE: func(command *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(command.Context(), commandTimeout)
		defer cancel()

		linkService, closeStore, err := openLinkService(ctx)
		if err != nil {
			return err
		}
		defer closeStore()

		link, err := linkService.CreateLink(ctx, longURLFlag, customCodeFlag)
		if err != nil {
			return fmt.Errorf("failed to create short link: %w", err)
		}

		out := command.OutOrStdout()
		fmt.Fprintln(out, "Lien court créé avec succès:")
		fmt.Fprintf(out, "Code: %s\n", link.Code)
		fmt.Fprintf(out, "URL complète: %s/%s\n", cmd.Cfg.Server.BaseURL, link.Code)
		return nil
	},
}

func init() {
	CreateCmd.Flags().StringVar(&longURLFlag, "url", "", "The long URL to shorten")
	CreateCmd.Flags().StringVar(&customCodeFlag, "code", "", "Custom short code (6-8 alphanumeric characters)")
	_ = CreateCmd.MarkFlagRequired("url")

	cmd.RootCmd.AddCommand(CreateCmd)
}
