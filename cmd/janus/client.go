package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/janus/internal/app"
	"github.com/dropDatabas3/janus/internal/config"
	"github.com/dropDatabas3/janus/internal/security/password"
	tokens "github.com/dropDatabas3/janus/internal/security/token"
	"github.com/dropDatabas3/janus/internal/store/core"
)

func newClientCmd(loadCfg func() (*config.Config, error)) *cobra.Command {
	clientCmd := &cobra.Command{
		Use:   "client",
		Short: "Gestión de clients OAuth2 registrados",
	}

	var (
		name         string
		redirectURIs []string
		scopes       []string
		public       bool
	)

	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Registra un client. El secret se imprime UNA sola vez.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(redirectURIs) == 0 {
				return fmt.Errorf("al menos un --redirect-uri es requerido")
			}
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			c, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			if len(scopes) == 0 {
				scopes = []string{"openid"}
			}

			cl := &core.Client{
				ClientID:     uuid.NewString(),
				Name:         name,
				Type:         core.ClientConfidential,
				Source:       core.ClientRegistered,
				RedirectURIs: redirectURIs,
				Scopes:       scopes,
			}

			var secret string
			if public {
				cl.Type = core.ClientPublic
			} else {
				secret, err = tokens.GenerateOpaque(32)
				if err != nil {
					return err
				}
				hash, err := password.Hash(password.Default, secret)
				if err != nil {
					return err
				}
				cl.SecretHash = &hash
			}

			if err := c.Store.CreateClient(ctx, cl); err != nil {
				return err
			}

			fmt.Printf("client_id=%s\n", cl.ClientID)
			if secret != "" {
				// Sólo guardamos el hash: este es el único momento para copiarlo.
				fmt.Printf("client_secret=%s\n", secret)
			}
			return nil
		},
	}
	addCmd.Flags().StringVar(&name, "name", "", "nombre visible del client")
	addCmd.Flags().StringArrayVar(&redirectURIs, "redirect-uri", nil, "redirect URI permitida (repetible)")
	addCmd.Flags().StringArrayVar(&scopes, "scope", nil, "scope permitido (repetible; default openid)")
	addCmd.Flags().BoolVar(&public, "public", false, "client público (sin secret, requiere PKCE)")

	clientCmd.AddCommand(addCmd)
	return clientCmd
}
