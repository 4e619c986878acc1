package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dropDatabas3/janus/internal/app"
	"github.com/dropDatabas3/janus/internal/config"
	jwtx "github.com/dropDatabas3/janus/internal/jwt"
)

func newKeysCmd(loadCfg func() (*config.Config, error)) *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Gestión de claves de firma",
	}

	keysCmd.AddCommand(&cobra.Command{
		Use:   "rotate",
		Short: "Rota la clave activa (la actual queda retiring en el JWKS)",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			kid, err := c.Keystore.Rotate(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("rotated: new active kid=%s\n", kid)
			return nil
		},
	})

	keysCmd.AddCommand(&cobra.Command{
		Use:   "bootstrap",
		Short: "Genera la clave inicial si no hay ninguna activa",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			// app.New ya garantiza bootstrap; acá sólo reportamos el kid.
			kid, _, err := c.Keystore.Active(ctx)
			if err == jwtx.ErrNoActiveKey {
				return fmt.Errorf("no active key after bootstrap")
			}
			if err != nil {
				return err
			}
			fmt.Printf("active kid=%s\n", kid)
			return nil
		},
	})

	return keysCmd
}
