package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dropDatabas3/janus/internal/config"
	"github.com/dropDatabas3/janus/internal/observability/logger"
)

func main() {
	// .env opcional: conveniencia de dev, el entorno real siempre gana.
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:   "janus",
		Short: "Authorization server OAuth2/OIDC embebible",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", envOr("JANUS_CONFIG", ""), "ruta al config.yaml (env JANUS_CONFIG)")

	loadCfg := func() (*config.Config, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		logger.Init(logger.Config{
			Env:         cfg.App.Env,
			Level:       cfg.Log.Level,
			ServiceName: "janus",
		})
		return cfg, nil
	}

	root.AddCommand(newServeCmd(loadCfg))
	root.AddCommand(newKeysCmd(loadCfg))
	root.AddCommand(newClientCmd(loadCfg))
	root.AddCommand(newMigrateCmd(loadCfg))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
