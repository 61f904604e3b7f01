package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mrwiat/internal/bootstrap"
	"mrwiat/internal/infra"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "walletctl",
		Short:         "Administer point wallets and voucher codes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newShowCmd(),
		newAddCmd(),
		newSetCmd(),
		newGenCodesCmd(),
		newMigrateCmd(),
		newRendererKeyCmd(),
	)
	return root
}

// session is what every subcommand needs: config, a logger and an open store.
type session struct {
	cfg     *infra.Config
	logger  infra.Logger
	backend *bootstrap.Backend
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := infra.NewLoggerTo(os.Stderr, cfg.AppEnv).With().Str("cmd", "walletctl").Logger()
	backend, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, backend: backend}, nil
}

func (s *session) Close() {
	_ = s.backend.Close()
}
