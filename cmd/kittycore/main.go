// Command kittycore runs the kitty lifecycle and marketplace engine.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kittycore/internal/core"
	"kittycore/internal/platform/config"
	"kittycore/internal/platform/logging"
)

// app carries state shared by every subcommand once the root has run.
type app struct {
	configFile string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "kittycore",
		Short:         "Kitty lifecycle and marketplace engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.configFile != "" {
				if err := os.Setenv(config.FileEnv, a.configFile); err != nil {
					return err
				}
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if a.verbose {
				cfg.Log.Level = "debug"
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&a.configFile, "config", "", "YAML configuration file (overrides "+config.FileEnv+")")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(newServeCmd(a), newExportCmd(a), newCooldownsCmd(a))
	return root
}

// openService opens the configured ledger and builds the engine over it.
// The returned close function releases the store.
func (a *app) openService(ctx context.Context, opts ...core.Option) (*core.Service, func() error, error) {
	store, closeStore, err := core.OpenPersistentStore(ctx, a.cfg.StorageSettings(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	opts = append([]core.Option{
		core.WithConfig(a.cfg.Core()),
		core.WithLogger(a.logger),
	}, opts...)
	svc, err := core.NewService(store, opts...)
	if err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	if err := a.bootstrap(ctx, svc); err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	return svc, closeStore, nil
}

// bootstrap assigns the configured roles to a ledger that has none yet.
func (a *app) bootstrap(ctx context.Context, svc *core.Service) error {
	roles := a.cfg.BootstrapRoles()
	if roles.CEO.IsZero() {
		return nil
	}
	current, err := svc.Roles(ctx)
	if err != nil {
		return err
	}
	if current.Initialized() {
		return nil
	}
	if err := svc.Bootstrap(ctx, roles, a.cfg.AutoBirthFee()); err != nil {
		return fmt.Errorf("bootstrap roles: %w", err)
	}
	a.logger.Info("ledger bootstrapped", zap.String("ceo", string(roles.CEO)))
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
