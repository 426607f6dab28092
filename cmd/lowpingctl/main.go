// Command lowpingctl seeds and inspects the Lowping event store.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Genoux/website/internal/platform/config"
	pfirestore "github.com/Genoux/website/internal/platform/firestore"
	"github.com/Genoux/website/internal/platform/secrets"
	"github.com/Genoux/website/internal/repositories"
	firestoreRepo "github.com/Genoux/website/internal/repositories/firestore"
	"github.com/Genoux/website/internal/repositories/sqlite"
)

type eventStore interface {
	Events() repositories.EventRepository
	Close(ctx context.Context) error
}

// app carries what every subcommand needs. Tests replace env and open.
type app struct {
	envFile string
	env     map[string]string
	now     func() time.Time
	open    func(cfg config.Config) (eventStore, error)
}

func main() {
	a := &app{now: time.Now, open: openStore}
	if err := newRootCmd(a).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lowpingctl",
		Short:         "Operator tools for the Lowping site",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file read before the environment")

	rootCmd.AddCommand(newSeedCmd(a))
	rootCmd.AddCommand(newEventsCmd(a))
	rootCmd.AddCommand(newMotionCmd())
	return rootCmd
}

func (a *app) loadConfig(ctx context.Context) (config.Config, error) {
	opts := []config.Option{config.WithEnvFile(a.envFile)}
	if a.env != nil {
		opts = []config.Option{config.WithEnvFile(""), config.WithEnvMap(a.env), config.WithoutSystemEnv()}
	}

	project, err := config.Lookup("SECRETS_PROJECT_ID", opts...)
	if err != nil {
		return config.Config{}, err
	}
	fetcherOpts := []secrets.Option{secrets.WithLogger(zap.NewNop()), secrets.WithProject(project)}
	if a.env != nil {
		fetcherOpts = append(fetcherOpts, secrets.WithLocalOnly())
	}
	fetcher, err := secrets.NewFetcher(ctx, fetcherOpts...)
	if err != nil {
		return config.Config{}, err
	}
	defer func() {
		_ = fetcher.Close()
	}()

	opts = append(opts, config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)))
	cfg, err := config.Load(ctx, opts...)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// withStore loads the configuration, opens the configured backend and runs fn.
func (a *app) withStore(ctx context.Context, fn func(cfg config.Config, store eventStore) error) error {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}
	store, err := a.open(cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = store.Close(closeCtx)
	}()
	return fn(cfg, store)
}

func openStore(cfg config.Config) (eventStore, error) {
	if cfg.Store.Backend == config.StoreFirestore {
		return firestoreRepo.NewRegistry(pfirestore.NewProvider(cfg.Firestore))
	}
	return sqlite.Open(cfg.Store.SQLitePath)
}
