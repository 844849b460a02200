package commands

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Mudegi/YourBookSuit-sub007/internal/accounts"
	"github.com/Mudegi/YourBookSuit-sub007/internal/api"
	"github.com/Mudegi/YourBookSuit-sub007/internal/config"
	"github.com/Mudegi/YourBookSuit-sub007/internal/eventlog"
	"github.com/Mudegi/YourBookSuit-sub007/internal/events"
	"github.com/Mudegi/YourBookSuit-sub007/internal/ibt"
	"github.com/Mudegi/YourBookSuit-sub007/internal/importer"
	"github.com/Mudegi/YourBookSuit-sub007/internal/journal"
	"github.com/Mudegi/YourBookSuit-sub007/internal/ledger"
	"github.com/Mudegi/YourBookSuit-sub007/internal/logging"
	"github.com/Mudegi/YourBookSuit-sub007/internal/reconcile"
	"github.com/Mudegi/YourBookSuit-sub007/internal/store"
)

// globalFlags are the persistent flags of the root command.
type globalFlags struct {
	configPath string
	envFile    string
	org        string
	debug      bool
}

// app holds the services of one CLI invocation.
type app struct {
	cfg    *config.Config
	dir    string // directory of the config file; relative paths resolve here
	org    string
	logger *slog.Logger
	store  *store.Store
	closer []io.Closer

	accounts  *accounts.Service
	poster    *ledger.Poster
	lifecycle *ledger.Lifecycle
	transfers *ibt.Workflow
	journal   *journal.Service
	bank      *reconcile.Service
	parsers   *importer.Registry
}

// loadConfig reads the .env file and the config file named by the flags.
func loadConfig(g *globalFlags) (*config.Config, string, error) {
	if err := config.LoadDotEnv(g.envFile); err != nil {
		return nil, "", err
	}
	absPath, err := filepath.Abs(g.configPath)
	if err != nil {
		return nil, "", fmt.Errorf("resolving config path: %w", err)
	}
	cfg, err := config.Load(absPath)
	if err != nil {
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid %s: %w", filepath.Base(absPath), err)
	}
	return cfg, filepath.Dir(absPath), nil
}

// openApp loads configuration and wires every service. Callers must Close it.
func openApp(cmd *cobra.Command, g *globalFlags) (*app, error) {
	cfg, dir, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if g.debug {
		level = "debug"
	}
	logger, err := logging.Setup(level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	org := cfg.Organization
	if g.org != "" {
		org = g.org
	}
	if org == "" {
		return nil, errors.New("no organization: set organization in the config or pass --org")
	}

	dsn := cfg.Database.DSN
	if cfg.Database.Driver == store.DriverSQLite {
		dsn = resolve(dir, dsn)
	}
	st, err := store.Open(cfg.Database.Driver, dsn)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, dir: dir, org: org, logger: logger, store: st}
	a.closer = append(a.closer, st)

	var pubs events.Multi
	if len(cfg.Events.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.Topic)
		a.closer = append(a.closer, kp)
		pubs = append(pubs, kp)
	} else {
		pubs = append(pubs, events.LogPublisher{Logger: logger})
	}
	if cfg.Events.LogFile != "" {
		pubs = append(pubs, eventlog.NewPublisher(resolve(dir, cfg.Events.LogFile)))
	}

	a.poster = ledger.NewPoster(st, ledger.Options{
		BaseCurrency: cfg.Ledger.BaseCurrency,
		Publisher:    pubs,
		Logger:       logger,
	})
	a.accounts = accounts.NewService(st, cfg.Ledger.BaseCurrency, logger)
	a.lifecycle = ledger.NewLifecycle(a.poster, cfg.Journal.MaxBulk)
	a.transfers = ibt.NewWorkflow(a.poster, logger)
	a.journal = journal.NewService(a.poster, logger)
	a.bank = reconcile.NewService(a.poster, reconcile.Options{
		AutoApplyThreshold: cfg.Reconciliation.AutoApplyThreshold,
		MaxBatch:           cfg.Reconciliation.MaxBatch,
		DateWindowDays:     cfg.Reconciliation.DateWindowDays,
		Logger:             logger,
	})
	a.parsers = importer.DefaultRegistry()
	return a, nil
}

// services exposes the wired services to the HTTP layer.
func (a *app) services() api.Services {
	return api.Services{
		Accounts:  a.accounts,
		Poster:    a.poster,
		Lifecycle: a.lifecycle,
		Transfers: a.transfers,
		Journal:   a.journal,
		Bank:      a.bank,
		Parsers:   a.parsers,
		Logger:    a.logger,
	}
}

// Close releases the publishers and the store, last opened first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closer) - 1; i >= 0; i-- {
		if err := a.closer[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// path resolves p against the project directory.
func (a *app) path(p string) string {
	return resolve(a.dir, p)
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// withApp wraps a RunE body with openApp and Close.
func withApp(g *globalFlags, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd, g)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(); cerr != nil {
				fmt.Fprintf(os.Stderr, "warning: closing: %v\n", cerr)
			}
		}()
		return fn(cmd, a, args)
	}
}
