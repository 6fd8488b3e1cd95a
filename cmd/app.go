// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/cardinalhq/tracemap/config"
	"github.com/cardinalhq/tracemap/internal/catalog"
	"github.com/cardinalhq/tracemap/internal/cloudstorage"
	"github.com/cardinalhq/tracemap/internal/dbopen"
	"github.com/cardinalhq/tracemap/internal/filestore"
	"github.com/cardinalhq/tracemap/internal/igc"
	"github.com/cardinalhq/tracemap/internal/kvstore"
	"github.com/cardinalhq/tracemap/internal/ledger"
	"github.com/cardinalhq/tracemap/internal/pipeline"
	"github.com/cardinalhq/tracemap/internal/publish"
	"github.com/cardinalhq/tracemap/internal/reducer"
	"github.com/cardinalhq/tracemap/internal/storageprofile"
)

// ledgerDBPrefix names the LEDGER_DB_* variables used when ledger.url is unset.
const ledgerDBPrefix = "LEDGER_DB"

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds the stores and ledger shared by every product's runner.
type app struct {
	cfg     *config.Config
	loc     *time.Location
	source  filestore.Store
	catalog *catalog.Catalog
	dests   []filestore.Store
	kv      kvstore.Store
	locker  ledger.Locker
	clouds  *cloudstorage.CloudManagers

	mu      sync.Mutex
	runners map[string]*pipeline.Runner
}

func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	loc, err := cfg.Schedule.Location()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
	}
	a = &app{
		cfg:     cfg,
		loc:     loc,
		clouds:  cloudstorage.NewCloudManagers(),
		runners: map[string]*pipeline.Runner{},
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	opener := filestore.Opener{
		Clients: a.clouds,
		FTP:     cfg.FTP,
		Timeout: cfg.IOTimeout,
	}
	if usesBuckets(cfg) {
		profiles, err := storageprofile.SetupStorageProfiles()
		if err != nil {
			return nil, fmt.Errorf("%w: storage profiles: %w", pipeline.ErrConfiguration, err)
		}
		opener.Profiles = profiles
	}

	if a.source, err = opener.Open(ctx, cfg.Source.Location); err != nil {
		return nil, fmt.Errorf("open source %s: %w", cfg.Source.Location, err)
	}
	if a.catalog, err = catalog.New(a.source, cfg.Source.Catalog, loc); err != nil {
		return nil, fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
	}
	for _, d := range cfg.Destinations {
		store, err := opener.Open(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("open destination %s: %w", d, err)
		}
		a.dests = append(a.dests, store)
	}

	if err := a.openLedger(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func usesBuckets(cfg *config.Config) bool {
	if cfg.Source.Kind == filestore.KindBucket {
		return true
	}
	return slices.ContainsFunc(cfg.Destinations, func(l filestore.Location) bool {
		return l.Kind == filestore.KindBucket
	})
}

func (a *app) openLedger(ctx context.Context) error {
	lc := a.cfg.Ledger
	switch lc.Backend {
	case config.LedgerMemory:
		slog.Warn("Using an in-memory ledger, every period will be reprocessed after a restart")
		a.kv = kvstore.NewMemory()
	case config.LedgerSQLite:
		kv, err := kvstore.NewSQLite(lc.Path)
		if err != nil {
			return fmt.Errorf("%w: %w", pipeline.ErrLedger, err)
		}
		a.kv = kv
	case config.LedgerPostgres:
		url := lc.URL
		if url == "" {
			var err error
			if url, err = dbopen.GetDatabaseURLFromEnv(ledgerDBPrefix); err != nil {
				return fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
			}
		}
		pool, err := dbopen.ConnectPool(ctx, url)
		if err != nil {
			return fmt.Errorf("%w: %w", pipeline.ErrLedger, err)
		}
		kv, err := kvstore.NewPostgres(pool)
		if err != nil {
			pool.Close()
			return fmt.Errorf("%w: %w", pipeline.ErrLedger, err)
		}
		a.kv = kv
		if lc.Lock {
			a.locker = ledger.NewPostgresLocker(pool)
		}
	default:
		return fmt.Errorf("%w: unknown ledger backend %q", pipeline.ErrConfiguration, lc.Backend)
	}
	if a.locker == nil {
		a.locker = ledger.NewLocalLocker()
	}
	return nil
}

// runner returns the runner for a product name, or for the configured
// product when name is empty.
func (a *app) runner(name string) (pipeline.Product, *pipeline.Runner, error) {
	product, err := a.cfg.ResolveProduct(name)
	if err != nil {
		return pipeline.Product{}, nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if r, ok := a.runners[product.Name]; ok {
		return product, r, nil
	}

	red, err := reducer.New(product.Policy(a.cfg.Policy))
	if err != nil {
		return pipeline.Product{}, nil, fmt.Errorf("%w: %w", pipeline.ErrConfiguration, err)
	}
	r, err := pipeline.NewRunner(pipeline.Deps{
		Product: product,
		Catalog: a.catalog,
		Source:  a.source,
		Parser:  igc.Parser{},
		Reducer: red,
		Sink:    publish.NewSink(product.Base, a.dests, publish.WithTimeout(a.cfg.IOTimeout)),
		Ledger:  ledger.New(a.kv, product.Name),
		Locker:  a.locker,
	},
		pipeline.WithWorkers(a.cfg.Workers),
		pipeline.WithIOTimeout(a.cfg.IOTimeout),
		pipeline.WithClock(func() time.Time { return time.Now().In(a.loc) }),
	)
	if err != nil {
		return pipeline.Product{}, nil, err
	}
	a.runners[product.Name] = r
	return product, r, nil
}

func (a *app) Close() error {
	var errs *multierror.Error
	if a.source != nil {
		errs = multierror.Append(errs, a.source.Close())
	}
	for _, d := range a.dests {
		errs = multierror.Append(errs, d.Close())
	}
	if a.kv != nil {
		errs = multierror.Append(errs, a.kv.Close())
	}
	if a.clouds != nil {
		errs = multierror.Append(errs, a.clouds.Close())
	}
	return errs.ErrorOrNil()
}
