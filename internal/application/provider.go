package application

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"passvault/internal/adapter/driven/remote"
	"passvault/internal/adapter/driven/sqlite"
	"passvault/internal/domain/port/driven"
)

// VaultConfig identifies one vault service configuration. Two configs with
// the same field values share a single live VaultService and a single open
// database connection pair.
type VaultConfig struct {
	DBPath        string
	RemoteURL     string // empty means local-only
	SyncEnabled   bool
	RemoteTimeout time.Duration
	RetryAttempts int
}

func (c VaultConfig) key() string {
	return fmt.Sprintf("%s|%s|%t", c.DBPath, c.RemoteURL, c.SyncEnabled)
}

// vaultInstance pairs a service with the database it owns, so Reset can
// close the connection when the instance is discarded.
type vaultInstance struct {
	svc *VaultService
	db  *sqlite.DB
}

var (
	instancesMu sync.Mutex
	instances   = map[string]*vaultInstance{}
)

// GetVaultService returns the live service for the given configuration,
// constructing it on first use: the database is opened lazily here, not at
// program start. Subsequent calls with an equal config return the same
// instance.
func GetVaultService(cfg VaultConfig, logger *slog.Logger) (*VaultService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	instancesMu.Lock()
	defer instancesMu.Unlock()

	if inst, ok := instances[cfg.key()]; ok {
		return inst.svc, nil
	}

	db, err := sqlite.NewDB(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := sqlite.RunMigrations(db.Writer); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", cfg.DBPath, err)
	}

	local := sqlite.NewRecordRepo(db)

	var mirror *remote.Client
	if cfg.SyncEnabled && cfg.RemoteURL != "" {
		opts := []remote.Option{}
		if cfg.RemoteTimeout > 0 {
			opts = append(opts, remote.WithTimeout(cfg.RemoteTimeout))
		}
		if cfg.RetryAttempts > 0 {
			opts = append(opts, remote.WithAttempts(cfg.RetryAttempts))
		}
		mirror = remote.NewClient(cfg.RemoteURL, opts...)
	}

	svc := NewVaultService(local, storeOrNil(mirror), logger)
	instances[cfg.key()] = &vaultInstance{svc: svc, db: db}
	return svc, nil
}

// ResetVaultServices discards every cached instance, waiting for in-flight
// mirror writes and closing the underlying databases. Tests use it for
// isolation; callers get fresh instances on the next GetVaultService.
func ResetVaultServices() error {
	instancesMu.Lock()
	defer instancesMu.Unlock()

	var firstErr error
	for key, inst := range instances {
		inst.svc.Wait()
		if err := inst.db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", key, err)
		}
		delete(instances, key)
	}
	return firstErr
}

// storeOrNil keeps a typed-nil *remote.Client from leaking into the service
// as a non-nil interface value.
func storeOrNil(c *remote.Client) driven.RecordStore {
	if c == nil {
		return nil
	}
	return c
}
