package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/spec-kit/asset-gateway/internal/config"
	"github.com/spec-kit/asset-gateway/internal/credential"
	"github.com/spec-kit/asset-gateway/internal/persistence"
)

// buildKeyring picks the durable store from CREDENTIAL_BACKEND. The session scope is a
// file tied to the parent shell, so a login without --remember lasts as long as the
// terminal that ran it.
func (a *app) buildKeyring(ctx context.Context) (*credential.Keyring, error) {
	cfg := a.cfg
	var durable credential.Store

	switch cfg.Credential.Backend {
	case config.BackendMemory:
		durable = credential.NewMemoryStore()
	case config.BackendRedis:
		r := persistence.NewRedis(ctx, cfg.Redis, a.logger)
		a.closers = append(a.closers, r.Close)
		durable = credential.NewRedisStore(r.Client, cfg.Credential.TTL())
	case config.BackendPostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, a.logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, a.logger); err != nil {
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		durable = credential.NewPostgresStore(pg.PoolHandle(), cfg.Credential.TTL())
	default:
		durable = credential.NewFileStore(cfg.Credential.FilePath)
	}

	session := credential.NewFileStore(filepath.Join(os.TempDir(), fmt.Sprintf("assetctl-session-%d", os.Getppid())))
	a.logger.Debug("credential stores ready", zap.String("durable", cfg.Credential.Backend))
	return credential.NewKeyring(durable, session, cfg.Credential.Key), nil
}
