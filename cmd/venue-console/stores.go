package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/venuedesk/pkg/config"
	"github.com/platinummonkey/venuedesk/pkg/observability"
	"github.com/platinummonkey/venuedesk/pkg/session"
)

// sessionStores owns the connections behind the two session scopes
type sessionStores struct {
	Durable session.Backend
	Scoped  session.Backend

	// DB and Redis are nil unless a scope uses them
	DB    *sql.DB
	Redis *redis.Client

	janitor *session.Janitor
}

func openStores(ctx context.Context, cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) (*sessionStores, error) {
	s := &sessionStores{}

	if cfg.Session.UsesRedis() {
		rb, err := session.NewRedisBackend(cfg.Redis("durable", cfg.Session.DurableTTL))
		if err != nil {
			return nil, err
		}
		s.Redis = rb.Client()
	}

	durable, err := s.open(ctx, cfg, cfg.Session.Durable, "durable", cfg.Session.DurableTTL)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("durable session store: %w", err)
	}
	scoped, err := s.open(ctx, cfg, cfg.Session.Scoped, "scoped", cfg.Session.ScopedTTL)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("scoped session store: %w", err)
	}
	s.Durable, s.Scoped = durable, scoped

	s.janitor = session.NewJanitor(logger, metrics, map[string]session.Backend{
		"durable": durable,
		"scoped":  scoped,
	})
	if s.janitor.Len() > 0 && cfg.Session.PurgeSchedule != "" {
		if err := s.janitor.Start(cfg.Session.PurgeSchedule); err != nil {
			s.Close()
			return nil, err
		}
	}

	logger.WithFields(map[string]interface{}{
		"durable": cfg.Session.Durable,
		"scoped":  cfg.Session.Scoped,
		"purged":  s.janitor.Len(),
	}).Info("session stores ready")
	return s, nil
}

func (s *sessionStores) open(ctx context.Context, cfg *config.Config, kind, scope string, ttl time.Duration) (session.Backend, error) {
	switch kind {
	case config.StoreMemory:
		return session.NewMemoryBackend(ttl), nil
	case config.StoreFile:
		return session.NewFileBackend(cfg.Session.FileRoot)
	case config.StoreRedis:
		return session.FromClient(s.Redis, cfg.Session.RedisPrefix+":"+scope, ttl), nil
	case config.StorePostgres, config.StoreSQLite:
		if s.DB == nil {
			db, err := session.OpenSQL(ctx, kind, cfg.Session.SQLDSN)
			if err != nil {
				return nil, err
			}
			s.DB = db
		}
		backend := session.NewSQLBackend(s.DB, kind, ttl)
		if err := backend.Migrate(ctx); err != nil {
			return nil, err
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", kind)
	}
}

// Stop halts the janitor and closes the connections
func (s *sessionStores) Stop(ctx context.Context) error {
	var err error
	if s.janitor != nil {
		err = s.janitor.Stop(ctx)
	}
	s.Close()
	return err
}

// Close releases the SQL and Redis connections
func (s *sessionStores) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
	if s.Redis != nil {
		s.Redis.Close()
	}
}
