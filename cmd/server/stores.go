package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"antigravity-gateway/internal/config"
	"antigravity-gateway/internal/credential"
	"antigravity-gateway/internal/usage"
	"github.com/redis/go-redis/v9"
)

// buildCredentialStore selects the Credential Store backend from
// cfg.Storage.Backend, matching the same knob the Usage Store reads.
func buildCredentialStore(cfg *config.Config) (credential.Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	switch backend {
	case "", "file":
		path := expandPath(cfg.Security.AuthDir)
		if path == "" {
			path = "./auths"
		}
		return credential.NewFileStore(filepath.Join(path, "credentials.json")), nil
	case "mongo", "mongodb":
		return credential.NewMongoStore(context.Background(), cfg.Storage.MongoURI, cfg.Storage.MongoDatabase)
	case "postgres", "postgresql":
		return credential.NewPostgresStore(cfg.Storage.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported credential storage backend: %s", backend)
	}
}

// buildUsageBackend selects the Usage & Observability Store's persistence
// backend. Redis and file are the two the teacher's stack exercises for
// this kind of append-only log; Mongo/Postgres are reserved for the
// Credential Store, which needs transactional upserts, not log append.
func buildUsageBackend(cfg *config.Config) (usage.Backend, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	switch backend {
	case "", "file":
		return usage.NewFileBackend(defaultUsageLogPath(cfg.Security.AuthDir)), nil
	case "redis":
		addr := cfg.Storage.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
		})
		return usage.NewRedisBackend(client), nil
	default:
		return usage.NewFileBackend(defaultUsageLogPath(cfg.Security.AuthDir)), nil
	}
}

func defaultUsageLogPath(authDir string) string {
	dir := expandPath(authDir)
	if dir == "" {
		dir = "./auths"
	}
	return filepath.Join(filepath.Dir(filepath.Clean(dir)), "usage_log.json")
}

func expandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
