package storage

import (
	"context"
	"errors"

	"github.com/bookfox/bookfox/internal/pkg/env"
)

// Store persists immutable artifacts (payout statements) under stable
// references. Artifacts are write-once: a reference, once handed out, always
// resolves to the same bytes.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// NewStoreFromEnv selects the artifact store backend from environment
// configuration: "s3" or the local filesystem default.
func NewStoreFromEnv() (Store, error) {
	switch env.GetEnv("ARTIFACT_STORAGE", "local") {
	case "s3":
		cfg, err := LoadS3Config()
		if err != nil {
			return nil, err
		}
		return NewS3Store(cfg)
	case "local":
		return NewLocalStore(env.GetEnv("ARTIFACT_DIR", "./artifacts")), nil
	default:
		return nil, errors.New("ARTIFACT_STORAGE must be local or s3")
	}
}
