package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var postgresDialect = dialect{
	name: "postgres",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS url_cache (
			url_hash CHAR(64) PRIMARY KEY,
			url TEXT NOT NULL,
			is_phishing BOOLEAN NOT NULL,
			model_used TEXT NOT NULL,
			last_seen BIGINT NOT NULL,
			expires_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_url_cache_expires_at ON url_cache(expires_at)`,
	},
	selectEntry: `SELECT url, is_phishing, model_used, last_seen, expires_at
		FROM url_cache
		WHERE url_hash = $1 AND expires_at > $2`,
	upsertEntry: `INSERT INTO url_cache (url_hash, url, is_phishing, model_used, last_seen, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (url_hash) DO UPDATE SET
			url = EXCLUDED.url,
			is_phishing = EXCLUDED.is_phishing,
			model_used = EXCLUDED.model_used,
			last_seen = EXCLUDED.last_seen,
			expires_at = EXCLUDED.expires_at`,
	deleteEntry:   `DELETE FROM url_cache WHERE url_hash = $1`,
	deleteExpired: `DELETE FROM url_cache WHERE expires_at <= $1`,
}

// NewPostgresCache creates a new PostgreSQL cache
func NewPostgresCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLCache, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	return newSQLCache(db, postgresDialect, logger, cleanupFreq)
}
