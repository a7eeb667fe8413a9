package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS url_cache (
			url_hash TEXT PRIMARY KEY,
			url TEXT NOT NULL,
			is_phishing BOOLEAN NOT NULL,
			model_used TEXT NOT NULL,
			last_seen INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_url_cache_expires_at ON url_cache(expires_at)`,
	},
	selectEntry: `SELECT url, is_phishing, model_used, last_seen, expires_at
		FROM url_cache
		WHERE url_hash = ? AND expires_at > ?`,
	upsertEntry: `INSERT OR REPLACE INTO url_cache (url_hash, url, is_phishing, model_used, last_seen, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
	deleteEntry:   `DELETE FROM url_cache WHERE url_hash = ?`,
	deleteExpired: `DELETE FROM url_cache WHERE expires_at <= ?`,
}

// NewSQLiteCache creates a new SQLite cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// sqlite serializes writers; one connection also keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	return newSQLCache(db, sqliteDialect, logger, cleanupFreq)
}
