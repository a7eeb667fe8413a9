package cache

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

var mysqlDialect = dialect{
	name: "mysql",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS url_cache (
			url_hash CHAR(64) PRIMARY KEY,
			url TEXT NOT NULL,
			is_phishing BOOLEAN NOT NULL,
			model_used VARCHAR(255) NOT NULL,
			last_seen BIGINT NOT NULL,
			expires_at BIGINT NOT NULL,
			INDEX idx_url_cache_expires_at (expires_at)
		)`,
	},
	selectEntry: `SELECT url, is_phishing, model_used, last_seen, expires_at
		FROM url_cache
		WHERE url_hash = ? AND expires_at > ?`,
	upsertEntry: `INSERT INTO url_cache (url_hash, url, is_phishing, model_used, last_seen, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			url = VALUES(url),
			is_phishing = VALUES(is_phishing),
			model_used = VALUES(model_used),
			last_seen = VALUES(last_seen),
			expires_at = VALUES(expires_at)`,
	deleteEntry:   `DELETE FROM url_cache WHERE url_hash = ?`,
	deleteExpired: `DELETE FROM url_cache WHERE expires_at <= ?`,
}

// NewMySQLCache creates a new MySQL cache
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	return newSQLCache(db, mysqlDialect, logger, cleanupFreq)
}
