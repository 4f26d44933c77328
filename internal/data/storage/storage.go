package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/songzhibin97/trendsignal/internal/models"

	_ "github.com/lib/pq"
)

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(connStr string) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStorage{db: db}

	err = s.initTables()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return s, nil
}

// SaveAlert implements data.AlertJournal
func (s *PostgresStorage) SaveAlert(ctx context.Context, record *models.AlertRecord) error {
	query := `
        INSERT INTO signal_alerts (
            network, pool_address, pool_name, close,
            fast_ma, mid_ma, slow_ma, sent_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8
        )
    `

	_, err := s.db.ExecContext(ctx, query,
		record.Network,
		record.PoolAddress,
		record.PoolName,
		record.Close,
		record.FastMA,
		record.MidMA,
		record.SlowMA,
		record.SentAt,
	)

	if err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}

	return nil
}

// GetRecentAlerts implements data.AlertJournal
func (s *PostgresStorage) GetRecentAlerts(ctx context.Context, network string, since time.Time) ([]models.AlertRecord, error) {
	query := `
        SELECT network, pool_address, pool_name, close,
               fast_ma, mid_ma, slow_ma, sent_at
        FROM signal_alerts
        WHERE network = $1 AND sent_at >= $2
        ORDER BY sent_at ASC
    `

	rows, err := s.db.QueryContext(ctx, query, network, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var result []models.AlertRecord
	for rows.Next() {
		var record models.AlertRecord
		err := rows.Scan(
			&record.Network,
			&record.PoolAddress,
			&record.PoolName,
			&record.Close,
			&record.FastMA,
			&record.MidMA,
			&record.SlowMA,
			&record.SentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		result = append(result, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rows: %w", err)
	}

	return result, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func (s *PostgresStorage) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS signal_alerts (
			id SERIAL PRIMARY KEY,
			network VARCHAR(50) NOT NULL,
			pool_address VARCHAR(100) NOT NULL,
			pool_name VARCHAR(200),
			close DOUBLE PRECISION,
			fast_ma DOUBLE PRECISION,
			mid_ma DOUBLE PRECISION,
			slow_ma DOUBLE PRECISION,
			sent_at TIMESTAMPTZ NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_signal_alerts_network_sent_at
			ON signal_alerts (network, sent_at)`,
	}

	for _, query := range queries {
		_, err := s.db.Exec(query)
		if err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}
