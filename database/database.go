package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crimewatch/config"

	"github.com/apex/log"
	_ "github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a report seq does not exist.
var ErrNotFound = errors.New("report not found")

// Database represents the database connection
type Database struct {
	db *sql.DB
}

// NewDatabase creates a new database connection
func NewDatabase(cfg *config.Config) (*Database, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection with exponential backoff retry
	var waitInterval time.Duration = 1 * time.Second
	for {
		if err := db.Ping(); err == nil {
			break // Connection successful
		} else {
			log.Warnf("Database connection failed, retrying in %v: %v", waitInterval, err)
		}
		time.Sleep(waitInterval)
		waitInterval *= 2 // Exponential backoff: 1s, 2s, 4s, 8s, ...
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Database{db: db}, nil
}

// NewFromConn wraps an existing connection. Used by tests.
func NewFromConn(db *sql.DB) *Database {
	return &Database{db: db}
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// GetDB returns the underlying sql.DB for direct queries
func (d *Database) GetDB() *sql.DB {
	return d.db
}

// CreateTables creates the crimewatch tables if they don't exist
func (d *Database) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			seq INT AUTO_INCREMENT PRIMARY KEY,
			ts TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			id VARCHAR(255) NOT NULL,
			wallet VARCHAR(42) NOT NULL DEFAULT '',
			location VARCHAR(500) NOT NULL,
			latitude FLOAT NOT NULL DEFAULT 0.0,
			longitude FLOAT NOT NULL DEFAULT 0.0,
			description TEXT,
			category ENUM('SEXUAL_VIOLENCE', 'DOMESTIC_VIOLENCE', 'STREET_CRIMES',
				'MOB_VIOLENCE_LYNCHING', 'ROAD_RAGE_INCIDENTS', 'CYBERCRIMES',
				'DRUG', 'OTHER') NOT NULL DEFAULT 'OTHER',
			priority ENUM('low', 'medium', 'high', 'critical') NOT NULL DEFAULT 'medium',
			status ENUM('pending', 'verified', 'rejected') NOT NULL DEFAULT 'pending',
			media LONGBLOB,
			media_mime VARCHAR(64) NOT NULL DEFAULT '',
			media_refs TEXT,
			requires_review BOOLEAN NOT NULL DEFAULT FALSE,
			disposition ENUM('pending', 'verified', 'rejected') NOT NULL DEFAULT 'pending',
			reward_issued BOOLEAN NOT NULL DEFAULT FALSE,
			INDEX id_index (id),
			INDEX status_index (status),
			INDEX category_index (category),
			INDEX priority_index (priority),
			INDEX coords_index (latitude, longitude)
		)`,
		`CREATE TABLE IF NOT EXISTS report_analysis (
			seq INT NOT NULL PRIMARY KEY,
			confidence FLOAT NOT NULL DEFAULT 0.0,
			crime_type ENUM('SEXUAL_VIOLENCE', 'DOMESTIC_VIOLENCE', 'STREET_CRIMES',
				'MOB_VIOLENCE_LYNCHING', 'ROAD_RAGE_INCIDENTS', 'CYBERCRIMES',
				'DRUG', 'OTHER') NOT NULL DEFAULT 'OTHER',
			severity ENUM('LOW', 'MEDIUM', 'HIGH', 'CRITICAL') NOT NULL DEFAULT 'LOW',
			description TEXT,
			risk_factors TEXT,
			recommendations TEXT,
			entities TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS report_verification (
			seq INT NOT NULL PRIMARY KEY,
			verified_by VARCHAR(255) NOT NULL,
			verified_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			is_verified BOOLEAN NOT NULL,
			confidence FLOAT NOT NULL DEFAULT 0.0,
			notes TEXT,
			requires_follow_up BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS report_rewards (
			id INT AUTO_INCREMENT PRIMARY KEY,
			report_seq INT NOT NULL,
			recipient VARCHAR(42) NOT NULL,
			amount FLOAT NOT NULL,
			tx_hash VARCHAR(80) NOT NULL DEFAULT '',
			explorer_url VARCHAR(255) NOT NULL DEFAULT '',
			status ENUM('sent', 'failed') NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			INDEX report_seq_index (report_seq)
		)`,
	}

	for _, query := range queries {
		if _, err := d.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	log.Info("crimewatch tables created/verified successfully")
	return nil
}

// columnExists checks if a column exists in a table
func (d *Database) columnExists(tableName, columnName string) (bool, error) {
	query := `
	SELECT COUNT(*)
	FROM INFORMATION_SCHEMA.COLUMNS
	WHERE TABLE_SCHEMA = DATABASE()
	AND TABLE_NAME = ?
	AND COLUMN_NAME = ?`

	var count int
	err := d.db.QueryRow(query, tableName, columnName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check if column exists: %w", err)
	}

	return count > 0, nil
}

// MigrateReportsTable adds columns introduced after the first release to
// existing deployments.
func (d *Database) MigrateReportsTable() error {
	migrations := []struct {
		column string
		ddl    string
	}{
		{"wallet", "ALTER TABLE reports ADD COLUMN wallet VARCHAR(42) NOT NULL DEFAULT ''"},
		{"requires_review", "ALTER TABLE reports ADD COLUMN requires_review BOOLEAN NOT NULL DEFAULT FALSE"},
		{"disposition", "ALTER TABLE reports ADD COLUMN disposition ENUM('pending', 'verified', 'rejected') NOT NULL DEFAULT 'pending'"},
		{"reward_issued", "ALTER TABLE reports ADD COLUMN reward_issued BOOLEAN NOT NULL DEFAULT FALSE"},
	}

	for _, m := range migrations {
		exists, err := d.columnExists("reports", m.column)
		if err != nil {
			return fmt.Errorf("failed to check if %s column exists: %w", m.column, err)
		}
		if exists {
			log.Infof("%s column already exists in reports table, skipping migration", m.column)
			continue
		}
		log.Infof("Adding %s column to reports table...", m.column)
		if _, err := d.db.Exec(m.ddl); err != nil {
			return fmt.Errorf("failed to add %s column: %w", m.column, err)
		}
		log.Infof("Successfully added %s column to reports table", m.column)
	}

	return nil
}
