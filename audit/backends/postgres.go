package backends

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/orglens/orgsync/audit"
)

// PostgresStore persists records in PostgreSQL
type PostgresStore struct {
	db         *sql.DB
	config     *PostgresConfig
	tableName  string
	configured bool
}

// PostgresConfig contains PostgreSQL store configuration
type PostgresConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	Database     string `json:"database"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	SSLMode      string `json:"ssl_mode"`
	Schema       string `json:"schema"`
	TableName    string `json:"table_name"`
	ConnTimeout  int    `json:"conn_timeout"`
	MaxConns     int    `json:"max_conns"`
	MaxIdleConns int    `json:"max_idle_conns"`
}

// NewPostgresStore creates a new PostgreSQL store
func NewPostgresStore() *PostgresStore {
	return &PostgresStore{
		tableName: "orgsync_runs",
	}
}

// Configure sets up the PostgreSQL store
func (s *PostgresStore) Configure(ctx context.Context, config map[string]interface{}) error {
	pgConfig, err := parsePostgresConfig(config)
	if err != nil {
		return fmt.Errorf("invalid PostgreSQL configuration: %w", err)
	}

	s.config = pgConfig

	if pgConfig.TableName != "" {
		s.tableName = pgConfig.TableName
	}

	db, err := sql.Open("postgres", s.buildConnectionString())
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if pgConfig.MaxConns > 0 {
		db.SetMaxOpenConns(pgConfig.MaxConns)
	}
	if pgConfig.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pgConfig.MaxIdleConns)
	}
	if pgConfig.ConnTimeout > 0 {
		db.SetConnMaxLifetime(time.Duration(pgConfig.ConnTimeout) * time.Second)
	}

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	s.db = db

	if err := s.createTables(ctx); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	s.configured = true
	return nil
}

// Put stores a record by id, replacing any previous record with the
// same id
func (s *PostgresStore) Put(ctx context.Context, record *audit.Record) error {
	if !s.configured {
		return fmt.Errorf("store not configured")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s.%s (id, kind, subject, source_label, target_label, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id)
		DO UPDATE SET
			kind = EXCLUDED.kind,
			subject = EXCLUDED.subject,
			source_label = EXCLUDED.source_label,
			target_label = EXCLUDED.target_label,
			payload = EXCLUDED.payload,
			created_at = EXCLUDED.created_at`,
		s.config.Schema, s.tableName)

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		string(record.Kind),
		record.Subject,
		record.SourceLabel,
		record.TargetLabel,
		[]byte(record.Payload),
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}

// Get retrieves a record by id
func (s *PostgresStore) Get(ctx context.Context, id string) (*audit.Record, error) {
	if !s.configured {
		return nil, fmt.Errorf("store not configured")
	}

	query := fmt.Sprintf(`
		SELECT kind, subject, source_label, target_label, payload, created_at
		FROM %s.%s
		WHERE id = $1`,
		s.config.Schema, s.tableName)

	record := &audit.Record{ID: id}
	var kind string
	var payload []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&kind,
		&record.Subject,
		&record.SourceLabel,
		&record.TargetLabel,
		&payload,
		&record.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("record '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to load record: %w", err)
	}

	record.Kind = audit.Kind(kind)
	record.Payload = payload
	return record, nil
}

// List lists all stored record ids
func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	if !s.configured {
		return nil, fmt.Errorf("store not configured")
	}

	query := fmt.Sprintf(`SELECT id FROM %s.%s ORDER BY id`, s.config.Schema, s.tableName)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan record id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over results: %w", err)
	}

	return ids, nil
}

// Delete removes a record by id
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if !s.configured {
		return fmt.Errorf("store not configured")
	}

	query := fmt.Sprintf(`DELETE FROM %s.%s WHERE id = $1`, s.config.Schema, s.tableName)

	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// Close releases the database connection pool
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresStore) buildConnectionString() string {
	config := s.config

	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 5432
	}
	if config.SSLMode == "" {
		config.SSLMode = "prefer"
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.Username, config.Password, config.Database, config.SSLMode)
}

func (s *PostgresStore) createTables(ctx context.Context) error {
	if s.config.Schema != "" && s.config.Schema != "public" {
		createSchema := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", s.config.Schema)
		if _, err := s.db.ExecContext(ctx, createSchema); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s.%s (
			id VARCHAR(255) PRIMARY KEY,
			kind VARCHAR(32) NOT NULL,
			subject VARCHAR(255) NOT NULL,
			source_label VARCHAR(255),
			target_label VARCHAR(255),
			payload JSONB NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`, s.config.Schema, s.tableName)

	if _, err := s.db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("failed to create record table: %w", err)
	}

	createIndexes := []string{
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_kind ON %s.%s (kind)",
			s.tableName, s.config.Schema, s.tableName),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s.%s (created_at)",
			s.tableName, s.config.Schema, s.tableName),
	}

	for _, indexSQL := range createIndexes {
		// Index creation is best-effort; the table is what matters.
		s.db.ExecContext(ctx, indexSQL)
	}

	return nil
}

func parsePostgresConfig(config map[string]interface{}) (*PostgresConfig, error) {
	cfg := &PostgresConfig{
		Schema: "public",
	}

	if host, ok := config["host"].(string); ok {
		cfg.Host = host
	}

	if port, ok := config["port"].(float64); ok {
		cfg.Port = int(port)
	} else if port, ok := config["port"].(int); ok {
		cfg.Port = port
	}

	if database, ok := config["database"].(string); ok {
		cfg.Database = database
	}

	if username, ok := config["username"].(string); ok {
		cfg.Username = username
	}

	if password, ok := config["password"].(string); ok {
		cfg.Password = password
	}

	if sslMode, ok := config["ssl_mode"].(string); ok {
		cfg.SSLMode = sslMode
	}

	if schema, ok := config["schema"].(string); ok {
		cfg.Schema = schema
	}

	if tableName, ok := config["table_name"].(string); ok {
		cfg.TableName = tableName
	}

	if connTimeout, ok := config["conn_timeout"].(float64); ok {
		cfg.ConnTimeout = int(connTimeout)
	} else if connTimeout, ok := config["conn_timeout"].(int); ok {
		cfg.ConnTimeout = connTimeout
	}

	if maxConns, ok := config["max_conns"].(float64); ok {
		cfg.MaxConns = int(maxConns)
	} else if maxConns, ok := config["max_conns"].(int); ok {
		cfg.MaxConns = maxConns
	}

	if maxIdleConns, ok := config["max_idle_conns"].(float64); ok {
		cfg.MaxIdleConns = int(maxIdleConns)
	} else if maxIdleConns, ok := config["max_idle_conns"].(int); ok {
		cfg.MaxIdleConns = maxIdleConns
	}

	if cfg.Database == "" {
		return nil, fmt.Errorf("database name is required")
	}

	if cfg.Username == "" {
		return nil, fmt.Errorf("username is required")
	}

	return cfg, nil
}
