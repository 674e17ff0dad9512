package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Config holds the connection parameters for the primary MySQL database.
type Config struct {
	User string
	Pass string // optional
	Host string
	Port string
	Name string
}

// dsn renders the driver DSN.  parseTime makes DATETIME columns scan into
// time.Time and loc=UTC keeps the ledger timestamps consistent across
// replicas.
func (c Config) dsn() string {
	auth := c.User
	if c.Pass != "" {
		auth = c.User + ":" + c.Pass
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, c.Host, c.Port, c.Name)
}

// Open connects to MySQL and verifies the connection.
func Open(cfg Config) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.dsn())
	if err != nil {
		return nil, err
	}

	// Pool sizing: admissions hold row locks only for the duration of one
	// short transaction, so a modest pool is enough.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}
