package database

import (
	"database/sql"

	"github.com/sirupsen/logrus"

	"friendgraph/config"

	_ "github.com/go-sql-driver/mysql"
)

var DB *sql.DB

func Connect() error {
	var err error
	DB, err = sql.Open("mysql", config.Cfg.MysqlDSN)
	if err != nil {
		return err
	}

	if err = DB.Ping(); err != nil {
		return err
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(5)

	logrus.Info("Database connected successfully")
	return nil
}

func Close() {
	if DB != nil {
		DB.Close()
	}
}

func CreateTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id          VARCHAR(36) PRIMARY KEY,
			username    VARCHAR(50) NOT NULL,
			nickname    VARCHAR(100),
			password    VARCHAR(255) NOT NULL,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY uk_username (username)
		)`,
		`CREATE TABLE IF NOT EXISTS friend_requests (
			id           VARCHAR(36) PRIMARY KEY,
			from_user_id VARCHAR(36) NOT NULL,
			to_user_id   VARCHAR(36) NOT NULL,
			state        ENUM('pending', 'accepted', 'rejected', 'canceled') DEFAULT 'pending',
			created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_from_state (from_user_id, state),
			INDEX idx_to_state (to_user_id, state)
		)`,
		`CREATE TABLE IF NOT EXISTS friendships (
			id          VARCHAR(36) PRIMARY KEY,
			user_a      VARCHAR(36) NOT NULL,
			user_b      VARCHAR(36) NOT NULL,
			created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY uk_pair (user_a, user_b),
			INDEX idx_user_b (user_b)
		)`,
	}

	for _, table := range tables {
		if _, err := DB.Exec(table); err != nil {
			return err
		}
	}

	logrus.Info("Database tables created successfully")
	return nil
}
