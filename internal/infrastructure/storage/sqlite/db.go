package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// OpenDB 打开 sqlite 数据库连接并初始化表结构
func OpenDB(dbPath string) (*sql.DB, error) {
	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// initSchema 创建五张逻辑表
// 唯一性约束与 pgvector 后端保持一致：(video_id, chunk_index) 和 (video_id, timestamp)
func initSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS transcript_chunks (
			video_id INTEGER NOT NULL,
			chunk_index INTEGER NOT NULL,
			start_time REAL NOT NULL,
			end_time REAL NOT NULL,
			content TEXT NOT NULL,
			embedding TEXT,
			PRIMARY KEY (video_id, chunk_index)
		);`,
		`CREATE TABLE IF NOT EXISTS frame_descriptions (
			video_id INTEGER NOT NULL,
			timestamp REAL NOT NULL,
			image_path TEXT NOT NULL,
			description TEXT,
			PRIMARY KEY (video_id, timestamp)
		);`,
		`CREATE TABLE IF NOT EXISTS processing_records (
			video_id INTEGER PRIMARY KEY,
			status TEXT NOT NULL,
			error_message TEXT,
			created_at INTEGER NOT NULL,
			processed_at INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS chat_exchanges (
			id TEXT PRIMARY KEY,
			video_id INTEGER NOT NULL,
			user_id TEXT,
			message TEXT NOT NULL,
			response TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chat_exchanges_video ON chat_exchanges(video_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS usage_records (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			endpoint TEXT NOT NULL,
			tokens_used INTEGER NOT NULL,
			cost REAL NOT NULL,
			created_at INTEGER NOT NULL
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}
