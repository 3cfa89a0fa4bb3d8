package postgres

import (
	"context"
	"fmt"
	"time"

	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/Zollege/peertube-plugin-aichat/internal/domain/knowledge"
	applog "github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/log"
)

// 确保 Store 实现了 knowledge.Store 接口
var _ knowledge.Store = (*Store)(nil)

// Store pgvector 原生向量存储实现
// 相似度检索走 `<=>` 余弦距离算子，由数据库索引加速
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore 建立连接池并初始化表结构
// 数据库须安装 pgvector 扩展，dim 为向量维度
func NewStore(ctx context.Context, connString string, dim int) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{
		pool:   pool,
		logger: applog.NewModuleLogger("storage", "postgres"),
	}

	if err := store.initSchema(ctx, dim); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// initSchema 创建五张逻辑表和向量索引
func (s *Store) initSchema(ctx context.Context, dim int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS transcript_chunks (
			video_id BIGINT NOT NULL,
			chunk_index INT NOT NULL,
			start_time DOUBLE PRECISION NOT NULL,
			end_time DOUBLE PRECISION NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d),
			PRIMARY KEY (video_id, chunk_index)
		)`, dim),
		`CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON transcript_chunks
			USING hnsw (embedding vector_cosine_ops)`,
		`CREATE TABLE IF NOT EXISTS frame_descriptions (
			video_id BIGINT NOT NULL,
			timestamp DOUBLE PRECISION NOT NULL,
			image_path TEXT NOT NULL,
			description TEXT,
			PRIMARY KEY (video_id, timestamp)
		)`,
		`CREATE TABLE IF NOT EXISTS processing_records (
			video_id BIGINT PRIMARY KEY,
			status TEXT NOT NULL,
			error_message TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			processed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS chat_exchanges (
			id UUID PRIMARY KEY,
			video_id BIGINT NOT NULL,
			user_id TEXT,
			message TEXT NOT NULL,
			response TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_exchanges_video ON chat_exchanges(video_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS usage_records (
			id UUID PRIMARY KEY,
			user_id TEXT,
			endpoint TEXT NOT NULL,
			tokens_used INT NOT NULL,
			cost DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

// UpsertChunk 按 (video_id, chunk_index) 插入或更新片段
func (s *Store) UpsertChunk(ctx context.Context, chunk *knowledge.TranscriptChunk) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transcript_chunks (video_id, chunk_index, start_time, end_time, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (video_id, chunk_index) DO UPDATE SET
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		chunk.VideoID,
		chunk.ChunkIndex,
		chunk.StartTime,
		chunk.EndTime,
		chunk.Text,
		toVector(chunk.Embedding),
	)
	return err
}

// UpsertChunks 批量写入片段
func (s *Store) UpsertChunks(ctx context.Context, chunks []*knowledge.TranscriptChunk) error {
	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		batch.Queue(`
			INSERT INTO transcript_chunks (video_id, chunk_index, start_time, end_time, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (video_id, chunk_index) DO UPDATE SET
				start_time = EXCLUDED.start_time,
				end_time = EXCLUDED.end_time,
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding`,
			chunk.VideoID,
			chunk.ChunkIndex,
			chunk.StartTime,
			chunk.EndTime,
			chunk.Text,
			toVector(chunk.Embedding),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < len(chunks); i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert chunk %d: %w", i, err)
		}
	}
	return nil
}

// SimilaritySearch 索引加速的余弦距离检索
// 得分相同时按序号升序，与兜底后端的排序语义一致
func (s *Store) SimilaritySearch(ctx context.Context, videoID int64, query []float32, k int) ([]*knowledge.ScoredChunk, error) {
	if len(query) == 0 {
		return nil, nil
	}

	queryVec := pgvector.NewVector(query)
	rows, err := s.pool.Query(ctx, `
		SELECT video_id, chunk_index, start_time, end_time, content, embedding,
		       1 - (embedding <=> $1) AS score
		FROM transcript_chunks
		WHERE video_id = $2 AND embedding IS NOT NULL
		ORDER BY embedding <=> $1, chunk_index
		LIMIT $3`,
		queryVec, videoID, k,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	var results []*knowledge.ScoredChunk
	for rows.Next() {
		var sc knowledge.ScoredChunk
		var embedding pgvector.Vector
		var score float64
		if err := rows.Scan(
			&sc.VideoID,
			&sc.ChunkIndex,
			&sc.StartTime,
			&sc.EndTime,
			&sc.Text,
			&embedding,
			&score,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		sc.Embedding = embedding.Slice()
		sc.Score = float32(score)
		results = append(results, &sc)
	}
	return results, rows.Err()
}

// UpsertFrame 按 (video_id, timestamp) 插入或更新帧描述
func (s *Store) UpsertFrame(ctx context.Context, frame *knowledge.FrameDescription) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO frame_descriptions (video_id, timestamp, image_path, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (video_id, timestamp) DO UPDATE SET
			image_path = EXCLUDED.image_path,
			description = EXCLUDED.description`,
		frame.VideoID,
		frame.Timestamp,
		frame.ImagePath,
		nullIfEmpty(frame.Description),
	)
	return err
}

// FramesInRange 闭区间范围查询，按时间戳升序
func (s *Store) FramesInRange(ctx context.Context, videoID int64, minTime, maxTime float64, limit int) ([]*knowledge.FrameDescription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT video_id, timestamp, image_path, COALESCE(description, '')
		FROM frame_descriptions
		WHERE video_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp
		LIMIT $4`,
		videoID, minTime, maxTime, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	var frames []*knowledge.FrameDescription
	for rows.Next() {
		var frame knowledge.FrameDescription
		if err := rows.Scan(&frame.VideoID, &frame.Timestamp, &frame.ImagePath, &frame.Description); err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		frames = append(frames, &frame)
	}
	return frames, rows.Err()
}

// SaveProcessing 插入或更新处理状态记录
func (s *Store) SaveProcessing(ctx context.Context, record *knowledge.ProcessingRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO processing_records (video_id, status, error_message, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (video_id) DO UPDATE SET
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message,
			processed_at = EXCLUDED.processed_at`,
		record.VideoID,
		record.Status,
		nullIfEmpty(record.ErrorMessage),
		record.CreatedAt,
		record.ProcessedAt,
	)
	return err
}

// GetProcessing 返回处理状态记录，不存在时返回 (nil, nil)
func (s *Store) GetProcessing(ctx context.Context, videoID int64) (*knowledge.ProcessingRecord, error) {
	var record knowledge.ProcessingRecord
	err := s.pool.QueryRow(ctx, `
		SELECT video_id, status, COALESCE(error_message, ''), created_at, processed_at
		FROM processing_records
		WHERE video_id = $1`,
		videoID,
	).Scan(&record.VideoID, &record.Status, &record.ErrorMessage, &record.CreatedAt, &record.ProcessedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get processing record: %w", err)
	}
	return &record, nil
}

// SaveExchange 追加问答记录
func (s *Store) SaveExchange(ctx context.Context, exchange *knowledge.ChatExchange) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_exchanges (id, video_id, user_id, message, response, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		exchange.ID,
		exchange.VideoID,
		nullIfEmpty(exchange.UserID),
		exchange.Message,
		exchange.Response,
		exchange.CreatedAt,
	)
	return err
}

// RecentExchanges 返回最近的问答记录，新的在前
func (s *Store) RecentExchanges(ctx context.Context, videoID int64, userID string, limit int) ([]*knowledge.ChatExchange, error) {
	query := `
		SELECT id, video_id, COALESCE(user_id, ''), message, response, created_at
		FROM chat_exchanges
		WHERE video_id = $1`
	args := []any{videoID}
	if userID != "" {
		query += ` AND user_id = $2 ORDER BY created_at DESC LIMIT $3`
		args = append(args, userID, limit)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	var exchanges []*knowledge.ChatExchange
	for rows.Next() {
		var ex knowledge.ChatExchange
		if err := rows.Scan(&ex.ID, &ex.VideoID, &ex.UserID, &ex.Message, &ex.Response, &ex.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		exchanges = append(exchanges, &ex)
	}
	return exchanges, rows.Err()
}

// SaveUsage 追加用量记录
func (s *Store) SaveUsage(ctx context.Context, usage *knowledge.UsageRecord) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO usage_records (id, user_id, endpoint, tokens_used, cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		usage.ID,
		nullIfEmpty(usage.UserID),
		usage.Endpoint,
		usage.TokensUsed,
		usage.Cost,
		usage.CreatedAt,
	)
	return err
}

// UsageSummary 按端点聚合用量
func (s *Store) UsageSummary(ctx context.Context) ([]*knowledge.UsageSummary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT endpoint, COUNT(*), COALESCE(SUM(tokens_used), 0), COALESCE(SUM(cost), 0)
		FROM usage_records
		GROUP BY endpoint
		ORDER BY endpoint`)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer rows.Close()

	var summaries []*knowledge.UsageSummary
	for rows.Next() {
		var us knowledge.UsageSummary
		if err := rows.Scan(&us.Endpoint, &us.Calls, &us.TokensUsed, &us.Cost); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		summaries = append(summaries, &us)
	}
	return summaries, rows.Err()
}

// DeleteVideo 删除视频的全部衍生数据，幂等
func (s *Store) DeleteVideo(ctx context.Context, videoID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, stmt := range []string{
		`DELETE FROM transcript_chunks WHERE video_id = $1`,
		`DELETE FROM frame_descriptions WHERE video_id = $1`,
		`DELETE FROM processing_records WHERE video_id = $1`,
		`DELETE FROM chat_exchanges WHERE video_id = $1`,
	} {
		if _, err := tx.Exec(ctx, stmt, videoID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Close 关闭连接池
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// toVector 转换为 pgvector 类型，nil 向量存 NULL
func toVector(embedding []float32) *pgvector.Vector {
	if len(embedding) == 0 {
		return nil
	}
	v := pgvector.NewVector(embedding)
	return &v
}

// nullIfEmpty 空字符串存 NULL
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
