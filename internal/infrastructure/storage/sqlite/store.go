package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"log/slog"

	"github.com/Zollege/peertube-plugin-aichat/internal/domain/knowledge"
	applog "github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/log"
)

// 确保 Store 实现了 knowledge.Store 接口
var _ knowledge.Store = (*Store)(nil)

// Store sqlite 兜底存储实现
// 向量以 JSON 数组存储，相似度检索在内存中暴力计算，
// 排序语义与 pgvector 后端完全一致
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore 创建 sqlite 存储实例
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:     db,
		logger: applog.NewModuleLogger("storage", "sqlite"),
	}
}

// UpsertChunk 按 (video_id, chunk_index) 插入或替换片段
func (s *Store) UpsertChunk(ctx context.Context, chunk *knowledge.TranscriptChunk) error {
	embedding, err := encodeEmbedding(chunk.Embedding)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO transcript_chunks (
			video_id, chunk_index, start_time, end_time, content, embedding
		) VALUES (?, ?, ?, ?, ?, ?)`,
		chunk.VideoID,
		chunk.ChunkIndex,
		chunk.StartTime,
		chunk.EndTime,
		chunk.Text,
		embedding,
	)
	return err
}

// UpsertChunks 批量写入片段
func (s *Store) UpsertChunks(ctx context.Context, chunks []*knowledge.TranscriptChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO transcript_chunks (
			video_id, chunk_index, start_time, end_time, content, embedding
		) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		embedding, err := encodeEmbedding(chunk.Embedding)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			chunk.VideoID,
			chunk.ChunkIndex,
			chunk.StartTime,
			chunk.EndTime,
			chunk.Text,
			embedding,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SimilaritySearch 加载视频的全部已向量化片段，在内存中按余弦相似度排序
func (s *Store) SimilaritySearch(ctx context.Context, videoID int64, query []float32, k int) ([]*knowledge.ScoredChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT video_id, chunk_index, start_time, end_time, content, embedding
		FROM transcript_chunks
		WHERE video_id = ? AND embedding IS NOT NULL
		ORDER BY chunk_index`,
		videoID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*knowledge.TranscriptChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return knowledge.RankBySimilarity(chunks, query, k), nil
}

// UpsertFrame 按 (video_id, timestamp) 插入或替换帧描述
func (s *Store) UpsertFrame(ctx context.Context, frame *knowledge.FrameDescription) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO frame_descriptions (
			video_id, timestamp, image_path, description
		) VALUES (?, ?, ?, ?)`,
		frame.VideoID,
		frame.Timestamp,
		frame.ImagePath,
		frame.Description,
	)
	return err
}

// FramesInRange 闭区间范围查询，按时间戳升序
func (s *Store) FramesInRange(ctx context.Context, videoID int64, minTime, maxTime float64, limit int) ([]*knowledge.FrameDescription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT video_id, timestamp, image_path, description
		FROM frame_descriptions
		WHERE video_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp
		LIMIT ?`,
		videoID, minTime, maxTime, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []*knowledge.FrameDescription
	for rows.Next() {
		var frame knowledge.FrameDescription
		var description sql.NullString
		if err := rows.Scan(&frame.VideoID, &frame.Timestamp, &frame.ImagePath, &description); err != nil {
			return nil, err
		}
		if description.Valid {
			frame.Description = description.String
		}
		frames = append(frames, &frame)
	}
	return frames, rows.Err()
}

// SaveProcessing 插入或更新处理状态记录
// 状态流转不改写首次入队的 created_at
func (s *Store) SaveProcessing(ctx context.Context, record *knowledge.ProcessingRecord) error {
	var processedAt sql.NullInt64
	if record.ProcessedAt != nil {
		processedAt = sql.NullInt64{Int64: record.ProcessedAt.Unix(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processing_records (
			video_id, status, error_message, created_at, processed_at
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			status = excluded.status,
			error_message = excluded.error_message,
			processed_at = excluded.processed_at`,
		record.VideoID,
		record.Status,
		record.ErrorMessage,
		record.CreatedAt.Unix(),
		processedAt,
	)
	return err
}

// GetProcessing 返回处理状态记录，不存在时返回 (nil, nil)
func (s *Store) GetProcessing(ctx context.Context, videoID int64) (*knowledge.ProcessingRecord, error) {
	var record knowledge.ProcessingRecord
	var errorMessage sql.NullString
	var createdAt int64
	var processedAt sql.NullInt64

	err := s.db.QueryRowContext(ctx, `
		SELECT video_id, status, error_message, created_at, processed_at
		FROM processing_records
		WHERE video_id = ?`,
		videoID,
	).Scan(&record.VideoID, &record.Status, &errorMessage, &createdAt, &processedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if errorMessage.Valid {
		record.ErrorMessage = errorMessage.String
	}
	record.CreatedAt = time.Unix(createdAt, 0)
	if processedAt.Valid {
		t := time.Unix(processedAt.Int64, 0)
		record.ProcessedAt = &t
	}
	return &record, nil
}

// SaveExchange 追加问答记录
func (s *Store) SaveExchange(ctx context.Context, exchange *knowledge.ChatExchange) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_exchanges (id, video_id, user_id, message, response, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		exchange.ID,
		exchange.VideoID,
		exchange.UserID,
		exchange.Message,
		exchange.Response,
		exchange.CreatedAt.UnixNano(),
	)
	return err
}

// RecentExchanges 返回最近的问答记录，新的在前
func (s *Store) RecentExchanges(ctx context.Context, videoID int64, userID string, limit int) ([]*knowledge.ChatExchange, error) {
	query := `
		SELECT id, video_id, user_id, message, response, created_at
		FROM chat_exchanges
		WHERE video_id = ?`
	args := []any{videoID}
	if userID != "" {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exchanges []*knowledge.ChatExchange
	for rows.Next() {
		var ex knowledge.ChatExchange
		var userID sql.NullString
		var createdAt int64
		if err := rows.Scan(&ex.ID, &ex.VideoID, &userID, &ex.Message, &ex.Response, &createdAt); err != nil {
			return nil, err
		}
		if userID.Valid {
			ex.UserID = userID.String
		}
		ex.CreatedAt = time.Unix(0, createdAt)
		exchanges = append(exchanges, &ex)
	}
	return exchanges, rows.Err()
}

// SaveUsage 追加用量记录
func (s *Store) SaveUsage(ctx context.Context, usage *knowledge.UsageRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_records (id, user_id, endpoint, tokens_used, cost, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		usage.ID,
		usage.UserID,
		usage.Endpoint,
		usage.TokensUsed,
		usage.Cost,
		usage.CreatedAt.UnixNano(),
	)
	return err
}

// UsageSummary 按端点聚合用量
func (s *Store) UsageSummary(ctx context.Context) ([]*knowledge.UsageSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT endpoint, COUNT(*), SUM(tokens_used), SUM(cost)
		FROM usage_records
		GROUP BY endpoint
		ORDER BY endpoint`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*knowledge.UsageSummary
	for rows.Next() {
		var s knowledge.UsageSummary
		if err := rows.Scan(&s.Endpoint, &s.Calls, &s.TokensUsed, &s.Cost); err != nil {
			return nil, err
		}
		summaries = append(summaries, &s)
	}
	return summaries, rows.Err()
}

// DeleteVideo 删除视频的全部衍生数据，幂等
func (s *Store) DeleteVideo(ctx context.Context, videoID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM transcript_chunks WHERE video_id = ?`,
		`DELETE FROM frame_descriptions WHERE video_id = ?`,
		`DELETE FROM processing_records WHERE video_id = ?`,
		`DELETE FROM chat_exchanges WHERE video_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, videoID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	return s.db.Close()
}

// encodeEmbedding 向量编码为 JSON 数组文本，nil 向量存 NULL
func encodeEmbedding(embedding []float32) (sql.NullString, error) {
	if len(embedding) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(embedding)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// scanChunk 扫描单行片段数据
func scanChunk(rows *sql.Rows) (*knowledge.TranscriptChunk, error) {
	var chunk knowledge.TranscriptChunk
	var embedding sql.NullString

	if err := rows.Scan(
		&chunk.VideoID,
		&chunk.ChunkIndex,
		&chunk.StartTime,
		&chunk.EndTime,
		&chunk.Text,
		&embedding,
	); err != nil {
		return nil, err
	}

	if embedding.Valid {
		if err := json.Unmarshal([]byte(embedding.String), &chunk.Embedding); err != nil {
			return nil, err
		}
	}
	return &chunk, nil
}
