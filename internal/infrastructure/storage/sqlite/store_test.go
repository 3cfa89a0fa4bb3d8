package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zollege/peertube-plugin-aichat/internal/domain/knowledge"
)

// setupTestStore 创建临时测试数据库
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "aichat_test_*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	db, err := OpenDB(filepath.Join(tmpDir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStore(db)
}

func chunk(videoID int64, index int, start, end float64, text string, embedding []float32) *knowledge.TranscriptChunk {
	return &knowledge.TranscriptChunk{
		VideoID:    videoID,
		ChunkIndex: index,
		StartTime:  start,
		EndTime:    end,
		Text:       text,
		Embedding:  embedding,
	}
}

func TestStore_UpsertChunk_NoDuplicates(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// 重复写入同一 (video_id, chunk_index)，应覆盖而非新增
	require.NoError(t, store.UpsertChunk(ctx, chunk(1, 0, 0, 30, "first", []float32{1, 0})))
	require.NoError(t, store.UpsertChunk(ctx, chunk(1, 0, 0, 30, "replaced", []float32{0, 1})))

	results, err := store.SimilaritySearch(ctx, 1, []float32{0, 1}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1, "重复 upsert 不应产生重复行")
	assert.Equal(t, "replaced", results[0].Text)
}

func TestStore_UpsertChunks_Reingest(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	batch := []*knowledge.TranscriptChunk{
		chunk(1, 0, 0, 30, "a", []float32{1, 0}),
		chunk(1, 1, 30, 60, "b", []float32{0, 1}),
	}
	require.NoError(t, store.UpsertChunks(ctx, batch))
	// 重复摄取同一批数据
	require.NoError(t, store.UpsertChunks(ctx, batch))

	results, err := store.SimilaritySearch(ctx, 1, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestStore_SimilaritySearch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertChunks(ctx, []*knowledge.TranscriptChunk{
		chunk(1, 0, 0, 30, "orthogonal", []float32{0, 1}),
		chunk(1, 1, 30, 60, "aligned", []float32{1, 0}),
		chunk(1, 2, 60, 90, "partial", []float32{1, 1}),
	}))
	// 无向量的片段不参与检索
	require.NoError(t, store.UpsertChunk(ctx, chunk(1, 3, 90, 120, "no embedding", nil)))
	// 其他视频的片段隔离
	require.NoError(t, store.UpsertChunk(ctx, chunk(2, 0, 0, 30, "other video", []float32{1, 0})))

	t.Run("按相似度降序返回 k 个", func(t *testing.T) {
		results, err := store.SimilaritySearch(ctx, 1, []float32{1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "aligned", results[0].Text)
		assert.Equal(t, "partial", results[1].Text)
	})

	t.Run("k 大于候选数返回全部", func(t *testing.T) {
		results, err := store.SimilaritySearch(ctx, 1, []float32{1, 0}, 100)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("零向量查询不报错", func(t *testing.T) {
		results, err := store.SimilaritySearch(ctx, 1, []float32{0, 0}, 5)
		require.NoError(t, err)
		assert.Len(t, results, 3)
		for _, r := range results {
			assert.Equal(t, float32(0), r.Score)
		}
	})

	t.Run("无数据视频返回空", func(t *testing.T) {
		results, err := store.SimilaritySearch(ctx, 999, []float32{1, 0}, 5)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestStore_Frames(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	frames := []*knowledge.FrameDescription{
		{VideoID: 1, Timestamp: 0, ImagePath: "f0.jpg", Description: "intro slide"},
		{VideoID: 1, Timestamp: 5, ImagePath: "f5.jpg", Description: "speaker"},
		{VideoID: 1, Timestamp: 10, ImagePath: "f10.jpg"},
		{VideoID: 1, Timestamp: 15, ImagePath: "f15.jpg", Description: "diagram"},
	}
	for _, f := range frames {
		require.NoError(t, store.UpsertFrame(ctx, f))
	}

	t.Run("闭区间查询按时间升序", func(t *testing.T) {
		got, err := store.FramesInRange(ctx, 1, 5, 15, 10)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, float64(5), got[0].Timestamp)
		assert.Equal(t, float64(15), got[2].Timestamp)
	})

	t.Run("limit 生效", func(t *testing.T) {
		got, err := store.FramesInRange(ctx, 1, 0, 100, 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("重复时间戳覆盖描述", func(t *testing.T) {
		require.NoError(t, store.UpsertFrame(ctx, &knowledge.FrameDescription{
			VideoID: 1, Timestamp: 10, ImagePath: "f10.jpg", Description: "filled later",
		}))
		got, err := store.FramesInRange(ctx, 1, 10, 10, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "filled later", got[0].Description)
	})
}

func TestStore_Processing(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("不存在时返回 nil nil", func(t *testing.T) {
		record, err := store.GetProcessing(ctx, 1)
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("保存和读取", func(t *testing.T) {
		now := time.Now()
		require.NoError(t, store.SaveProcessing(ctx, &knowledge.ProcessingRecord{
			VideoID:   1,
			Status:    knowledge.StatusPending,
			CreatedAt: now,
		}))

		record, err := store.GetProcessing(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, knowledge.StatusPending, record.Status)
		assert.Nil(t, record.ProcessedAt)

		// 状态推进覆盖同一条记录
		processedAt := now.Add(time.Minute)
		require.NoError(t, store.SaveProcessing(ctx, &knowledge.ProcessingRecord{
			VideoID:     1,
			Status:      knowledge.StatusCompleted,
			CreatedAt:   now,
			ProcessedAt: &processedAt,
		}))

		record, err = store.GetProcessing(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, knowledge.StatusCompleted, record.Status)
		require.NotNil(t, record.ProcessedAt)
	})

	t.Run("状态流转保留首次入队时间", func(t *testing.T) {
		enqueued := time.Now().Add(-time.Hour)
		require.NoError(t, store.SaveProcessing(ctx, &knowledge.ProcessingRecord{
			VideoID:   2,
			Status:    knowledge.StatusPending,
			CreatedAt: enqueued,
		}))

		require.NoError(t, store.SaveProcessing(ctx, &knowledge.ProcessingRecord{
			VideoID:   2,
			Status:    knowledge.StatusProcessing,
			CreatedAt: time.Now(),
		}))

		record, err := store.GetProcessing(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, knowledge.StatusProcessing, record.Status)
		assert.Equal(t, enqueued.Unix(), record.CreatedAt.Unix())
	})
}

func TestStore_Exchanges(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 5; i++ {
		userID := ""
		if i%2 == 0 {
			userID = "u1"
		}
		require.NoError(t, store.SaveExchange(ctx, &knowledge.ChatExchange{
			ID:        string(rune('a' + i)),
			VideoID:   1,
			UserID:    userID,
			Message:   "q",
			Response:  "a",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	t.Run("新的在前", func(t *testing.T) {
		got, err := store.RecentExchanges(ctx, 1, "", 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "e", got[0].ID)
		assert.Equal(t, "c", got[2].ID)
	})

	t.Run("按用户过滤", func(t *testing.T) {
		got, err := store.RecentExchanges(ctx, 1, "u1", 10)
		require.NoError(t, err)
		assert.Len(t, got, 3)
		for _, ex := range got {
			assert.Equal(t, "u1", ex.UserID)
		}
	})
}

func TestStore_Usage(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveUsage(ctx, &knowledge.UsageRecord{
		ID: "u1", Endpoint: "chat", TokensUsed: 100, Cost: 0.002, CreatedAt: time.Now(),
	}))
	require.NoError(t, store.SaveUsage(ctx, &knowledge.UsageRecord{
		ID: "u2", Endpoint: "chat", TokensUsed: 50, Cost: 0.001, CreatedAt: time.Now(),
	}))
	require.NoError(t, store.SaveUsage(ctx, &knowledge.UsageRecord{
		ID: "u3", Endpoint: "embedding", TokensUsed: 10, Cost: 0.0001, CreatedAt: time.Now(),
	}))

	summaries, err := store.UsageSummary(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "chat", summaries[0].Endpoint)
	assert.Equal(t, 2, summaries[0].Calls)
	assert.Equal(t, 150, summaries[0].TokensUsed)
}

func TestStore_DeleteVideo(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertChunk(ctx, chunk(1, 0, 0, 30, "a", []float32{1, 0})))
	require.NoError(t, store.UpsertFrame(ctx, &knowledge.FrameDescription{VideoID: 1, Timestamp: 0, ImagePath: "f.jpg"}))
	require.NoError(t, store.SaveProcessing(ctx, &knowledge.ProcessingRecord{
		VideoID: 1, Status: knowledge.StatusCompleted, CreatedAt: time.Now(),
	}))

	require.NoError(t, store.DeleteVideo(ctx, 1))

	chunks, err := store.SimilaritySearch(ctx, 1, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	record, err := store.GetProcessing(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, record)

	// 幂等：重复删除不报错
	require.NoError(t, store.DeleteVideo(ctx, 1))
}
