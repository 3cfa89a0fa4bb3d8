package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	t.Run("相同向量相似度为 1", func(t *testing.T) {
		v := []float32{1, 2, 3}
		assert.InDelta(t, 1.0, CosineSimilarity(v, v), 1e-6)
	})

	t.Run("正交向量相似度为 0", func(t *testing.T) {
		a := []float32{1, 0}
		b := []float32{0, 1}
		assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-6)
	})

	t.Run("零向量相似度为 0 而非 NaN", func(t *testing.T) {
		a := []float32{1, 2, 3}
		zero := []float32{0, 0, 0}
		assert.Equal(t, float32(0), CosineSimilarity(a, zero))
		assert.Equal(t, float32(0), CosineSimilarity(zero, zero))
	})

	t.Run("维度不一致相似度为 0", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{1, 2}
		assert.Equal(t, float32(0), CosineSimilarity(a, b))
	})

	t.Run("空向量相似度为 0", func(t *testing.T) {
		assert.Equal(t, float32(0), CosineSimilarity(nil, nil))
		assert.Equal(t, float32(0), CosineSimilarity([]float32{}, []float32{}))
	})
}

func TestRankBySimilarity(t *testing.T) {
	makeChunks := func(embeddings ...[]float32) []*TranscriptChunk {
		chunks := make([]*TranscriptChunk, len(embeddings))
		for i, e := range embeddings {
			chunks[i] = &TranscriptChunk{VideoID: 1, ChunkIndex: i, Embedding: e}
		}
		return chunks
	}

	t.Run("按相似度降序返回 k 个", func(t *testing.T) {
		chunks := makeChunks(
			[]float32{0, 1},   // 与查询正交
			[]float32{1, 0},   // 与查询同向
			[]float32{1, 1},   // 中间
		)
		query := []float32{1, 0}

		results := RankBySimilarity(chunks, query, 2)
		assert.Len(t, results, 2)
		assert.Equal(t, 1, results[0].ChunkIndex)
		assert.Equal(t, 2, results[1].ChunkIndex)
		assert.True(t, results[0].Score >= results[1].Score)
	})

	t.Run("k 大于候选数时返回全部", func(t *testing.T) {
		chunks := makeChunks([]float32{1, 0}, []float32{0, 1})
		results := RankBySimilarity(chunks, []float32{1, 0}, 10)
		assert.Len(t, results, 2)
	})

	t.Run("无向量的片段被排除", func(t *testing.T) {
		chunks := makeChunks([]float32{1, 0}, nil, []float32{0, 1})
		results := RankBySimilarity(chunks, []float32{1, 0}, 10)
		assert.Len(t, results, 2)
	})

	t.Run("得分相同时按序号升序", func(t *testing.T) {
		// 三个相同向量，得分一致，顺序必须稳定为原始序号
		chunks := makeChunks([]float32{1, 1}, []float32{1, 1}, []float32{1, 1})
		results := RankBySimilarity(chunks, []float32{1, 1}, 3)
		assert.Equal(t, 0, results[0].ChunkIndex)
		assert.Equal(t, 1, results[1].ChunkIndex)
		assert.Equal(t, 2, results[2].ChunkIndex)
	})

	t.Run("零查询向量不报错", func(t *testing.T) {
		chunks := makeChunks([]float32{1, 0}, []float32{0, 1})
		results := RankBySimilarity(chunks, []float32{0, 0}, 2)
		assert.Len(t, results, 2)
		for _, r := range results {
			assert.Equal(t, float32(0), r.Score)
		}
	})
}
