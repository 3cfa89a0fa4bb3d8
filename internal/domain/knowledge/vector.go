package knowledge

import (
	"math"
	"sort"
)

// CosineSimilarity 计算两个向量的余弦相似度
// 长度不一致、空向量或任一侧为零向量时定义为 0，不返回错误也不产生 NaN
func CosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

// RankBySimilarity 对片段按与查询向量的余弦相似度排序并截取前 k 个
// 暴力检索兜底后端的核心：相似度降序，得分相同时按片段序号升序保证确定性；
// k 大于候选数时返回全部
func RankBySimilarity(chunks []*TranscriptChunk, query []float32, k int) []*ScoredChunk {
	scored := make([]*ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		if !c.HasEmbedding() {
			continue
		}
		scored = append(scored, &ScoredChunk{
			TranscriptChunk: *c,
			Score:           CosineSimilarity(query, c.Embedding),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ChunkIndex < scored[j].ChunkIndex
	})

	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
