package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zollege/peertube-plugin-aichat/internal/domain/catalog"
	"github.com/Zollege/peertube-plugin-aichat/internal/domain/knowledge"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/config"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/scheduler"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/storage/sqlite"
)

// recordingStore 包装存储并记录状态流转顺序
type recordingStore struct {
	knowledge.Store
	mu          sync.Mutex
	transitions []string
}

func (r *recordingStore) SaveProcessing(ctx context.Context, record *knowledge.ProcessingRecord) error {
	r.mu.Lock()
	r.transitions = append(r.transitions, record.Status)
	r.mu.Unlock()
	return r.Store.SaveProcessing(ctx, record)
}

func (r *recordingStore) statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.transitions...)
}

// fakeCatalog 可编程的目录假实现
type fakeCatalog struct {
	mu     sync.Mutex
	videos map[int64]*catalog.VideoAsset
	vtt    string
}

func (f *fakeCatalog) GetVideo(ctx context.Context, id int64) (*catalog.VideoAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset, ok := f.videos[id]
	if !ok {
		return nil, fmt.Errorf("video %d not found", id)
	}
	copied := *asset
	return &copied, nil
}

func (f *fakeCatalog) ListRelated(ctx context.Context, excludingID int64, limit int) ([]*catalog.RelatedVideo, error) {
	return nil, nil
}

func (f *fakeCatalog) DownloadCaption(ctx context.Context, url string) (string, error) {
	return f.vtt, nil
}

func (f *fakeCatalog) setVideo(asset *catalog.VideoAsset) {
	f.mu.Lock()
	f.videos[asset.ID] = asset
	f.mu.Unlock()
}

type fakeEmbedder struct {
	calls int
	err   error
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i + 1), 1}
	}
	return vectors, nil
}

type fakeDescriber struct{}

func (f *fakeDescriber) DescribeImage(ctx context.Context, imagePath string) (string, error) {
	return "画面: " + imagePath, nil
}

type fakeExtractor struct{}

func (f *fakeExtractor) ExtractFrames(ctx context.Context, videoID int64, playbackURL string, timestamps []float64) (map[float64]string, error) {
	extracted := make(map[float64]string, len(timestamps))
	for _, ts := range timestamps {
		extracted[ts] = fmt.Sprintf("/frames/%d/%.0f.jpg", videoID, ts)
	}
	return extracted, nil
}

type orchestratorFixture struct {
	orch    *Orchestrator
	store   *recordingStore
	catalog *fakeCatalog
	sched   *scheduler.SimulatedScheduler
	embed   *fakeEmbedder
}

// trigger 触发摄取并推进虚拟时钟，执行入队的首次就绪检查
func (f *orchestratorFixture) trigger(t *testing.T, videoID int64) {
	t.Helper()
	require.NoError(t, f.orch.Trigger(context.Background(), videoID))
	f.sched.Advance(0)
}

func setupOrchestrator(t *testing.T) *orchestratorFixture {
	t.Helper()

	db, err := sqlite.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := &recordingStore{Store: sqlite.NewStore(db)}
	cat := &fakeCatalog{
		videos: make(map[int64]*catalog.VideoAsset),
		vtt:    sampleVTT,
	}
	sched := scheduler.NewSimulatedScheduler()
	embed := &fakeEmbedder{}

	cfg := config.Default()
	cfg.Ingest.FrameIntervalSeconds = 20
	cfg.Ingest.MaxFrames = 3

	return &orchestratorFixture{
		orch:    NewOrchestrator(store, cat, embed, &fakeDescriber{}, &fakeExtractor{}, sched, cfg),
		store:   store,
		catalog: cat,
		sched:   sched,
		embed:   embed,
	}
}

func readyVideo(id int64) *catalog.VideoAsset {
	return &catalog.VideoAsset{
		ID:          id,
		Name:        "测试视频",
		Duration:    60,
		State:       catalog.VideoStatePublished,
		PlaybackURL: "https://peertube.example/hls/master.m3u8",
		Captions:    []catalog.Caption{{Language: "zh", URL: "https://peertube.example/cap.vtt"}},
	}
}

func TestOrchestrator_HappyPath(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	f.catalog.setVideo(readyVideo(1))

	f.trigger(t, 1)

	// 状态流转不跳过 processing
	assert.Equal(t, []string{
		knowledge.StatusPending,
		knowledge.StatusProcessing,
		knowledge.StatusCompleted,
	}, f.store.statuses())

	record, err := f.store.GetProcessing(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.True(t, record.IsCompleted())
	assert.NotNil(t, record.ProcessedAt)

	// 片段已向量化入库
	chunks, err := f.store.SimilaritySearch(ctx, 1, []float32{1, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	// 帧描述已入库（60 秒、每 20 秒、上限 3 → 20s 40s 两帧）
	frames, err := f.store.FramesInRange(ctx, 1, 0, 60, 10)
	require.NoError(t, err)
	assert.Len(t, frames, 2)
	assert.NotEmpty(t, frames[0].Description)
}

func TestOrchestrator_TriggerDefersPipeline(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	f.catalog.setVideo(readyVideo(1))

	// 入队即返回，流水线不在调用方的执行路径上运行
	require.NoError(t, f.orch.Trigger(ctx, 1))

	record, err := f.store.GetProcessing(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, knowledge.StatusPending, record.Status)
	assert.Equal(t, 1, f.sched.Pending())

	chunks, err := f.store.SimilaritySearch(ctx, 1, []float32{1, 1}, 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	// 调度器驱动后走完流水线
	f.sched.Advance(0)
	record, err = f.store.GetProcessing(ctx, 1)
	require.NoError(t, err)
	assert.True(t, record.IsCompleted())
}

func TestOrchestrator_NotReadyBackoffThenSuccess(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()

	asset := readyVideo(1)
	asset.State = catalog.VideoStateToTranscode
	asset.PlaybackURL = ""
	f.catalog.setVideo(asset)

	f.trigger(t, 1)

	record, err := f.store.GetProcessing(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, knowledge.StatusPending, record.Status)
	assert.Equal(t, 1, f.sched.Pending())

	// 第一次重试仍未就绪
	f.sched.Advance(30 * time.Second)
	record, _ = f.store.GetProcessing(ctx, 1)
	assert.Equal(t, knowledge.StatusPending, record.Status)

	// 转码完成后下一次重试走完流水线
	f.catalog.setVideo(readyVideo(1))
	f.sched.Advance(60 * time.Second)

	record, err = f.store.GetProcessing(ctx, 1)
	require.NoError(t, err)
	assert.True(t, record.IsCompleted())
}

func TestOrchestrator_NotReadyExhaustsRetries(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()

	asset := readyVideo(1)
	asset.State = catalog.VideoStateToTranscode
	f.catalog.setVideo(asset)

	f.trigger(t, 1)

	// 30+60+120+300+600 秒的退避窗口全部用尽
	f.sched.Advance(600 * time.Second)
	f.sched.Advance(600 * time.Second)

	record, err := f.store.GetProcessing(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, knowledge.StatusError, record.Status)
	assert.NotEmpty(t, record.ErrorMessage)
	assert.Zero(t, f.sched.Pending())
}

func TestOrchestrator_CaptionPolling(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()

	asset := readyVideo(1)
	asset.Captions = nil
	f.catalog.setVideo(asset)

	f.trigger(t, 1)

	// 帧阶段已完成，字幕阶段进入轮询
	record, _ := f.store.GetProcessing(ctx, 1)
	assert.Equal(t, knowledge.StatusProcessing, record.Status)
	assert.Equal(t, 1, f.sched.Pending())

	frames, err := f.store.FramesInRange(ctx, 1, 0, 60, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, frames)

	// 字幕轨出现后轮询完成摄取
	f.catalog.setVideo(readyVideo(1))
	f.sched.Advance(60 * time.Second)

	record, err = f.store.GetProcessing(ctx, 1)
	require.NoError(t, err)
	assert.True(t, record.IsCompleted())
}

func TestOrchestrator_CaptionPollingExhausted(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()

	asset := readyVideo(1)
	asset.Captions = nil
	f.catalog.setVideo(asset)

	f.trigger(t, 1)

	for i := 0; i < captionMaxRetries; i++ {
		f.sched.Advance(captionRetryDelay)
	}

	record, err := f.store.GetProcessing(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, knowledge.StatusError, record.Status)

	// 帧阶段的部分产物保留，重新触发无需重做
	frames, err := f.store.FramesInRange(ctx, 1, 0, 60, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, frames)
}

func TestOrchestrator_CoalescesWhileInFlight(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()

	asset := readyVideo(1)
	asset.Captions = nil
	f.catalog.setVideo(asset)

	f.trigger(t, 1)
	before := len(f.store.statuses())

	// processing 期间的重复触发是空操作
	require.NoError(t, f.orch.Trigger(ctx, 1))
	require.NoError(t, f.orch.Trigger(ctx, 1))
	assert.Equal(t, before, len(f.store.statuses()))
	assert.Equal(t, 1, f.sched.Pending())
}

func TestOrchestrator_ReprocessCompletedIsIdempotent(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	f.catalog.setVideo(readyVideo(1))

	f.trigger(t, 1)
	first, err := f.store.SimilaritySearch(ctx, 1, []float32{1, 1}, 10)
	require.NoError(t, err)

	// 同一字幕重新摄取得到同一批片段，无重复行
	f.trigger(t, 1)
	second, err := f.store.SimilaritySearch(ctx, 1, []float32{1, 1}, 10)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ChunkIndex, second[i].ChunkIndex)
		assert.Equal(t, first[i].Text, second[i].Text)
	}
	assert.Equal(t, 2, f.embed.calls)
}

func TestOrchestrator_EmbeddingFailureMarksError(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	f.catalog.setVideo(readyVideo(1))
	f.embed.err = fmt.Errorf("provider down")

	f.trigger(t, 1)

	record, err := f.store.GetProcessing(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, knowledge.StatusError, record.Status)
	assert.Contains(t, record.ErrorMessage, "provider down")
}

func TestOrchestrator_EmptyCaptionsComplete(t *testing.T) {
	f := setupOrchestrator(t)
	ctx := context.Background()
	f.catalog.setVideo(readyVideo(1))
	f.catalog.vtt = "WEBVTT\n"

	f.trigger(t, 1)

	// 空文稿按无可用内容处理，不算错误
	record, err := f.store.GetProcessing(ctx, 1)
	require.NoError(t, err)
	assert.True(t, record.IsCompleted())
}

func TestFrameTimestamps(t *testing.T) {
	assert.Equal(t, []float64{5, 10, 15}, frameTimestamps(20, 5, 20))
	assert.Len(t, frameTimestamps(3600, 5, 20), 20)
	assert.Empty(t, frameTimestamps(0, 5, 20))
	assert.Empty(t, frameTimestamps(4, 5, 20))
}
