package catalog

// 视频状态常量（与 PeerTube videoState 对齐）
const (
	VideoStatePublished    = 1
	VideoStateToTranscode  = 2
	VideoStateToImport     = 3
	VideoStateWaitingLive  = 4
	VideoStateLiveEnded    = 5
	VideoStateToMove       = 6
	VideoStateTranscodeErr = 7
)

// VideoAsset 视频资产
// 由外部目录管理，本系统只读取元数据并维护按视频 ID 关联的衍生数据
type VideoAsset struct {
	ID          int64   // 数字 ID
	UUID        string  // 稳定 UUID
	Name        string  // 标题
	Description string  // 简介
	ChannelName string  // 频道名
	Duration    float64 // 时长（秒）
	State       int     // 视频状态
	PlaybackURL string  // 可播放地址（HLS playlist 或文件 URL）
	Captions    []Caption
}

// IsReady 检查视频是否已完成编码、可以进入处理流水线
func (v *VideoAsset) IsReady() bool {
	return v.State == VideoStatePublished && v.PlaybackURL != ""
}

// Caption 字幕轨
type Caption struct {
	Language string // 语言代码
	URL      string // 字幕文件下载地址
}

// RelatedVideo 相关视频推荐条目
type RelatedVideo struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ChannelName string `json:"channel_name"`
}
