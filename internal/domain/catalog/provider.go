package catalog

import "context"

// Provider 视频目录协作方接口
// 由 PeerTube REST 客户端实现，测试中用假实现替换
type Provider interface {
	// GetVideo 获取视频元数据（含编码状态和字幕轨列表）
	GetVideo(ctx context.Context, id int64) (*VideoAsset, error)

	// ListRelated 获取至多 limit 个相关视频，排除 excludingID 自身
	ListRelated(ctx context.Context, excludingID int64, limit int) ([]*RelatedVideo, error)

	// DownloadCaption 下载字幕文件原始内容
	DownloadCaption(ctx context.Context, url string) (string, error)
}
