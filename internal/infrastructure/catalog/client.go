package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"log/slog"

	"github.com/Zollege/peertube-plugin-aichat/internal/domain/catalog"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/config"
	"github.com/Zollege/peertube-plugin-aichat/internal/infrastructure/log"
)

// 确保 Client 实现了 catalog.Provider 接口
var _ catalog.Provider = (*Client)(nil)

// Client PeerTube REST API 客户端
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient 创建目录客户端
func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(cfg.Ingest.PeerTubeURL, "/"),
		token:   cfg.Ingest.PeerTubeToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: log.NewModuleLogger("catalog", "client"),
	}
}

// videoResponse PeerTube 视频详情响应
type videoResponse struct {
	ID          int64   `json:"id"`
	UUID        string  `json:"uuid"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Duration    float64 `json:"duration"`
	State       struct {
		ID int `json:"id"`
	} `json:"state"`
	Channel struct {
		DisplayName string `json:"displayName"`
	} `json:"channel"`
	StreamingPlaylists []struct {
		PlaylistURL string `json:"playlistUrl"`
	} `json:"streamingPlaylists"`
	Files []struct {
		FileURL string `json:"fileUrl"`
	} `json:"files"`
}

// captionsResponse PeerTube 字幕列表响应
type captionsResponse struct {
	Total int `json:"total"`
	Data  []struct {
		Language struct {
			ID string `json:"id"`
		} `json:"language"`
		CaptionPath string `json:"captionPath"`
		FileURL     string `json:"fileUrl"`
	} `json:"data"`
}

// videoListResponse PeerTube 视频列表响应
type videoListResponse struct {
	Total int `json:"total"`
	Data  []struct {
		ID          int64  `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Channel     struct {
			DisplayName string `json:"displayName"`
		} `json:"channel"`
	} `json:"data"`
}

// GetVideo 获取视频元数据，合并字幕轨列表
func (c *Client) GetVideo(ctx context.Context, id int64) (*catalog.VideoAsset, error) {
	var video videoResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/api/v1/videos/%d", id), &video); err != nil {
		return nil, fmt.Errorf("failed to get video %d: %w", id, err)
	}

	asset := &catalog.VideoAsset{
		ID:          video.ID,
		UUID:        video.UUID,
		Name:        video.Name,
		Description: video.Description,
		ChannelName: video.Channel.DisplayName,
		Duration:    video.Duration,
		State:       video.State.ID,
		PlaybackURL: c.pickPlaybackURL(&video),
	}

	var captions captionsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/api/v1/videos/%d/captions", id), &captions); err != nil {
		// 字幕列表拉取失败不阻断，调用方按无字幕处理
		c.logger.Warn("获取字幕列表失败", "video_id", id, "error", err)
		return asset, nil
	}

	for _, item := range captions.Data {
		captionURL := item.FileURL
		if captionURL == "" && item.CaptionPath != "" {
			captionURL = c.baseURL + item.CaptionPath
		}
		if captionURL == "" {
			continue
		}
		asset.Captions = append(asset.Captions, catalog.Caption{
			Language: item.Language.ID,
			URL:      captionURL,
		})
	}
	return asset, nil
}

// pickPlaybackURL 选择可播放地址，优先 HLS playlist
func (c *Client) pickPlaybackURL(video *videoResponse) string {
	for _, playlist := range video.StreamingPlaylists {
		if playlist.PlaylistURL != "" {
			return playlist.PlaylistURL
		}
	}
	for _, file := range video.Files {
		if file.FileURL != "" {
			return file.FileURL
		}
	}
	return ""
}

// ListRelated 获取最近发布的视频作为相关推荐，排除指定视频
func (c *Client) ListRelated(ctx context.Context, excludingID int64, limit int) ([]*catalog.RelatedVideo, error) {
	// 多取一个，排除自身后仍能凑满 limit 个
	query := url.Values{}
	query.Set("count", fmt.Sprintf("%d", limit+1))
	query.Set("sort", "-publishedAt")

	var list videoListResponse
	if err := c.getJSON(ctx, "/api/v1/videos?"+query.Encode(), &list); err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}

	related := make([]*catalog.RelatedVideo, 0, limit)
	for _, item := range list.Data {
		if item.ID == excludingID {
			continue
		}
		related = append(related, &catalog.RelatedVideo{
			ID:          item.ID,
			Title:       item.Name,
			Description: item.Description,
			ChannelName: item.Channel.DisplayName,
		})
		if len(related) >= limit {
			break
		}
	}
	return related, nil
}

// DownloadCaption 下载字幕文件原始内容
func (c *Client) DownloadCaption(ctx context.Context, captionURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", captionURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download caption: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("caption download returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read caption body: %w", err)
	}
	return string(body), nil
}

// getJSON 发送 GET 请求并解析 JSON 响应
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// setAuth 附加访问令牌
func (c *Client) setAuth(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
