package chat

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// 在包初始化时设置离线加载器
func init() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// TokenCounter 使用 tiktoken 精确计算 prompt 的 Token 数量
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

var (
	counterInstance *TokenCounter
	counterOnce     sync.Once
	counterErr      error
)

// GetTokenCounter 获取 TokenCounter 单例
// 编码文件只加载一次
func GetTokenCounter() (*TokenCounter, error) {
	counterOnce.Do(func() {
		// cl100k_base 编码，GPT-4 系列模型兼容
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			counterErr = err
			return
		}
		counterInstance = &TokenCounter{encoding: enc}
	})

	if counterErr != nil {
		return nil, counterErr
	}
	return counterInstance, nil
}

// CountTokens 计算文本的 Token 数量
func (c *TokenCounter) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}
