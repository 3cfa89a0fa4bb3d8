package chat

import (
	"regexp"
	"strconv"
	"strings"
)

// timestampPattern 匹配回复中的 [M:SS]、[H:MM:SS] 和范围变体
var timestampPattern = regexp.MustCompile(
	`\[(\d{1,2}(?::\d{2}){1,2})(?:\s*-\s*(\d{1,2}(?::\d{2}){1,2}))?\]`)

// ExtractTimestamps 提取回复中引用的时间点并换算为绝对秒数
// 按出现顺序返回，范围形式两个端点都算；没有匹配时返回空
func ExtractTimestamps(text string) []int {
	var seconds []int
	for _, match := range timestampPattern.FindAllStringSubmatch(text, -1) {
		if v, ok := clockToSeconds(match[1]); ok {
			seconds = append(seconds, v)
		}
		if match[2] != "" {
			if v, ok := clockToSeconds(match[2]); ok {
				seconds = append(seconds, v)
			}
		}
	}
	return seconds
}

// clockToSeconds 将 M:SS 或 H:MM:SS 换算为秒
func clockToSeconds(clock string) (int, bool) {
	parts := strings.Split(clock, ":")

	total := 0
	for _, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil {
			return 0, false
		}
		total = total*60 + v
	}
	return total, true
}
