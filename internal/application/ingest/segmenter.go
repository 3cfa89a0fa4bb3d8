package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Zollege/peertube-plugin-aichat/internal/domain/knowledge"
)

// cue 单条字幕
type cue struct {
	Start float64
	End   float64
	Text  string
}

// tagPattern WebVTT 内联标签，如 <c.yellow>、<00:01:02.000>
var tagPattern = regexp.MustCompile(`<[^>]*>`)

// SegmentCaptions 将字幕文本切分为固定时长的内容块
// 扫描字幕条目并累积文本，当前条目起始时间与块起始时间之差达到
// segmentSeconds 时封块；末尾不足一块的部分也会输出，以最后见到的
// 时间为结束时间。空文本或只有头部的输入返回空序列，不算错误
func SegmentCaptions(videoID int64, content string, segmentSeconds float64) []*knowledge.TranscriptChunk {
	cues := parseCues(content)
	if len(cues) == 0 {
		return nil
	}

	duration := segmentSeconds
	var chunks []*knowledge.TranscriptChunk

	chunkStart := cues[0].Start
	lastTime := cues[0].Start
	var texts []string

	flush := func(end float64) {
		if len(texts) == 0 {
			return
		}
		chunks = append(chunks, &knowledge.TranscriptChunk{
			VideoID:    videoID,
			ChunkIndex: len(chunks),
			StartTime:  chunkStart,
			EndTime:    end,
			Text:       strings.Join(texts, " "),
		})
		texts = nil
	}

	for _, c := range cues {
		if len(texts) > 0 && c.Start-chunkStart >= duration {
			end := chunkStart + duration
			flush(end)
			chunkStart = end
			// 字幕中断造成的空洞直接跳到下一条的起点
			if c.Start-chunkStart >= duration {
				chunkStart = c.Start
			}
		}
		texts = append(texts, c.Text)
		lastTime = c.Start
	}

	// 末块：有后续时间就用它收尾，否则按目标时长补齐
	end := lastTime
	if end <= chunkStart {
		end = chunkStart + duration
	}
	flush(end)

	return chunks
}

// parseCues 解析 WebVTT/SRT 风格的字幕块
// 只有时间轴行之后、空行之前的内容行才算字幕文本，
// WEBVTT 头、数字序号行和 NOTE 块自然被跳过
func parseCues(content string) []cue {
	var cues []cue
	inCue := false
	var current cue

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			if inCue && current.Text != "" {
				cues = append(cues, current)
			}
			inCue = false
			continue
		}

		if strings.Contains(trimmed, "-->") {
			if inCue && current.Text != "" {
				cues = append(cues, current)
			}
			start, end, err := parseCueTiming(trimmed)
			if err != nil {
				inCue = false
				continue
			}
			current = cue{Start: start, End: end}
			inCue = true
			continue
		}

		if !inCue {
			continue
		}

		text := strings.TrimSpace(tagPattern.ReplaceAllString(trimmed, ""))
		if text == "" {
			continue
		}
		if current.Text != "" {
			current.Text += " "
		}
		current.Text += text
	}

	if inCue && current.Text != "" {
		cues = append(cues, current)
	}
	return cues
}

// parseCueTiming 解析时间轴行，如 "00:00:15.000 --> 00:00:20.000 align:start"
func parseCueTiming(line string) (float64, float64, error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid cue timing: %s", line)
	}

	start, err := parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}

	// 结束时间后可能跟 WebVTT 定位设置，取第一个字段
	endField := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("invalid cue timing: %s", line)
	}
	end, err := parseTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseTimestamp 解析 H:MM:SS.mmm / MM:SS.mmm / 逗号毫秒变体为秒
func parseTimestamp(s string) (float64, error) {
	s = strings.Replace(s, ",", ".", 1)
	parts := strings.Split(s, ":")

	var hours, minutes int
	var seconds float64
	var err error

	switch len(parts) {
	case 3:
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid timestamp: %s", s)
		}
		if minutes, err = strconv.Atoi(parts[1]); err != nil {
			return 0, fmt.Errorf("invalid timestamp: %s", s)
		}
		if seconds, err = strconv.ParseFloat(parts[2], 64); err != nil {
			return 0, fmt.Errorf("invalid timestamp: %s", s)
		}
	case 2:
		if minutes, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid timestamp: %s", s)
		}
		if seconds, err = strconv.ParseFloat(parts[1], 64); err != nil {
			return 0, fmt.Errorf("invalid timestamp: %s", s)
		}
	default:
		return 0, fmt.Errorf("invalid timestamp: %s", s)
	}

	return float64(hours)*3600 + float64(minutes)*60 + seconds, nil
}
