package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTimestamps(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []int
	}{
		{
			name:  "分秒与时分秒混合",
			input: "see [1:05] and [12:30:00]",
			want:  []int{65, 45000},
		},
		{
			name:  "范围形式两端都提取",
			input: "这一段 [0:05 - 0:30] 讲了背景",
			want:  []int{5, 30},
		},
		{
			name:  "无匹配",
			input: "回复里没有时间点",
			want:  nil,
		},
		{
			name:  "零时刻",
			input: "开头 [0:00] 即点题",
			want:  []int{0},
		},
		{
			name:  "按出现顺序",
			input: "[2:00] 之前先看 [0:30]，最后 [1:00:00]",
			want:  []int{120, 30, 3600},
		},
		{
			name:  "方括号内非时间不匹配",
			input: "数组 [1, 2, 3] 和引用 [doc]",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTimestamps(tt.input))
		})
	}
}

func TestFormatTime(t *testing.T) {
	assert.Equal(t, "0:00", formatTime(0))
	assert.Equal(t, "0:30", formatTime(30))
	assert.Equal(t, "1:05", formatTime(65))
	assert.Equal(t, "12:30:00", formatTime(45000))
	assert.Equal(t, "1:00:01", formatTime(3601.7))
}
