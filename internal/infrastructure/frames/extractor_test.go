package frames

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildArgs(t *testing.T) {
	args := buildArgs("https://peertube.example/hls/42/master.m3u8", 65.5, "/tmp/frames/42/66.jpg")

	assert.Equal(t, []string{
		"-ss", "65.500",
		"-i", "https://peertube.example/hls/42/master.m3u8",
		"-frames:v", "1",
		"-q:v", "2",
		"-y",
		"/tmp/frames/42/66.jpg",
	}, args)
}

func TestFramePath(t *testing.T) {
	e := &Extractor{frameDir: "/var/frames"}

	assert.Equal(t, "/var/frames/42/65.jpg", e.framePath(42, 65.2))
	assert.Equal(t, "/var/frames/42/0.jpg", e.framePath(42, 0))
}
