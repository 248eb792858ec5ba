package processor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// VideoProcessor extracts the audio track with ffmpeg and transcribes it.
type VideoProcessor struct {
	transcriber Transcriber
	ffmpegPath  string
}

func NewVideoProcessor(transcriber Transcriber, ffmpegPath string) *VideoProcessor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &VideoProcessor{transcriber: transcriber, ffmpegPath: ffmpegPath}
}

func (p *VideoProcessor) Name() string {
	return "video"
}

func (p *VideoProcessor) CanProcess(mimeType string) bool {
	return mimeMatches(mimeType, []string{"video/"}, nil)
}

func (p *VideoProcessor) Process(ctx context.Context, input Input) ([]Extracted, error) {
	logger := logutil.GetLogger(ctx)
	tmpDir, err := os.MkdirTemp("", "ragengine-video-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	videoPath := filepath.Join(tmpDir, "input"+safeExt(input.Filename))
	if err := os.WriteFile(videoPath, input.Data, 0o600); err != nil {
		return nil, err
	}
	audioPath := filepath.Join(tmpDir, "audio.wav")

	// Mono 16kHz pcm keeps the upload small and is what speech models want.
	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		audioPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// A file ffmpeg cannot decode has nothing to index.
	if err := cmd.Run(); err != nil {
		logger.Warn("ffmpeg failed, skipping file",
			zap.String("filename", input.Filename),
			zap.String("stderr", truncateTail(stderr.String(), 512)),
			zap.Error(err),
		)
		return nil, nil
	}

	audio, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer audio.Close()

	transcript, err := p.transcriber.Transcribe(ctx, "audio.wav", audio)
	if err != nil {
		return nil, fmt.Errorf("transcribe audio of %q: %w", input.Filename, err)
	}
	transcript = NormalizeText(transcript)
	if transcript == "" {
		return nil, nil
	}
	return []Extracted{{
		Content: transcript,
		Metadata: map[string]interface{}{
			"filename":            input.Filename,
			"transcription_model": p.transcriber.TranscribeModel(),
		},
	}}, nil
}

func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || len(ext) > 8 || strings.ContainsAny(ext, "/\\") {
		return ".mp4"
	}
	return ext
}

func truncateTail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
