package processor

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Transcriber turns speech audio into text. ai.Client satisfies it.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
	TranscribeModel() string
}

type AudioProcessor struct {
	transcriber Transcriber
}

func NewAudioProcessor(transcriber Transcriber) *AudioProcessor {
	return &AudioProcessor{transcriber: transcriber}
}

func (p *AudioProcessor) Name() string {
	return "audio"
}

func (p *AudioProcessor) CanProcess(mimeType string) bool {
	return mimeMatches(mimeType, []string{"audio/"}, nil)
}

func (p *AudioProcessor) Process(ctx context.Context, input Input) ([]Extracted, error) {
	logutil.GetLogger(ctx).Info("transcribing audio",
		zap.String("filename", input.Filename),
		zap.Int("size", len(input.Data)),
	)
	transcript, err := p.transcriber.Transcribe(ctx, input.Filename, bytes.NewReader(input.Data))
	if err != nil {
		return nil, fmt.Errorf("transcribe %q: %w", input.Filename, err)
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
