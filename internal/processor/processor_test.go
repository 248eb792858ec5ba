package processor

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	transcript string
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	return f.transcript, nil
}

func (f *fakeTranscriber) TranscribeModel() string {
	return "whisper-1"
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"collapses spaces", "a   b\t\tc", "a b c"},
		{"keeps paragraph breaks", "a\n\n\n\nb", "a\n\nb"},
		{"windows line endings", "a\r\nb\rc", "a\nb\nc"},
		{"strips nul bytes", "a\x00b", "ab"},
		{"trims lines", "  a  \n  b  ", "a\nb"},
		{"trims ends", "\n\n  hello  \n\n", "hello"},
		{"empty", "   \n\t  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizeText(tt.in))
		})
	}
}

func TestRegistryFirstMatchWins(t *testing.T) {
	registry := NewRegistry(
		NewTextProcessor(),
		NewPDFProcessor(),
		NewAudioProcessor(&fakeTranscriber{}),
		NewVideoProcessor(&fakeTranscriber{}, ""),
	)

	p, ok := registry.Find("text/plain; charset=utf-8")
	require.True(t, ok)
	require.Equal(t, "text", p.Name())

	p, ok = registry.Find("application/pdf")
	require.True(t, ok)
	require.Equal(t, "pdf", p.Name())

	p, ok = registry.Find("audio/mpeg")
	require.True(t, ok)
	require.Equal(t, "audio", p.Name())

	p, ok = registry.Find("video/mp4")
	require.True(t, ok)
	require.Equal(t, "video", p.Name())

	_, ok = registry.Find("application/zip")
	require.False(t, ok)
}

func TestRegistryProcessUnsupported(t *testing.T) {
	registry := NewRegistry(NewTextProcessor())
	_, err := registry.Process(context.Background(), Input{MimeType: "image/png"})
	require.Error(t, err)
}

func TestTextProcessorPlain(t *testing.T) {
	p := NewTextProcessor()
	out, err := p.Process(context.Background(), Input{
		Filename: "notes.txt",
		MimeType: "text/plain",
		Data:     []byte("  hello   world  \n\n\n\nsecond paragraph"),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "hello world\n\nsecond paragraph", out[0].Content)
	require.Equal(t, "notes.txt", out[0].Metadata["filename"])
}

func TestTextProcessorMarkdown(t *testing.T) {
	p := NewTextProcessor()
	out, err := p.Process(context.Background(), Input{
		Filename: "readme.md",
		MimeType: "text/markdown",
		Data:     []byte("# Title\n\nSome **bold** and [a link](https://example.com).\n"),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotContains(t, out[0].Content, "#")
	require.NotContains(t, out[0].Content, "**")
	require.NotContains(t, out[0].Content, "https://example.com")
	require.Contains(t, out[0].Content, "Title")
	require.Contains(t, out[0].Content, "bold")
	require.Contains(t, out[0].Content, "a link")
}

func TestTextProcessorSkipsInvalidUTF8(t *testing.T) {
	p := NewTextProcessor()
	out, err := p.Process(context.Background(), Input{
		Filename: "bad.txt",
		MimeType: "text/plain",
		Data:     []byte{0xff, 0xfe, 0xfd},
	})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestTextProcessorEmptyFile(t *testing.T) {
	p := NewTextProcessor()
	out, err := p.Process(context.Background(), Input{
		Filename: "empty.txt",
		MimeType: "text/plain",
		Data:     []byte("   \n\t  "),
	})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestAudioProcessor(t *testing.T) {
	p := NewAudioProcessor(&fakeTranscriber{transcript: "  spoken   words  "})
	out, err := p.Process(context.Background(), Input{
		Filename: "memo.mp3",
		MimeType: "audio/mpeg",
		Data:     []byte("fake audio"),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "spoken words", out[0].Content)
	require.Equal(t, "whisper-1", out[0].Metadata["transcription_model"])
}

func TestAudioProcessorEmptyTranscript(t *testing.T) {
	p := NewAudioProcessor(&fakeTranscriber{transcript: "   "})
	out, err := p.Process(context.Background(), Input{
		Filename: "silence.mp3",
		MimeType: "audio/mpeg",
		Data:     []byte("fake audio"),
	})
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestPDFProcessorSkipsGarbage(t *testing.T) {
	p := NewPDFProcessor()
	out, err := p.Process(context.Background(), Input{
		Filename: "broken.pdf",
		MimeType: "application/pdf",
		Data:     []byte("this is not a pdf"),
	})
	require.NoError(t, err)
	require.Empty(t, out)
}
