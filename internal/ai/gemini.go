package ai

import (
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/genai"
)

type geminiConfig struct {
	APIKey string `json:"api_key"`
}

type geminiProvider struct {
	apiKey string
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) newClient(ctx context.Context) (*genai.Client, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
}

func (p *geminiProvider) Embed(ctx context.Context, model string, texts []string, dims int, task string) ([][]float32, error) {
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, err
	}
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, &genai.Content{Parts: []*genai.Part{{Text: text}}})
	}
	config := &genai.EmbedContentConfig{
		TaskType: geminiTaskType(task),
	}
	if dims > 0 {
		d := int32(dims)
		config.OutputDimensionality = &d
	}
	resp, err := client.Models.EmbedContent(ctx, model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

func (p *geminiProvider) Chat(ctx context.Context, model string, msgs []Message, opts ChatOptions) (string, error) {
	client, err := p.newClient(ctx)
	if err != nil {
		return "", err
	}
	contents, config := geminiChatInput(msgs, opts)
	resp, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini chat: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func (p *geminiProvider) ChatStream(ctx context.Context, model string, msgs []Message, opts ChatOptions, fn StreamFunc) error {
	client, err := p.newClient(ctx)
	if err != nil {
		return err
	}
	contents, config := geminiChatInput(msgs, opts)
	for resp, err := range client.Models.GenerateContentStream(ctx, model, contents, config) {
		if err != nil {
			return fmt.Errorf("gemini chat stream: %w", err)
		}
		delta := resp.Text()
		if delta == "" {
			continue
		}
		if err := fn(delta); err != nil {
			return err
		}
	}
	return nil
}

// Transcribe sends the audio inline to a multimodal model and asks for a
// verbatim transcript.
func (p *geminiProvider) Transcribe(ctx context.Context, model string, filename string, audio io.Reader) (string, error) {
	client, err := p.newClient(ctx)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(audio)
	if err != nil {
		return "", err
	}
	contents := []*genai.Content{{
		Parts: []*genai.Part{
			{Text: "Transcribe this audio verbatim. Output only the transcript text."},
			{InlineData: &genai.Blob{MIMEType: mimeForAudio(filename), Data: data}},
		},
	}}
	resp, err := client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini transcription: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func geminiChatInput(msgs []Message, opts ChatOptions) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		temp := float32(opts.Temperature)
		config.Temperature = &temp
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}
	var contents []*genai.Content
	for _, msg := range msgs {
		switch msg.Role {
		case RoleSystem:
			config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: msg.Content}}}
		case RoleAssistant:
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: msg.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: msg.Content}}})
		}
	}
	return contents, config
}

func geminiTaskType(task string) string {
	if task == TaskTypeQuery {
		return "RETRIEVAL_QUERY"
	}
	return "RETRIEVAL_DOCUMENT"
}

func mimeForAudio(filename string) string {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".mp3"):
		return "audio/mpeg"
	case strings.HasSuffix(name, ".wav"):
		return "audio/wav"
	case strings.HasSuffix(name, ".ogg"):
		return "audio/ogg"
	case strings.HasSuffix(name, ".flac"):
		return "audio/flac"
	case strings.HasSuffix(name, ".m4a"), strings.HasSuffix(name, ".aac"):
		return "audio/aac"
	default:
		return "audio/mpeg"
	}
}

func createGeminiFactory(args interface{}) (Provider, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiProvider{
		apiKey: strings.TrimSpace(cfg.APIKey),
	}, nil
}

func init() {
	Register("gemini", createGeminiFactory)
}
