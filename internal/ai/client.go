package ai

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type ClientOptions struct {
	EmbedModel      string
	EmbedDims       int
	ChatModel       string
	TranscribeModel string
	Timeout         time.Duration
}

// Client binds a provider to the configured models and enforces per-call
// timeouts and embedding dimensions.
type Client struct {
	provider Provider
	opts     ClientOptions
}

func NewClient(provider Provider, opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = time.Minute
	}
	return &Client{provider: provider, opts: opts}
}

func (c *Client) EmbedModel() string {
	return c.opts.EmbedModel
}

func (c *Client) EmbedDims() int {
	return c.opts.EmbedDims
}

func (c *Client) Embed(ctx context.Context, text string, task string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text}, task)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vectors[0], nil
}

// EmbedBatch embeds all texts, splitting into provider-sized batches. The
// result has the same length and order as the input.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, task string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += openAIMaxEmbedBatch {
		end := start + openAIMaxEmbedBatch
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := c.embedOnce(ctx, texts[start:end], task)
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (c *Client) embedOnce(ctx context.Context, texts []string, task string) ([][]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	start := time.Now()
	vectors, err := c.provider.Embed(callCtx, c.opts.EmbedModel, texts, c.opts.EmbedDims, task)
	if err != nil {
		return nil, err
	}
	for i, vec := range vectors {
		if c.opts.EmbedDims > 0 && len(vec) != c.opts.EmbedDims {
			return nil, fmt.Errorf("embedding %d has %d dimensions, want %d", i, len(vec), c.opts.EmbedDims)
		}
	}
	logutil.GetLogger(ctx).Debug("embedded batch",
		zap.Int("count", len(texts)),
		zap.Duration("cost", time.Since(start)),
	)
	return vectors, nil
}

func (c *Client) Chat(ctx context.Context, msgs []Message, opts ChatOptions) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	return c.provider.Chat(callCtx, c.opts.ChatModel, msgs, opts)
}

// ChatStream does not apply the client timeout: the caller's context
// controls how long a stream may run.
func (c *Client) ChatStream(ctx context.Context, msgs []Message, opts ChatOptions, fn StreamFunc) error {
	return c.provider.ChatStream(ctx, c.opts.ChatModel, msgs, opts, fn)
}

func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	return c.provider.Transcribe(callCtx, c.opts.TranscribeModel, filename, audio)
}

func (c *Client) TranscribeModel() string {
	return c.opts.TranscribeModel
}
