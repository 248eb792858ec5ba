package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrUnavailable = errors.New("ai provider unavailable")

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Embedding task types. Some providers produce different vectors for
// indexed documents and for search queries.
const (
	TaskTypeDocument = "document"
	TaskTypeQuery    = "query"
)

type Message struct {
	Role    string
	Content string
}

type ChatOptions struct {
	Temperature float64
	MaxTokens   int
}

// StreamFunc receives incremental answer text. Returning an error aborts
// the stream.
type StreamFunc func(delta string) error

type Provider interface {
	Name() string
	Embed(ctx context.Context, model string, texts []string, dims int, task string) ([][]float32, error)
	Chat(ctx context.Context, model string, msgs []Message, opts ChatOptions) (string, error)
	ChatStream(ctx context.Context, model string, msgs []Message, opts ChatOptions, fn StreamFunc) error
	Transcribe(ctx context.Context, model string, filename string, audio io.Reader) (string, error)
}

type ProviderFactory func(args interface{}) (Provider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai provider name is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
