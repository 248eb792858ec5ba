package ai

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	dims    int
	batches [][]string
	tasks   []string
}

func (f *fakeProvider) Name() string {
	return "fake"
}

func (f *fakeProvider) Embed(ctx context.Context, model string, texts []string, dims int, task string) ([][]float32, error) {
	f.batches = append(f.batches, texts)
	f.tasks = append(f.tasks, task)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
		out[i][0] = float32(i)
	}
	return out, nil
}

func (f *fakeProvider) Chat(ctx context.Context, model string, msgs []Message, opts ChatOptions) (string, error) {
	return "answer", nil
}

func (f *fakeProvider) ChatStream(ctx context.Context, model string, msgs []Message, opts ChatOptions, fn StreamFunc) error {
	for _, part := range []string{"an", "swer"} {
		if err := fn(part); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeProvider) Transcribe(ctx context.Context, model string, filename string, audio io.Reader) (string, error) {
	return "transcript", nil
}

func TestNewProviderUnknown(t *testing.T) {
	_, err := NewProvider("does-not-exist", map[string]string{})
	require.Error(t, err)

	_, err = NewProvider("", nil)
	require.Error(t, err)
}

func TestNewProviderRegistered(t *testing.T) {
	provider, err := NewProvider("openai", map[string]string{"api_key": "test"})
	require.NoError(t, err)
	require.Equal(t, "openai", provider.Name())

	provider, err = NewProvider("GEMINI", map[string]string{"api_key": "test"})
	require.NoError(t, err)
	require.Equal(t, "gemini", provider.Name())
}

func TestEmbedBatchSplits(t *testing.T) {
	fake := &fakeProvider{dims: 8}
	client := NewClient(fake, ClientOptions{EmbedModel: "m", EmbedDims: 8})

	texts := make([]string, 250)
	for i := range texts {
		texts[i] = "text"
	}
	vectors, err := client.EmbedBatch(context.Background(), texts, TaskTypeDocument)
	require.NoError(t, err)
	require.Len(t, vectors, 250)
	require.Len(t, fake.batches, 3)
	require.Len(t, fake.batches[0], 100)
	require.Len(t, fake.batches[1], 100)
	require.Len(t, fake.batches[2], 50)
}

func TestEmbedPassesTaskType(t *testing.T) {
	fake := &fakeProvider{dims: 4}
	client := NewClient(fake, ClientOptions{EmbedModel: "m", EmbedDims: 4})

	_, err := client.Embed(context.Background(), "question", TaskTypeQuery)
	require.NoError(t, err)
	_, err = client.Embed(context.Background(), "chunk", TaskTypeDocument)
	require.NoError(t, err)
	require.Equal(t, []string{TaskTypeQuery, TaskTypeDocument}, fake.tasks)
}

func TestEmbedBatchEmpty(t *testing.T) {
	client := NewClient(&fakeProvider{dims: 4}, ClientOptions{EmbedDims: 4})
	vectors, err := client.EmbedBatch(context.Background(), nil, TaskTypeDocument)
	require.NoError(t, err)
	require.Nil(t, vectors)
}

func TestEmbedRejectsWrongDims(t *testing.T) {
	client := NewClient(&fakeProvider{dims: 4}, ClientOptions{EmbedDims: 8})
	_, err := client.Embed(context.Background(), "hello", TaskTypeDocument)
	require.Error(t, err)
	require.Contains(t, err.Error(), "dimensions")
}
