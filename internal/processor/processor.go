package processor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Input is one uploaded file to extract text from.
type Input struct {
	Filename string
	MimeType string
	Data     []byte
}

// Extracted is one text segment pulled out of a file, with processor
// specific metadata attached.
type Extracted struct {
	Content  string
	Metadata map[string]interface{}
}

type Processor interface {
	Name() string
	CanProcess(mimeType string) bool
	Process(ctx context.Context, input Input) ([]Extracted, error)
}

// Registry dispatches an input to the first processor that accepts its
// mime type, in registration order.
type Registry struct {
	processors []Processor
}

func NewRegistry(processors ...Processor) *Registry {
	return &Registry{processors: processors}
}

func (r *Registry) Register(p Processor) {
	r.processors = append(r.processors, p)
}

func (r *Registry) Find(mimeType string) (Processor, bool) {
	for _, p := range r.processors {
		if p.CanProcess(mimeType) {
			return p, true
		}
	}
	return nil, false
}

func (r *Registry) Process(ctx context.Context, input Input) ([]Extracted, error) {
	p, ok := r.Find(input.MimeType)
	if !ok {
		return nil, fmt.Errorf("no processor for mime type %q", input.MimeType)
	}
	return p.Process(ctx, input)
}

var (
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText collapses whitespace noise so chunk boundaries land on
// real content. Paragraph breaks survive as a single blank line.
func NormalizeText(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = spaceRuns.ReplaceAllString(text, " ")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text = strings.Join(lines, "\n")
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func mimeMatches(mimeType string, prefixes []string, exact []string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	for _, e := range exact {
		if mimeType == e {
			return true
		}
	}
	for _, p := range prefixes {
		if strings.HasPrefix(mimeType, p) {
			return true
		}
	}
	return false
}
