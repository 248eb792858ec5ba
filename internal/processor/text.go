package processor

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"
)

type TextProcessor struct{}

func NewTextProcessor() *TextProcessor {
	return &TextProcessor{}
}

func (p *TextProcessor) Name() string {
	return "text"
}

func (p *TextProcessor) CanProcess(mimeType string) bool {
	return mimeMatches(mimeType,
		[]string{"text/"},
		[]string{"application/json", "application/xml", "application/x-yaml"},
	)
}

func (p *TextProcessor) Process(ctx context.Context, input Input) ([]Extracted, error) {
	if !utf8.Valid(input.Data) {
		logutil.GetLogger(ctx).Warn("file is not valid utf-8, skipping", zap.String("filename", input.Filename))
		return nil, nil
	}
	content := string(input.Data)
	if isMarkdown(input) {
		content = stripMarkdown(content)
	}
	content = NormalizeText(content)
	if content == "" {
		return nil, nil
	}
	return []Extracted{{
		Content: content,
		Metadata: map[string]interface{}{
			"filename": input.Filename,
		},
	}}, nil
}

func isMarkdown(input Input) bool {
	if mimeMatches(input.MimeType, nil, []string{"text/markdown", "text/x-markdown"}) {
		return true
	}
	name := strings.ToLower(input.Filename)
	return strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".markdown")
}

// stripMarkdown drops formatting and keeps the readable text, so embeddings
// are not polluted with syntax characters.
func stripMarkdown(markdown string) string {
	md := goldmark.New()
	source := []byte(markdown)
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var sb strings.Builder
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		txt := extractText(node, source)
		if txt == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(txt)
	}
	return sb.String()
}

func extractText(n ast.Node, source []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node.Kind() {
		case ast.KindText:
			sb.Write(node.(*ast.Text).Segment.Value(source))
			if node.(*ast.Text).SoftLineBreak() || node.(*ast.Text).HardLineBreak() {
				sb.WriteString("\n")
			}
		case ast.KindCodeBlock, ast.KindFencedCodeBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				sb.Write(line.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
