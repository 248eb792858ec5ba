package processor

import (
	"bytes"
	"context"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type PDFProcessor struct{}

func NewPDFProcessor() *PDFProcessor {
	return &PDFProcessor{}
}

func (p *PDFProcessor) Name() string {
	return "pdf"
}

func (p *PDFProcessor) CanProcess(mimeType string) bool {
	return mimeMatches(mimeType, nil, []string{"application/pdf"})
}

// Process extracts the text layer. A malformed or textless pdf yields an
// empty slice, not an error.
func (p *PDFProcessor) Process(ctx context.Context, input Input) (out []Extracted, err error) {
	// The pdf parser panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			logutil.GetLogger(ctx).Warn("pdf parse panic", zap.String("filename", input.Filename), zap.Any("cause", r))
			out = nil
			err = nil
		}
	}()

	reader, rerr := pdf.NewReader(bytes.NewReader(input.Data), int64(len(input.Data)))
	if rerr != nil {
		logutil.GetLogger(ctx).Warn("pdf parse failed", zap.String("filename", input.Filename), zap.Error(rerr))
		return nil, nil
	}
	numPages := reader.NumPage()
	var pages []string
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = NormalizeText(text)
		if text != "" {
			pages = append(pages, text)
		}
	}
	content := NormalizeText(strings.Join(pages, "\n\n"))
	// A scanned pdf with no text layer yields nothing to index, which is
	// not an error.
	if content == "" {
		return nil, nil
	}
	return []Extracted{{
		Content: content,
		Metadata: map[string]interface{}{
			"filename": input.Filename,
			"pages":    numPages,
		},
	}}, nil
}
