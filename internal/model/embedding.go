package model

const (
	SourceTypeMessage    = "message"
	SourceTypeAttachment = "attachment"
	SourceTypeDocument   = "document"
	SourceTypeFile       = "file"
)

func IsValidSourceType(t string) bool {
	switch t {
	case SourceTypeMessage, SourceTypeAttachment, SourceTypeDocument, SourceTypeFile:
		return true
	}
	return false
}

// EmbeddingRecord is one stored chunk of indexed content. Ctime/Mtime are
// epoch milliseconds.
type EmbeddingRecord struct {
	ID            string                 `json:"id"`
	NamespaceID   string                 `json:"namespace_id"`
	NamespaceType string                 `json:"namespace_type"`
	OrgID         string                 `json:"org_id"`
	SourceType    string                 `json:"source_type"`
	SourceID      string                 `json:"source_id"`
	Content       string                 `json:"content"`
	ChunkIndex    int                    `json:"chunk_index"`
	ChunkTotal    int                    `json:"chunk_total"`
	Embedding     []float32              `json:"-"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Ctime         int64                  `json:"created_at"`
	Mtime         int64                  `json:"updated_at"`
}

type SearchResult struct {
	EmbeddingRecord
	Similarity float64 `json:"similarity"`
}

type EmbeddingCache struct {
	ModelName   string
	TaskType    string
	ContentHash string
	Embedding   []float32
	Ctime       int64
}

// NamespaceStats summarizes indexed content for one namespace.
type NamespaceStats struct {
	NamespaceID  string           `json:"namespace_id"`
	RecordCount  int64            `json:"record_count"`
	SourceCounts map[string]int64 `json:"source_counts"`
}
