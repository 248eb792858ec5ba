package handler

import (
	"bytes"
	"io"
	"mime/multipart"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/teamgrid/ragengine/internal/filestore"
	"github.com/teamgrid/ragengine/internal/pkg/errcode"
	"github.com/teamgrid/ragengine/internal/pkg/response"
	"github.com/teamgrid/ragengine/internal/processor"
	"github.com/teamgrid/ragengine/internal/service"
)

const maxUploadSize = 100 << 20

type EmbeddingHandler struct {
	indexing *service.IndexingService
	files    filestore.Store
}

func NewEmbeddingHandler(indexing *service.IndexingService, files filestore.Store) *EmbeddingHandler {
	return &EmbeddingHandler{indexing: indexing, files: files}
}

type indexRequest struct {
	NamespaceID   string                 `json:"namespace_id" binding:"required"`
	NamespaceType string                 `json:"namespace_type"`
	OrgID         string                 `json:"org_id"`
	SourceType    string                 `json:"source_type" binding:"required"`
	SourceID      string                 `json:"source_id" binding:"required"`
	Content       string                 `json:"content"`
	Metadata      map[string]interface{} `json:"metadata"`
	ChunkSize     int                    `json:"chunk_size"`
	Overlap       *int                   `json:"overlap"`
}

func (r *indexRequest) toService(c *gin.Context) *service.IndexRequest {
	orgID := r.OrgID
	// An org bound into the token always wins over the request body.
	if tokenOrg := getOrgID(c); tokenOrg != "" {
		orgID = tokenOrg
	}
	return &service.IndexRequest{
		NamespaceID:   r.NamespaceID,
		NamespaceType: r.NamespaceType,
		OrgID:         orgID,
		SourceType:    r.SourceType,
		SourceID:      r.SourceID,
		Content:       r.Content,
		Metadata:      r.Metadata,
		ChunkSize:     r.ChunkSize,
		Overlap:       r.Overlap,
	}
}

func (h *EmbeddingHandler) Index(c *gin.Context) {
	var req indexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, err.Error())
		return
	}
	res, err := h.indexing.IndexContent(c.Request.Context(), req.toService(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *EmbeddingHandler) IndexShort(c *gin.Context) {
	var req indexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, err.Error())
		return
	}
	res, err := h.indexing.IndexShortText(c.Request.Context(), req.toService(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

// IndexFile accepts a multipart upload, extracts text and indexes it.
func (h *EmbeddingHandler) IndexFile(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if fileHeader.Size > maxUploadSize {
		response.Error(c, errcode.ErrInvalidFile, "file too large")
		return
	}
	data, err := readUpload(fileHeader)
	if err != nil {
		response.Error(c, errcode.ErrUploadFailed, "failed to read upload")
		return
	}
	req := indexRequest{
		NamespaceID:   c.PostForm("namespace_id"),
		NamespaceType: c.PostForm("namespace_type"),
		OrgID:         c.PostForm("org_id"),
		SourceType:    c.PostForm("source_type"),
		SourceID:      c.PostForm("source_id"),
	}
	mimeType := fileHeader.Header.Get("Content-Type")
	if override := c.PostForm("mime_type"); override != "" {
		mimeType = override
	}
	h.archiveUpload(c, req.SourceID, fileHeader.Filename, data)
	res, err := h.indexing.IndexFile(c.Request.Context(), req.toService(c), processor.Input{
		Filename: fileHeader.Filename,
		MimeType: mimeType,
		Data:     data,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

type deleteResponse struct {
	Deleted int64 `json:"deleted"`
}

func (h *EmbeddingHandler) DeleteSource(c *gin.Context) {
	deleted, err := h.indexing.DeleteBySource(c.Request.Context(), c.Param("source_type"), c.Param("source_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, deleteResponse{Deleted: deleted})
}

func (h *EmbeddingHandler) DeleteNamespace(c *gin.Context) {
	deleted, err := h.indexing.DeleteByNamespace(c.Request.Context(), c.Param("namespace_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, deleteResponse{Deleted: deleted})
}

func (h *EmbeddingHandler) Stats(c *gin.Context) {
	stats, err := h.indexing.Stats(c.Request.Context(), c.Param("namespace_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, stats)
}

// archiveUpload keeps the original bytes so a source can be re-processed
// later. Failure to archive does not block indexing.
func (h *EmbeddingHandler) archiveUpload(c *gin.Context, sourceID, filename string, data []byte) {
	if h.files == nil || sourceID == "" {
		return
	}
	key := sourceID + filepath.Ext(filename)
	if err := h.files.Save(c.Request.Context(), key, bytes.NewReader(data), int64(len(data))); err != nil {
		logutil.GetLogger(c.Request.Context()).Warn("failed to archive upload",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
