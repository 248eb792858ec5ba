package handler

import (
	stderrors "errors"
	"fmt"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/teamgrid/ragengine/internal/ai"
	"github.com/teamgrid/ragengine/internal/pkg/errcode"
	"github.com/teamgrid/ragengine/internal/pkg/errors"
)

func TestHandleErrorCodes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid argument", fmt.Errorf("%w: bad input", errors.ErrInvalid), errcode.ErrInvalid},
		{"not found", errors.ErrNotFound, errcode.ErrNotFound},
		{"provider down", fmt.Errorf("embed query: %w", ai.ErrUnavailable), errcode.ErrAIUnavailable},
		{"anything else", stderrors.New("boom"), errcode.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/test", nil)
			handleError(c, tt.err)
			require.Contains(t, w.Body.String(), strconv.Itoa(tt.code))
		})
	}
}
