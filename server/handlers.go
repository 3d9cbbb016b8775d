package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xhad/vision-sync/pkg/analyzer"
	"github.com/xhad/vision-sync/pkg/history"
	"github.com/xhad/vision-sync/pkg/vision"
)

const (
	msgNotImage        = "Uploaded file must be an image."
	msgTooLarge        = "Image exceeds 10 MB limit."
	msgAnalysisFailed  = "Image analysis failed."
	msgHistoryDisabled = "Supabase is not configured. Set SUPABASE_URL and SUPABASE_SERVICE_KEY."
	msgHistoryFailed   = "Could not retrieve analysis history."
	msgTooManyRequests = "Too many requests."
	multipartAllowance = 1 << 20
)

func fail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "vision-sync"})
}

func (s *Server) analyze(c *gin.Context) {
	// Bodies far beyond the limit are cut off while parsing; the exact check is below.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(s.config.MaxUploadBytes+multipartAllowance))

	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			fail(c, http.StatusRequestEntityTooLarge, msgTooLarge)
			return
		}
		fail(c, http.StatusBadRequest, msgNotImage)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		fail(c, http.StatusBadRequest, msgNotImage)
		return
	}

	file, err := header.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, msgNotImage)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, int64(s.config.MaxUploadBytes)+1))
	if err != nil {
		s.logger.Error("failed to read upload", zap.Error(err))
		fail(c, http.StatusBadRequest, msgNotImage)
		return
	}
	if len(data) > s.config.MaxUploadBytes {
		fail(c, http.StatusRequestEntityTooLarge, msgTooLarge)
		return
	}

	req := analyzer.Request{Image: data, ContentType: contentType}
	if userID := c.PostForm("user_id"); userID != "" {
		req.UserID = &userID
	}

	resp, err := s.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		if detail, ok := vision.InvalidInputMessage(err); ok {
			fail(c, http.StatusBadRequest, detail)
			return
		}
		s.logger.Error("image analysis failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, msgAnalysisFailed)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) history(c *gin.Context) {
	items, err := s.analyzer.History(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		if errors.Is(err, history.ErrDisabled) {
			fail(c, http.StatusServiceUnavailable, msgHistoryDisabled)
			return
		}
		s.logger.Error("failed to fetch history", zap.Error(err))
		fail(c, http.StatusInternalServerError, msgHistoryFailed)
		return
	}

	c.JSON(http.StatusOK, items)
}
