package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"video-variator/internal/engine"
	"video-variator/internal/events"
	"video-variator/internal/params"
	"video-variator/internal/variation"
)

type itemResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	Progress   float64 `json:"progress"`
	Variations int     `json:"variations"`
	Error      string  `json:"error,omitempty"`
}

func toItemResponse(item variation.Item) itemResponse {
	return itemResponse{
		ID:         item.ID,
		Name:       item.Name,
		Status:     string(item.Status),
		Progress:   item.Progress,
		Variations: len(item.Variations),
		Error:      item.Err,
	}
}

func (s *Server) handleCapabilities(c *gin.Context) {
	c.JSON(http.StatusOK, s.detector.Detect())
}

func (s *Server) handleGetParams(c *gin.Context) {
	c.JSON(http.StatusOK, s.currentSpec())
}

// handlePatchParams applies a list of typed updates to the editable spec.
// Updates are validated against the schema; the first invalid one rejects the
// whole request and leaves the spec untouched.
func (s *Server) handlePatchParams(c *gin.Context) {
	var updates []params.Update
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.specMu.Lock()
	defer s.specMu.Unlock()

	draft := s.spec.Clone()
	for _, u := range updates {
		if err := draft.Apply(u); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	s.spec = draft
	c.JSON(http.StatusOK, draft)
}

// handleUpload accepts one multipart video file. Non-video MIME types are
// rejected before any queue mutation.
func (s *Server) handleUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "video/") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{
			"error": fmt.Sprintf("unsupported content type %q, expected video/*", contentType),
		})
		return
	}
	if s.settings.MaxUploadBytes > 0 && file.Size > s.settings.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("file exceeds %d byte limit", s.settings.MaxUploadBytes),
		})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer src.Close()

	input, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	item := s.queue.Add(file.Filename, input)
	s.logger.Info().Str("id", item.ID).Str("name", item.Name).Int64("bytes", file.Size).Msg("video queued")
	c.JSON(http.StatusCreated, toItemResponse(item))
}

func (s *Server) handleListQueue(c *gin.Context) {
	items := s.queue.Items()
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleRemoveItem(c *gin.Context) {
	err := s.queue.Remove(c.Param("id"))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, variation.ErrItemNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	}
}

func (s *Server) handleClearQueue(c *gin.Context) {
	s.queue.Clear()
	c.Status(http.StatusNoContent)
}

type startJobRequest struct {
	Count int `json:"count"`
}

// handleStartJob kicks off sequential processing of all pending queue items
// with a snapshot of the current parameter spec. Only one job runs at a time.
func (s *Server) handleStartJob(c *gin.Context) {
	var req startJobRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	count := req.Count
	if count <= 0 {
		count = s.settings.DefaultCount
	}

	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "a job is already running"})
		return
	}
	s.running = true
	s.runMu.Unlock()

	// The job outlives the request; it only stops when the queue drains.
	spec := s.currentSpec()
	go func() {
		defer func() {
			s.runMu.Lock()
			s.running = false
			s.runMu.Unlock()
		}()
		s.queue.Process(context.Background(), s.orch, s.bus, spec, count)
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "started", "count": count})
}

func (s *Server) handleEvents(c *gin.Context) {
	since, _ := strconv.ParseInt(c.Query("since"), 10, 64)
	evts := s.bus.Since(since)
	if evts == nil {
		evts = []events.Event{}
	}
	c.JSON(http.StatusOK, evts)
}

type resultVariation struct {
	Index          int             `json:"index"`
	AppliedFilters []string        `json:"appliedFilters"`
	Metadata       engine.Metadata `json:"metadata"`
}

type resultResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Variations []resultVariation `json:"variations"`
}

func (s *Server) handleListResults(c *gin.Context) {
	out := []resultResponse{}
	for _, item := range s.queue.Items() {
		if item.Status != variation.StatusCompleted {
			continue
		}
		full, ok := s.queue.Get(item.ID)
		if !ok {
			continue
		}
		resp := resultResponse{ID: full.ID, Name: full.Name}
		for i, res := range full.Variations {
			resp.Variations = append(resp.Variations, resultVariation{
				Index:          i + 1,
				AppliedFilters: res.Applied,
				Metadata:       res.Metadata,
			})
		}
		out = append(out, resp)
	}
	c.JSON(http.StatusOK, out)
}

// lookupResult resolves an item ID and 1-based variation number.
func (s *Server) lookupResult(c *gin.Context) (variation.Item, *engine.Result, bool) {
	item, ok := s.queue.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown queue item"})
		return variation.Item{}, nil, false
	}

	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 || n > len(item.Variations) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown variation number"})
		return variation.Item{}, nil, false
	}
	return item, item.Variations[n-1], true
}

func (s *Server) handleDownload(c *gin.Context) {
	item, res, ok := s.lookupResult(c)
	if !ok {
		return
	}
	if res.Released() {
		c.JSON(http.StatusGone, gin.H{"error": "result has been released"})
		return
	}

	ext, contentType := ".mp4", "video/mp4"
	if res.Metadata.Format == "webm" {
		ext, contentType = ".webm", "video/webm"
	}
	baseName := strings.TrimSuffix(item.Name, ".mp4")
	baseName = strings.TrimSuffix(baseName, ".webm")
	filename := fmt.Sprintf("%s_variation_%s%s", baseName, c.Param("n"), ext)

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, res.Output)
}

func (s *Server) handleMetadata(c *gin.Context) {
	_, res, ok := s.lookupResult(c)
	if !ok {
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{
		"appliedFilters": res.Applied,
		"metadata":       res.Metadata,
	})
}
