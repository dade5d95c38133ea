package server

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-variator/internal/capability"
	"video-variator/internal/config"
	"video-variator/internal/engine"
	"video-variator/internal/events"
	"video-variator/internal/filterchain"
	"video-variator/internal/params"
	"video-variator/internal/variation"
)

// stubEngine echoes its input and reports itself ready.
type stubEngine struct{}

func (stubEngine) Name() string                         { return "stub" }
func (stubEngine) State() engine.State                  { return engine.StateReady }
func (stubEngine) Initialize(ctx context.Context) error { return nil }

func (stubEngine) Process(ctx context.Context, input []byte, recipe filterchain.Recipe, onProgress engine.ProgressFunc) (*engine.Result, error) {
	if onProgress != nil {
		onProgress(50)
	}
	out := append([]byte(nil), input...)
	return &engine.Result{
		Output:   out,
		Applied:  append(append([]string(nil), recipe.Applied...), "stub"),
		Metadata: engine.Metadata{Size: int64(len(out)), Format: "mp4"},
	}, nil
}

func newTestServer(t *testing.T) (*Server, *variation.Queue) {
	t.Helper()

	bus := events.NewBus(500)
	queue := variation.NewQueue()
	full := engine.NewFullEngine(zerolog.Nop(), "mp4")
	selector := engine.NewSelector(stubEngine{}, nil, engine.NewCanvasEngine(zerolog.Nop()), zerolog.Nop())
	builder := filterchain.NewBuilder(params.NewSamplerWithSource(rand.NewSource(1)))
	orch := variation.New(selector, builder, bus, zerolog.Nop())
	detector := capability.NewDetector(full)

	settings := config.DefaultSettings()
	settings.DefaultCount = 2
	return New(settings, orch, queue, bus, detector, zerolog.Nop()), queue
}

// uploadRequest builds a multipart upload with an explicit part content type.
func uploadRequest(t *testing.T, name, contentType string, payload []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/videos", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// TestUploadRejectsNonVideo checks MIME validation happens before any state
// mutation.
func TestUploadRejectsNonVideo(t *testing.T) {
	s, queue := newTestServer(t)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, uploadRequest(t, "notes.txt", "text/plain", []byte("hi")))

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	assert.Empty(t, queue.Items())
}

// TestUploadQueuesVideo accepts a video/* upload as pending.
func TestUploadQueuesVideo(t *testing.T) {
	s, queue := newTestServer(t)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, uploadRequest(t, "clip.mp4", "video/mp4", []byte("bytes")))

	require.Equal(t, http.StatusCreated, w.Code)
	items := queue.Items()
	require.Len(t, items, 1)
	assert.Equal(t, variation.StatusPending, items[0].Status)
	assert.Equal(t, "clip.mp4", items[0].Name)
}

// TestPatchParamsValidation covers the typed-update boundary.
func TestPatchParamsValidation(t *testing.T) {
	s, _ := newTestServer(t)

	body := `[{"param":"zoom","field":"min","value":0.02},{"param":"zoom","field":"enabled","enabled":true}]`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPatch, "/api/params", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var spec params.Spec
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &spec))
	assert.Equal(t, 0.02, spec.Zoom.Min)
	assert.True(t, spec.Zoom.Enabled)

	// An unknown parameter rejects the whole batch.
	body = `[{"param":"zoom","field":"min","value":0.5},{"param":"bogus","field":"enabled","enabled":true}]`
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPatch, "/api/params", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/params", nil))
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &spec))
	assert.Equal(t, 0.02, spec.Zoom.Min, "failed batch must not change the spec")
}

// TestJobLifecycle uploads, starts a job and downloads a produced variation.
func TestJobLifecycle(t *testing.T) {
	s, queue := newTestServer(t)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, uploadRequest(t, "clip.mp4", "video/mp4", []byte("video-bytes")))
	require.Equal(t, http.StatusCreated, w.Code)

	var item struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewBufferString(`{"count":2}`))
	req.Header.Set("Content-Type", "application/json")
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		got, ok := queue.Get(item.ID)
		return ok && got.Status == variation.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	// Progress events are visible through the polling endpoint.
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/events?since=0", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var evts []events.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &evts))
	assert.NotEmpty(t, evts)

	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/results/"+item.ID+"/1/download", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video-bytes", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "clip_variation_1.mp4")

	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/results/"+item.ID+"/1/metadata", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "appliedFilters")
}

// TestRemoveQueueItem covers the pending-only removal rule over HTTP.
func TestRemoveQueueItem(t *testing.T) {
	s, queue := newTestServer(t)

	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, uploadRequest(t, "clip.mp4", "video/mp4", []byte("x")))
	require.Equal(t, http.StatusCreated, w.Code)
	id := queue.Items()[0].ID

	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/queue/"+id, nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/queue/"+id, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
