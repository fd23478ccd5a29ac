package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"luxespace/internal/detach"
	"luxespace/internal/gateway/handler"
	"luxespace/internal/gateway/repository/session"
	"luxespace/internal/lead"
	llmclient "luxespace/internal/llmClient"
	"luxespace/internal/pipeline"
	"luxespace/internal/wizard"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n0000")

func newTestServer(t *testing.T, llm llmclient.Client) *httptest.Server {
	t.Helper()
	runner := detach.New(nil)
	analyzer := pipeline.New(pipeline.Options{
		LLM:        llm,
		Credential: func() string { return "test-key" },
	})
	leads := lead.NewLogger(lead.Options{Runner: runner})
	sessions := session.NewStore(10, time.Hour, func() *wizard.Machine {
		return wizard.New(analyzer, leads, nil)
	})
	h := handler.NewSessionHandler(handler.Options{
		Sessions: sessions,
		Runner:   runner,
	})
	srv := httptest.NewServer(NewMux(h, nil, nil))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = runner.Shutdown(ctx)
	})
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path string, body io.Reader, contentType string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func callView(t *testing.T, srv *httptest.Server, method, path string, wantStatus int) handler.View {
	t.Helper()
	status, body := call(t, srv, method, path, nil, "")
	require.Equal(t, wantStatus, status, string(body))
	var v handler.View
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func patchForm(t *testing.T, srv *httptest.Server, id string, values map[string]string) (int, []byte) {
	t.Helper()
	raw, err := json.Marshal(values)
	require.NoError(t, err)
	return call(t, srv, http.MethodPatch, "/api/sessions/"+id+"/form", bytes.NewReader(raw), "application/json")
}

func uploadImage(t *testing.T, srv *httptest.Server, id string, data []byte) handler.View {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "phong-khach.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	status, body := call(t, srv, http.MethodPut, "/api/sessions/"+id+"/image", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, status, string(body))
	var v handler.View
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func readyForm(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	v := callView(t, srv, http.MethodPost, "/api/sessions", http.StatusCreated)
	id := v.SessionID
	callView(t, srv, http.MethodPost, "/api/sessions/"+id+"/start", http.StatusOK)
	status, body := patchForm(t, srv, id, map[string]string{
		"name":  "Nguyễn An",
		"phone": "0901234567",
		"email": "an@example.com",
		"style": "JAPANDI",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	uploadImage(t, srv, id, pngBytes)
	return id
}

func TestWizardFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t, &llmclient.FakeClient{})

	v := callView(t, srv, http.MethodPost, "/api/sessions", http.StatusCreated)
	require.Equal(t, wizard.StepIntro, v.Step)
	require.NotEmpty(t, v.SessionID)
	id := v.SessionID

	v = callView(t, srv, http.MethodPost, "/api/sessions/"+id+"/start", http.StatusOK)
	require.Equal(t, wizard.StepForm, v.Step)
	require.NotNil(t, v.Form)
	require.Equal(t, "MALE", v.Form.Values.Gender)
	require.Equal(t, "LIVING_ROOM", v.Form.Values.RoomType)
	require.Equal(t, "MODERN", v.Form.Values.Style)
	require.Equal(t, "MEDIUM", v.Form.Values.Budget)
	require.Len(t, v.Form.Choices.Style, 5)

	v = callView(t, srv, http.MethodPost, "/api/sessions/"+id+"/submit", http.StatusUnprocessableEntity)
	require.Equal(t, wizard.StepForm, v.Step)
	require.ElementsMatch(t, []string{"name", "phone", "email", "image"}, keys(v.Form.FieldErrors))

	status, _ := patchForm(t, srv, id, map[string]string{"name": "An"})
	require.Equal(t, http.StatusOK, status)
	v = callView(t, srv, http.MethodGet, "/api/sessions/"+id, http.StatusOK)
	require.NotContains(t, v.Form.FieldErrors, "name")
	require.Contains(t, v.Form.FieldErrors, "phone")

	status, _ = patchForm(t, srv, id, map[string]string{"phone": "0901234567", "email": "an@example.com", "budget": "HIGH"})
	require.Equal(t, http.StatusOK, status)

	v = uploadImage(t, srv, id, pngBytes)
	require.NotNil(t, v.Form.Image)
	require.Equal(t, "phong-khach.png", v.Form.Image.Name)
	status, body := call(t, srv, http.MethodGet, v.Form.Image.PreviewURL, nil, "")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, pngBytes, body)

	v = callView(t, srv, http.MethodPost, "/api/sessions/"+id+"/submit", http.StatusOK)
	require.Equal(t, wizard.StepResult, v.Step)
	require.NotNil(t, v.Result)
	require.NotEmpty(t, v.Result.CurrentSpaceAnalysis)
	require.Len(t, v.Result.Options, 3)
	for _, o := range v.Result.Options {
		require.True(t, strings.HasPrefix(o.ImageURL, "data:image/png;base64,"), o.ImageURL)
		require.NotEmpty(t, o.TypeLabel)
	}

	status, body = call(t, srv, http.MethodGet, "/api/sessions/"+id+"/options/1/image", nil, "")
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, body)
	status, _ = call(t, srv, http.MethodGet, "/api/sessions/"+id+"/options/7/image", nil, "")
	require.Equal(t, http.StatusNotFound, status)

	v = callView(t, srv, http.MethodPost, "/api/sessions/"+id+"/unlock", http.StatusOK)
	require.Equal(t, wizard.StepUnlock, v.Step)
	require.Equal(t, "0901234567", v.Unlock.Phone)

	status, _ = call(t, srv, http.MethodPost, "/api/sessions/"+id+"/start", nil, "")
	require.Equal(t, http.StatusConflict, status)

	v = callView(t, srv, http.MethodPost, "/api/sessions/"+id+"/reset", http.StatusOK)
	require.Equal(t, wizard.StepIntro, v.Step)
	require.Nil(t, v.Form)
}

func TestAnalysisFailureReturnsToFormWithBanner(t *testing.T) {
	srv := newTestServer(t, &llmclient.FakeClient{
		JSONFunc: func(ctx context.Context, req llmclient.JSONRequest) (json.RawMessage, error) {
			return json.RawMessage(`{"currentSpaceAnalysis":"x","options":[]}`), nil
		},
	})
	id := readyForm(t, srv)

	v := callView(t, srv, http.MethodPost, "/api/sessions/"+id+"/submit", http.StatusOK)
	require.Equal(t, wizard.StepForm, v.Step)
	require.NotEmpty(t, v.Error)
	require.Equal(t, "Nguyễn An", v.Form.Values.Name)
	require.Equal(t, "JAPANDI", v.Form.Values.Style)
	require.NotNil(t, v.Form.Image)
}

func TestAsyncSubmitReportsAnalyzing(t *testing.T) {
	release := make(chan struct{})
	srv := newTestServer(t, &llmclient.FakeClient{
		JSONFunc: func(ctx context.Context, req llmclient.JSONRequest) (json.RawMessage, error) {
			select {
			case <-release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			return json.RawMessage(llmclient.FakeAnalysisJSON), nil
		},
	})
	id := readyForm(t, srv)

	v := callView(t, srv, http.MethodPost, "/api/sessions/"+id+"/submit?async=1", http.StatusAccepted)
	require.Equal(t, wizard.StepAnalyzing, v.Step)

	status, _ := patchForm(t, srv, id, map[string]string{"name": "B"})
	require.Equal(t, http.StatusConflict, status)

	close(release)
	require.Eventually(t, func() bool {
		resp, err := srv.Client().Get(srv.URL + "/api/sessions/" + id)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var v handler.View
		if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
			return false
		}
		return v.Step == wizard.StepResult
	}, 3*time.Second, 20*time.Millisecond)
}

func TestRejectsBadInput(t *testing.T) {
	srv := newTestServer(t, &llmclient.FakeClient{})
	v := callView(t, srv, http.MethodPost, "/api/sessions", http.StatusCreated)
	id := v.SessionID
	callView(t, srv, http.MethodPost, "/api/sessions/"+id+"/start", http.StatusOK)

	status, _ := patchForm(t, srv, id, map[string]string{"colour": "red"})
	require.Equal(t, http.StatusBadRequest, status)
	status, _ = patchForm(t, srv, id, map[string]string{"style": "BAROQUE"})
	require.Equal(t, http.StatusBadRequest, status)
	status, _ = call(t, srv, http.MethodPatch, "/api/sessions/"+id+"/form", strings.NewReader("{"), "application/json")
	require.Equal(t, http.StatusBadRequest, status)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "notes.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("plain text, not a photo"))
	require.NoError(t, mw.Close())
	status, _ = call(t, srv, http.MethodPut, "/api/sessions/"+id+"/image", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusUnsupportedMediaType, status)

	buf.Reset()
	mw = multipart.NewWriter(&buf)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="image"; filename="room.png"`)
	hdr.Set("Content-Type", "image/png")
	pw, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, _ = pw.Write([]byte("#!/bin/sh\necho hi\n"))
	require.NoError(t, mw.Close())
	status, _ = call(t, srv, http.MethodPut, "/api/sessions/"+id+"/image", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusUnsupportedMediaType, status)

	status, _ = call(t, srv, http.MethodGet, "/api/sessions/"+id+"/image/nope", nil, "")
	require.Equal(t, http.StatusNotFound, status)
	status, _ = call(t, srv, http.MethodGet, "/api/sessions/missing", nil, "")
	require.Equal(t, http.StatusNotFound, status)
}

func TestReplacedImageTokenStopsResolving(t *testing.T) {
	srv := newTestServer(t, &llmclient.FakeClient{})
	v := callView(t, srv, http.MethodPost, "/api/sessions", http.StatusCreated)
	id := v.SessionID
	callView(t, srv, http.MethodPost, "/api/sessions/"+id+"/start", http.StatusOK)

	first := uploadImage(t, srv, id, pngBytes)
	second := uploadImage(t, srv, id, append([]byte(nil), pngBytes...))
	require.NotEqual(t, first.Form.Image.PreviewURL, second.Form.Image.PreviewURL)

	status, _ := call(t, srv, http.MethodGet, first.Form.Image.PreviewURL, nil, "")
	require.Equal(t, http.StatusNotFound, status)

	v = callView(t, srv, http.MethodDelete, "/api/sessions/"+id+"/image", http.StatusOK)
	require.Nil(t, v.Form.Image)
	status, _ = call(t, srv, http.MethodGet, second.Form.Image.PreviewURL, nil, "")
	require.Equal(t, http.StatusNotFound, status)
}

func TestWatchStreamsStateChanges(t *testing.T) {
	srv := newTestServer(t, &llmclient.FakeClient{})
	v := callView(t, srv, http.MethodPost, "/api/sessions", http.StatusCreated)
	id := v.SessionID

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + id + "/watch"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	type message struct {
		Type string       `json:"type"`
		View handler.View `json:"view"`
	}
	var msg message
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "state", msg.Type)
	require.Equal(t, wizard.StepIntro, msg.View.Step)

	callView(t, srv, http.MethodPost, "/api/sessions/"+id+"/start", http.StatusOK)
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, wizard.StepForm, msg.View.Step)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "pong", msg.Type)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &llmclient.FakeClient{})
	status, body := call(t, srv, http.MethodGet, "/healthz", nil, "")
	require.Equal(t, http.StatusOK, status)
	require.JSONEq(t, `{"ok":true}`, string(body))
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
