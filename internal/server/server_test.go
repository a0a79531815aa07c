package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksphere/internal/auth"
	"tasksphere/internal/service"
	"tasksphere/internal/storage/sqlite"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.Open(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tasks := service.NewTaskService(store,
		service.NewActivityLogger(store, logger),
		service.NewNotifier(store, logger),
		logger)

	srv, err := New(Config{
		Store:     store,
		Tasks:     tasks,
		Tokens:    auth.NewTokenManager("test-secret", auth.DefaultTokenTTL),
		Logger:    logger,
		UploadDir: t.TempDir(),
	})
	require.NoError(t, err)
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// registerUser creates an account through the API and returns its id and token.
func registerUser(t *testing.T, srv *Server, name string) (id, token string) {
	t.Helper()

	w := doJSON(t, srv, http.MethodPost, "/api/users/register", "", map[string]any{
		"name":     name,
		"email":    name + "@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	user := body["user"].(map[string]any)
	return user["id"].(string), body["token"].(string)
}

func createTask(t *testing.T, srv *Server, token string, payload map[string]any) string {
	t.Helper()

	w := doJSON(t, srv, http.MethodPost, "/api/tasks", token, payload)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["task"].(map[string]any)["id"].(string)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ok"])
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t)

	_, token := registerUser(t, srv, "alice")
	require.NotEmpty(t, token)

	// duplicate email
	w := doJSON(t, srv, http.MethodPost, "/api/users/register", "", map[string]any{
		"name": "alice again", "email": "alice@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// short password never reaches the store
	w = doJSON(t, srv, http.MethodPost, "/api/users/register", "", map[string]any{
		"name": "bob", "email": "bob@example.com", "password": "123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodPost, "/api/users/login", "", map[string]any{
		"email": "alice@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["token"])
	assert.NotContains(t, w.Body.String(), "password")

	w = doJSON(t, srv, http.MethodPost, "/api/users/login", "", map[string]any{
		"email": "alice@example.com", "password": "wrong-pass",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid credentials", decode(t, w)["message"])
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	w := doJSON(t, srv, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/tasks", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTaskLifecycle(t *testing.T) {
	srv := newTestServer(t)
	aliceID, aliceToken := registerUser(t, srv, "alice")
	_, bobToken := registerUser(t, srv, "bob")

	taskID := createTask(t, srv, aliceToken, map[string]any{
		"title":       "Review draft",
		"description": "before Friday",
		"assigned_to": aliceID,
	})

	w := doJSON(t, srv, http.MethodGet, "/api/tasks/"+taskID, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	task := decode(t, w)["task"].(map[string]any)
	assert.Equal(t, "pending", task["status"])

	// bob is neither creator nor assignee
	w = doJSON(t, srv, http.MethodPut, "/api/tasks/"+taskID, bobToken, map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, srv, http.MethodPut, "/api/tasks/"+taskID, aliceToken, map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, w.Code)
	task = decode(t, w)["task"].(map[string]any)
	assert.Equal(t, "completed", task["status"])

	w = doJSON(t, srv, http.MethodPut, "/api/tasks/"+taskID, aliceToken, map[string]any{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/tasks?status=completed", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["total"])
	assert.EqualValues(t, 1, body["pages"])

	w = doJSON(t, srv, http.MethodGet, "/api/tasks/me/assigned", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = doJSON(t, srv, http.MethodDelete, "/api/tasks/"+taskID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, srv, http.MethodDelete, "/api/tasks/"+taskID, aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/tasks/"+taskID, aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMalformedTaskID(t *testing.T) {
	srv := newTestServer(t)
	_, token := registerUser(t, srv, "alice")

	w := doJSON(t, srv, http.MethodGet, "/api/tasks/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid identifier", decode(t, w)["message"])

	w = doJSON(t, srv, http.MethodDelete, "/api/tasks/123", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func uploadFile(t *testing.T, srv *Server, token, taskID, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/"+taskID+"/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, req)
	return w
}

func TestUploadAttachment(t *testing.T) {
	srv := newTestServer(t)
	_, token := registerUser(t, srv, "alice")
	taskID := createTask(t, srv, token, map[string]any{"title": "With files"})

	w := uploadFile(t, srv, token, taskID, "my scan.png", []byte("png-bytes"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	file := body["file"].(string)
	assert.Regexp(t, `^/uploads/\d+-my-scan\.png$`, file)
	assert.Contains(t, body["file_url"], file)

	// the stored file is on disk under the sanitized name
	entries, err := os.ReadDir(srv.uploadDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Base(file), entries[0].Name())

	w = doJSON(t, srv, http.MethodGet, "/api/tasks/"+taskID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	task := decode(t, w)["task"].(map[string]any)
	attachments := task["attachments"].([]any)
	require.Len(t, attachments, 1)
	assert.Equal(t, file, attachments[0])
}

func TestUploadRejectsBadFiles(t *testing.T) {
	srv := newTestServer(t)
	_, token := registerUser(t, srv, "alice")
	taskID := createTask(t, srv, token, map[string]any{"title": "Guarded"})

	w := uploadFile(t, srv, token, taskID, "malware.exe", []byte("MZ"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = uploadFile(t, srv, token, taskID, "huge.pdf", bytes.Repeat([]byte("a"), maxUploadSize+1))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// neither rejection left a trace
	entries, err := os.ReadDir(srv.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	w = doJSON(t, srv, http.MethodGet, "/api/tasks/"+taskID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	task := decode(t, w)["task"].(map[string]any)
	assert.Nil(t, task["attachments"])
}

func TestCommentEndpoints(t *testing.T) {
	srv := newTestServer(t)
	_, aliceToken := registerUser(t, srv, "alice")
	_, bobToken := registerUser(t, srv, "bob")
	taskID := createTask(t, srv, aliceToken, map[string]any{"title": "Discussed"})

	w := doJSON(t, srv, http.MethodPost, "/api/tasks/"+taskID+"/comment", bobToken, map[string]any{"text": "on it"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	comment := decode(t, w)["comment"].(map[string]any)
	commentID := comment["id"].(string)

	// empty text fails validation
	w = doJSON(t, srv, http.MethodPost, "/api/tasks/"+taskID+"/comment", bobToken, map[string]any{"text": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// alice is neither the author nor an admin
	w = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/tasks/%s/comment/%s", taskID, commentID), aliceToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/tasks/%s/comment/%s", taskID, commentID), bobToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/tasks/%s/comment/%s", taskID, commentID), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestActivityEndpoints(t *testing.T) {
	srv := newTestServer(t)
	_, token := registerUser(t, srv, "alice")
	taskID := createTask(t, srv, token, map[string]any{"title": "Audited"})

	w := doJSON(t, srv, http.MethodPut, "/api/tasks/"+taskID, token, map[string]any{"status": "in-progress"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/activity/task/"+taskID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 2, body["count"])
	logs := body["logs"].([]any)
	assert.Equal(t, "Status Updated", logs[0].(map[string]any)["action"])

	w = doJSON(t, srv, http.MethodGet, "/api/activity/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["count"])
}

func TestNotificationEndpoints(t *testing.T) {
	srv := newTestServer(t)
	_, aliceToken := registerUser(t, srv, "alice")
	bobID, bobToken := registerUser(t, srv, "bob")

	createTask(t, srv, aliceToken, map[string]any{"title": "For bob", "assigned_to": bobID})

	w := doJSON(t, srv, http.MethodGet, "/api/notifications", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	notes := decode(t, w)["notifications"].([]any)
	require.Len(t, notes, 1)
	note := notes[0].(map[string]any)
	assert.Equal(t, false, note["read"])
	noteID := note["id"].(string)

	// alice cannot mark bob's notification
	w = doJSON(t, srv, http.MethodPut, "/api/notifications/"+noteID+"/read", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, srv, http.MethodPut, "/api/notifications/"+noteID+"/read", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["notification"].(map[string]any)["read"])

	w = doJSON(t, srv, http.MethodDelete, "/api/notifications/clear", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/notifications", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["notifications"])
}

func TestListUsersAdminOnly(t *testing.T) {
	srv := newTestServer(t)
	_, token := registerUser(t, srv, "alice")

	w := doJSON(t, srv, http.MethodGet, "/api/users", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestLoginRateLimit(t *testing.T) {
	srv := newTestServer(t)

	var last int
	for i := 0; i < 12; i++ {
		w := doJSON(t, srv, http.MethodPost, "/api/users/login", "", map[string]any{
			"email": "alice@example.com", "password": "wrong",
		})
		last = w.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
