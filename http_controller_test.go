package taskapp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	taskapp "github.com/Buanaoda/task-app"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*fiber.App, *memUserStore, *memTaskStore) {
	t.Helper()

	users := newMemUserStore()
	tasks := newMemTaskStore()

	accounts := taskapp.NewAccounts(users, testConfig()).
		WithTasks(tasks)

	controller := taskapp.NewController(accounts, tasks)

	app := fiber.New()
	controller.RegisterRoutes(app)

	return app, users, tasks
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	res, err := app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]any{}
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	if len(data) > 0 && json.Valid(data) && data[0] == '{' {
		require.NoError(t, json.Unmarshal(data, &out))
	}

	return res.StatusCode, out
}

func signupOverHTTP(t *testing.T, app *fiber.App, email string) (userID, token string) {
	t.Helper()

	status, body := doJSON(t, app, "POST", "/users", "", map[string]any{
		"name":     "Joseph",
		"email":    email,
		"password": "red12345!",
		"age":      30,
	})
	require.Equal(t, fiber.StatusCreated, status)

	user, ok := body["user"].(map[string]any)
	require.True(t, ok)

	token, ok = body["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	userID, _ = user["id"].(string)
	require.NotEmpty(t, userID)

	return userID, token
}

func TestHTTPSignup(t *testing.T) {
	app, _, _ := newTestApp(t)

	_, token := signupOverHTTP(t, app, "joseph@example.com")

	// the response never leaks the hash or the token list
	status, body := doJSON(t, app, "GET", "/users/me", token, nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.NotContains(t, body, "password_hash")
	assert.NotContains(t, body, "tokens")
	assert.Equal(t, "joseph@example.com", body["email"])
}

func TestHTTPSignupRejectsBadPayload(t *testing.T) {
	app, _, _ := newTestApp(t)

	status, body := doJSON(t, app, "POST", "/users", "", map[string]any{
		"name":     "Joseph",
		"email":    "joseph@example.com",
		"password": "short",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.NotEmpty(t, body["error"])
}

func TestHTTPLoginAndLogout(t *testing.T) {
	app, _, _ := newTestApp(t)
	signupOverHTTP(t, app, "joseph@example.com")

	status, body := doJSON(t, app, "POST", "/users/login", "", map[string]any{
		"email":    "joseph@example.com",
		"password": "red12345!",
	})
	require.Equal(t, fiber.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	status, _ = doJSON(t, app, "POST", "/users/logout", token, nil)
	assert.Equal(t, fiber.StatusOK, status)

	// revoked session no longer passes the gate
	status, _ = doJSON(t, app, "GET", "/users/me", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestHTTPLogoutAll(t *testing.T) {
	app, _, _ := newTestApp(t)
	_, first := signupOverHTTP(t, app, "joseph@example.com")

	status, body := doJSON(t, app, "POST", "/users/login", "", map[string]any{
		"email":    "joseph@example.com",
		"password": "red12345!",
	})
	require.Equal(t, fiber.StatusOK, status)
	second, _ := body["token"].(string)

	status, _ = doJSON(t, app, "POST", "/users/logoutAll", first, nil)
	require.Equal(t, fiber.StatusOK, status)

	for _, token := range []string{first, second} {
		status, _ = doJSON(t, app, "GET", "/users/me", token, nil)
		assert.Equal(t, fiber.StatusUnauthorized, status)
	}
}

func TestHTTPLoginFailureIsUniform(t *testing.T) {
	app, _, _ := newTestApp(t)
	signupOverHTTP(t, app, "joseph@example.com")

	wrongStatus, wrongBody := doJSON(t, app, "POST", "/users/login", "", map[string]any{
		"email":    "joseph@example.com",
		"password": "nope1234!",
	})
	unknownStatus, unknownBody := doJSON(t, app, "POST", "/users/login", "", map[string]any{
		"email":    "nobody@example.com",
		"password": "red12345!",
	})

	assert.Equal(t, fiber.StatusBadRequest, wrongStatus)
	assert.Equal(t, wrongStatus, unknownStatus)
	assert.Equal(t, wrongBody["error"], unknownBody["error"])
}

func TestHTTPGateRejectsWithoutToken(t *testing.T) {
	app, _, _ := newTestApp(t)

	protected := []struct {
		method string
		path   string
	}{
		{"GET", "/users/me"},
		{"PATCH", "/users/me"},
		{"DELETE", "/users/me"},
		{"POST", "/users/logout"},
		{"POST", "/users/logoutAll"},
		{"GET", "/tasks"},
		{"POST", "/tasks"},
	}

	for _, tt := range protected {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			status, _ := doJSON(t, app, tt.method, tt.path, "", nil)
			assert.Equal(t, fiber.StatusUnauthorized, status)
		})
	}
}

func TestHTTPUpdateMe(t *testing.T) {
	app, _, _ := newTestApp(t)
	_, token := signupOverHTTP(t, app, "joseph@example.com")

	status, body := doJSON(t, app, "PATCH", "/users/me", token, map[string]any{
		"name": "Joe",
		"age":  31,
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "Joe", body["name"])

	status, body = doJSON(t, app, "PATCH", "/users/me", token, map[string]any{
		"height": 180,
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid updates", body["error"])
}

func TestHTTPDeleteMe(t *testing.T) {
	app, users, tasks := newTestApp(t)
	userID, token := signupOverHTTP(t, app, "joseph@example.com")

	status, created := doJSON(t, app, "POST", "/tasks", token, map[string]any{
		"description": "write report",
	})
	require.Equal(t, fiber.StatusCreated, status)
	require.NotEmpty(t, created["id"])

	status, _ = doJSON(t, app, "DELETE", "/users/me", token, nil)
	require.Equal(t, fiber.StatusOK, status)

	_, err := users.GetByID(context.Background(), userID)
	assert.Error(t, err)

	owned, err := tasks.ListByOwner(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, owned)

	// the deleted account's token is dead
	status, _ = doJSON(t, app, "GET", "/users/me", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestHTTPTaskCRUD(t *testing.T) {
	app, _, _ := newTestApp(t)
	_, token := signupOverHTTP(t, app, "joseph@example.com")

	status, created := doJSON(t, app, "POST", "/tasks", token, map[string]any{
		"description": "buy milk",
	})
	require.Equal(t, fiber.StatusCreated, status)
	taskID, _ := created["id"].(string)
	require.NotEmpty(t, taskID)

	status, fetched := doJSON(t, app, "GET", "/tasks/"+taskID, token, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "buy milk", fetched["description"])

	status, updated := doJSON(t, app, "PATCH", "/tasks/"+taskID, token, map[string]any{
		"completed": true,
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, updated["completed"])

	status, body := doJSON(t, app, "PATCH", "/tasks/"+taskID, token, map[string]any{
		"owner_id": "someone-else",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "invalid updates", body["error"])

	status, _ = doJSON(t, app, "DELETE", "/tasks/"+taskID, token, nil)
	require.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, app, "GET", "/tasks/"+taskID, token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestHTTPTasksAreOwnerScoped(t *testing.T) {
	app, _, _ := newTestApp(t)
	_, ownerToken := signupOverHTTP(t, app, "joseph@example.com")
	_, otherToken := signupOverHTTP(t, app, "mike@example.com")

	status, created := doJSON(t, app, "POST", "/tasks", ownerToken, map[string]any{
		"description": "private task",
	})
	require.Equal(t, fiber.StatusCreated, status)
	taskID, _ := created["id"].(string)

	// another user cannot see, change, or delete it
	status, _ = doJSON(t, app, "GET", "/tasks/"+taskID, otherToken, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doJSON(t, app, "PATCH", "/tasks/"+taskID, otherToken, map[string]any{
		"completed": true,
	})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = doJSON(t, app, "DELETE", "/tasks/"+taskID, otherToken, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, list := doJSON(t, app, "GET", "/tasks", otherToken, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, list)
}

func TestHTTPListTasksCompletedFilter(t *testing.T) {
	app, _, _ := newTestApp(t)
	_, token := signupOverHTTP(t, app, "joseph@example.com")

	for i, completed := range []bool{true, false, true} {
		status, _ := doJSON(t, app, "POST", "/tasks", token, map[string]any{
			"description": fmt.Sprintf("task %d", i),
			"completed":   completed,
		})
		require.Equal(t, fiber.StatusCreated, status)
	}

	req := httptest.NewRequest("GET", "/tasks?completed=true", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, res.StatusCode)

	var listed []map[string]any
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &listed))
	assert.Len(t, listed, 2)
}

func TestHTTPGetUser(t *testing.T) {
	app, _, _ := newTestApp(t)
	userID, _ := signupOverHTTP(t, app, "joseph@example.com")

	// The profile read is public: no Authorization header required,
	// and the body carries only the redacted shape.
	status, body := doJSON(t, app, "GET", "/users/"+userID, "", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "joseph@example.com", body["email"])
	assert.NotContains(t, body, "password_hash")
	assert.NotContains(t, body, "tokens")

	status, _ = doJSON(t, app, "GET", "/users/not-a-uuid", "", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func doAvatarUpload(t *testing.T, app *fiber.App, token string, data []byte) int {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("avatar", "avatar.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/users/me/avatar", &body)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)

	res, err := app.Test(req, -1)
	require.NoError(t, err)
	return res.StatusCode
}

func TestHTTPAvatarLifecycle(t *testing.T) {
	app, _, _ := newTestApp(t)
	userID, token := signupOverHTTP(t, app, "joseph@example.com")

	// deleting before any upload finds nothing to remove
	status, body := doJSON(t, app, "DELETE", "/users/me/avatar", token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, "no avatar picture found", body["error"])

	status = doAvatarUpload(t, app, token, testImage(t, 100, 60, encodePNG))
	require.Equal(t, fiber.StatusOK, status)

	// the stored avatar is served publicly as a PNG
	req := httptest.NewRequest("GET", "/users/"+userID+"/avatar", nil)
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get(fiber.HeaderContentType))

	status, _ = doJSON(t, app, "DELETE", "/users/me/avatar", token, nil)
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, app, "DELETE", "/users/me/avatar", token, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}
