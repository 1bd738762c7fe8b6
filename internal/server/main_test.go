package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"testing"
	"time"

	"mumble/internal/auth"
	"mumble/internal/config"
	"mumble/internal/database"
	"mumble/internal/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "server-test-secret"

// setupTestServer builds a server against a throwaway sqlite database and a
// filesystem storage rooted in a temp dir. Auth uses locally signed tokens.
func setupTestServer(t *testing.T) (*Server, *fiber.App) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, database.AutoMigrate(db))

	store, err := storage.NewFSStorage(t.TempDir(), "http://localhost:8080/media")
	require.NoError(t, err)

	cfg := &config.Config{
		Port:           "8080",
		Env:            "test",
		AuthMode:       config.AuthModeLocal,
		JWTSecret:      testJWTSecret,
		AllowedOrigins: "*",
	}

	srv, err := NewServerWithDeps(cfg, db, nil, store, auth.NewLocalVerifier(testJWTSecret))
	require.NoError(t, err)

	app := srv.newApp()
	srv.SetupRoutes(app)
	return srv, app
}

// token signs a short-lived local token for the given subject and username.
func token(t *testing.T, subject, username string) string {
	t.Helper()
	verifier := auth.NewLocalVerifier(testJWTSecret)
	signed, err := verifier.Sign(&auth.Identity{
		Subject:   subject,
		Username:  username,
		Firstname: "Test",
		Lastname:  "User",
	}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + signed
}

// multipartBody builds a multipart form with an optional text field and an
// optional media file.
func multipartBody(t *testing.T, text *string, media []byte, contentType string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if text != nil {
		require.NoError(t, writer.WriteField("text", *text))
	}
	if media != nil {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", `form-data; name="media"; filename="upload.bin"`)
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(media)
		require.NoError(t, err)
	}

	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func doRequest(t *testing.T, app *fiber.App, method, target, authorization string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}
	if contentType != "" {
		req.Header.Set(fiber.HeaderContentType, contentType)
	}
	resp, err := app.Test(req, 10000)
	require.NoError(t, err)
	return resp
}

// createPost creates a text post over HTTP and returns its id.
func createPost(t *testing.T, app *fiber.App, authorization, text string) string {
	t.Helper()
	body, contentType := multipartBody(t, &text, nil, "")
	resp := doRequest(t, app, http.MethodPost, "/posts", authorization, body, contentType)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var view map[string]any
	decode(t, resp, &view)
	id, ok := view["id"].(string)
	require.True(t, ok)
	return id
}

func decode(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, out), "body: %s", data)
}

func strptr(s string) *string {
	return &s
}

// pngBytes builds an image payload of the given size: the signature and
// IHDR chunk of a 1x1 RGBA PNG, zero-padded to size. image.DecodeConfig
// stops after the IHDR, so the padding is never read.
func pngBytes(size int) []byte {
	header := []byte{
		0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n',
		0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R',
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89,
	}
	data := make([]byte, size)
	copy(data, header)
	return data
}
