package services

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// multipartFileHeader builds a real *multipart.FileHeader the way Gin would
// hand it to a handler
func multipartFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("photo", filename)
	assert.NoError(t, err)
	_, err = part.Write(content)
	assert.NoError(t, err)
	assert.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	assert.NoError(t, req.ParseMultipartForm(32<<20))

	_, header, err := req.FormFile("photo")
	assert.NoError(t, err)
	return header
}

func TestLocalStorageService_UploadStoresFileUnderPrefix(t *testing.T) {
	baseDir := t.TempDir()
	store := NewLocalStorageService(baseDir)
	header := multipartFileHeader(t, "before.png", []byte("fake png bytes"))

	key, err := store.UploadFile(header, "work-before-photos")
	assert.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "work-before-photos/"))

	saved, err := os.ReadFile(filepath.Join(baseDir, filepath.FromSlash(key)))
	assert.NoError(t, err)
	assert.Equal(t, []byte("fake png bytes"), saved)
}

func TestLocalStorageService_DeleteRemovesFile(t *testing.T) {
	baseDir := t.TempDir()
	store := NewLocalStorageService(baseDir)
	header := multipartFileHeader(t, "proof.jpg", []byte("proof"))

	key, err := store.UploadFile(header, "payment-proofs")
	assert.NoError(t, err)

	assert.NoError(t, store.DeleteFile(key))
	_, statErr := os.Stat(filepath.Join(baseDir, filepath.FromSlash(key)))
	assert.True(t, os.IsNotExist(statErr))

	// Empty keys are a no-op, matching the S3 implementation.
	assert.NoError(t, store.DeleteFile(""))
}

func TestLocalStorageService_PresignedURLIsStaticPath(t *testing.T) {
	store := NewLocalStorageService(t.TempDir())

	url, err := store.GetPresignedURL("work-after-photos/1_after.png")
	assert.NoError(t, err)
	assert.Equal(t, "/uploads/work-after-photos/1_after.png", url)

	url, err = store.GetPresignedURL("")
	assert.NoError(t, err)
	assert.Empty(t, url)
}
