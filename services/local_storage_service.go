package services

import (
	"mime/multipart"
	"os"
	"path"
	"path/filepath"

	"github.com/onestep-solution/field-service-api/utils"
)

// LocalStorageService stores uploads on the local filesystem. It backs
// photo storage in development environments where no S3 bucket is
// configured; keys keep the same {prefix}/{filename} shape as S3 keys.
type LocalStorageService struct {
	baseDir string
}

// NewLocalStorageService creates a local photo store rooted at baseDir.
func NewLocalStorageService(baseDir string) *LocalStorageService {
	return &LocalStorageService{baseDir: baseDir}
}

// UploadFile saves the photo under {baseDir}/{prefix}/ and returns its key
func (l *LocalStorageService) UploadFile(fileHeader *multipart.FileHeader, prefix string) (string, error) {
	filename, err := utils.SaveUploadedFile(fileHeader, filepath.Join(l.baseDir, prefix))
	if err != nil {
		return "", err
	}
	return path.Join(prefix, filename), nil
}

// GetPresignedURL returns a static file path; local files need no signing
func (l *LocalStorageService) GetPresignedURL(key string) (string, error) {
	if key == "" {
		return "", nil
	}
	return "/" + path.Join("uploads", key), nil
}

// DeleteFile removes a stored photo
func (l *LocalStorageService) DeleteFile(key string) error {
	if key == "" {
		return nil
	}
	return os.Remove(filepath.Join(l.baseDir, filepath.FromSlash(key)))
}
