package usecase

import (
	"context"
	"net/http"
	"path/filepath"
	"strings"

	"internify-backend/internal/domain"
	"internify-backend/pkg/apperror"
	"internify-backend/pkg/logger"
	"internify-backend/pkg/security"

	"github.com/google/uuid"
)

// CVUsecase stores a student's CV ahead of sign-up so the profile can
// reference it.
type CVUsecase struct {
	storage domain.FileStorage
}

func NewCVUsecase(storage domain.FileStorage) *CVUsecase {
	return &CVUsecase{storage: storage}
}

func (u *CVUsecase) Upload(ctx context.Context, fileName string, data []byte) (domain.StoredFile, error) {
	if u.storage == nil {
		return domain.StoredFile{}, apperror.New(http.StatusServiceUnavailable, "CV uploads are not available right now", nil)
	}

	fileName = filepath.Base(strings.TrimSpace(fileName))
	result := security.ValidateCV(fileName, data, http.DetectContentType(data))
	if !result.Valid {
		return domain.StoredFile{}, apperror.BadRequest(result.Error)
	}

	key := "cv/" + uuid.NewString() + result.Extension
	if err := u.storage.Put(ctx, key, security.ContentTypes[result.Extension], data); err != nil {
		logger.Log.Error("CV upload failed", "key", key, "error", err)
		return domain.StoredFile{}, apperror.Internal(err)
	}

	return domain.StoredFile{StorageID: key, FileName: fileName}, nil
}
