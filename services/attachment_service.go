// Package services implements the attachment pipelines: upload, download,
// and listing. Each pipeline is stateless; all shared state lives in the two
// backing stores.
package services

import (
	"context"

	"go.uber.org/zap"

	"attachd/apperr"
	"attachd/models"
	"attachd/repository"
	"attachd/storage"
)

// DefaultPageSize is substituted when the caller omits a page size or sends
// one below 1.
const DefaultPageSize = 15

// allowedFileTypes is the MIME allow-list for uploads.
var allowedFileTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// AttachmentStore is the metadata-store surface the pipelines need.
type AttachmentStore interface {
	Create(ctx context.Context, att *models.Attachment) error
	GetByID(ctx context.Context, id int64) (*models.Attachment, error)
	Page(ctx context.Context, ownerID *int64, offset, limit int) (*repository.AttachmentPage, error)
}

// UserDirectory answers whether an owner id refers to a registered user.
type UserDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// UploadResult is returned on a fully successful upload.
type UploadResult struct {
	AttachmentID int64  `json:"attachmentId"`
	FileName     string `json:"fileName"`
}

// DownloadResult carries the blob plus what the transport needs to set a
// content-disposition filename and a generic binary content type.
type DownloadResult struct {
	Data              []byte
	SuggestedFileName string
	ContentType       string
}

// ListEnvelope is the pagination response, derived fresh per request from the
// store-reported page result. Never cached.
type ListEnvelope struct {
	TotalFiles     int64               `json:"totalFiles"`
	FilesReceived  int                 `json:"filesReceived"`
	CurrentPage    int                 `json:"currentPage"`
	TotalPages     int                 `json:"totalPages"`
	RemainingFiles int64               `json:"remainingFiles"`
	Files          []models.Attachment `json:"files"`
}

// AttachmentService orchestrates the three pipelines over the metadata store,
// the user directory, and the object store.
type AttachmentService struct {
	attachments AttachmentStore
	users       UserDirectory
	blobs       storage.BlobStore
	logger      *zap.Logger
}

// NewAttachmentService creates an AttachmentService. A nil logger is replaced
// with a no-op one.
func NewAttachmentService(attachments AttachmentStore, users UserDirectory, blobs storage.BlobStore, logger *zap.Logger) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentService{attachments: attachments, users: users, blobs: blobs, logger: logger}
}

// Upload validates the request, creates the metadata record first to mint the
// id, then writes the blob under the derived key. If the object write fails
// the metadata row is left in place: there is no cross-store transaction, and
// the orphaned row is a documented limitation rather than a silent rollback.
func (s *AttachmentService) Upload(ctx context.Context, ownerID *int64, fileName, fileType string, data []byte, size int64) (*UploadResult, error) {
	if ownerID == nil {
		return nil, apperr.New(apperr.KindInvalidInput, "enter userId")
	}
	if *ownerID < 1 {
		return nil, apperr.New(apperr.KindInvalidInput, "userId must be positive")
	}
	exists, err := s.users.Exists(ctx, *ownerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "user directory lookup failed", err)
	}
	if !exists {
		return nil, apperr.New(apperr.KindInvalidInput, "unknown owner")
	}
	if fileName == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "invalid file name")
	}
	if _, ok := allowedFileTypes[fileType]; !ok {
		return nil, apperr.New(apperr.KindInvalidInput, "unsupported file type: only JPG, PNG, and DOCX files are accepted")
	}

	// Metadata first: the store-generated id is the uniqueness root of the
	// object key, so it must exist before any object write.
	att := &models.Attachment{
		FileName: fileName,
		FileType: fileType,
		OwnerID:  *ownerID,
	}
	if err := s.attachments.Create(ctx, att); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to create attachment record", err)
	}

	key := ObjectKey(att.ID, fileName)
	if err := s.blobs.Put(ctx, key, data, fileType); err != nil {
		// The metadata row stays behind as an orphan; download of it will
		// report an internal inconsistency until the blob is repaired.
		s.logger.Warn("object write failed after metadata commit, orphaned record remains",
			zap.Int64("attachment_id", att.ID),
			zap.String("key", key),
			zap.Int64("size", size),
			zap.Error(err))
		return nil, apperr.Wrap(apperr.KindUpstreamStorage, "object store write failed", err)
	}

	s.logger.Info("attachment uploaded",
		zap.Int64("attachment_id", att.ID),
		zap.Int64("owner_id", *ownerID),
		zap.String("key", key),
		zap.Int64("size", size))
	return &UploadResult{AttachmentID: att.ID, FileName: fileName}, nil
}

// Download authorizes and fetches one attachment's bytes. The caller must
// present the owning user id, the attachment id, and the exact stored
// filename; a mismatch on owner or filename is Forbidden without saying
// which check failed.
func (s *AttachmentService) Download(ctx context.Context, fileName string, ownerID, attachmentID *int64) (*DownloadResult, error) {
	if ownerID == nil {
		return nil, apperr.New(apperr.KindInvalidInput, "enter userId")
	}
	if *ownerID < 1 {
		return nil, apperr.New(apperr.KindInvalidInput, "userId must be positive")
	}
	if attachmentID == nil {
		return nil, apperr.New(apperr.KindInvalidInput, "enter attachmentId")
	}
	if *attachmentID < 1 {
		return nil, apperr.New(apperr.KindInvalidInput, "attachmentId must be positive")
	}

	att, err := s.attachments.GetByID(ctx, *attachmentID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load attachment record", err)
	}
	if att == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "attachment %d does not exist", *attachmentID)
	}
	if att.OwnerID != *ownerID || att.FileName != fileName {
		return nil, apperr.New(apperr.KindForbidden, "no matching file found for the given user, filename, and attachment id")
	}

	key := ObjectKey(att.ID, att.FileName)
	data, err := s.blobs.Get(ctx, key)
	if err != nil {
		if storage.IsNotFound(err) {
			// The metadata row exists but the blob does not: an orphan from a
			// failed upload, not an ordinary missing resource.
			s.logger.Error("attachment object missing for existing metadata record",
				zap.Int64("attachment_id", att.ID),
				zap.String("key", key))
			return nil, apperr.Wrap(apperr.KindInternal, "attachment object missing from store", err)
		}
		return nil, apperr.Wrap(apperr.KindUpstreamStorage, "problem retrieving file from object store: "+err.Error(), err)
	}

	return &DownloadResult{
		Data:              data,
		SuggestedFileName: key,
		ContentType:       "application/octet-stream",
	}, nil
}

// List returns one page of attachments, newest first, optionally scoped to an
// owner. Page numbers are 1-based at this interface and translated to offsets
// internally.
func (s *AttachmentService) List(ctx context.Context, ownerID *int64, page, pageSize int) (*ListEnvelope, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if ownerID != nil && *ownerID < 1 {
		return nil, apperr.New(apperr.KindInvalidInput, "userId must be positive")
	}

	result, err := s.attachments.Page(ctx, ownerID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to query attachments", err)
	}

	// An owner filter is a targeted query: zero hits means the owner has no
	// files here, reported as not-found rather than an empty success.
	if ownerID != nil && len(result.Items) == 0 {
		return nil, apperr.New(apperr.KindNotFound, "no attachments for this owner")
	}

	remaining := result.TotalCount - int64(page)*int64(pageSize)
	if remaining < 0 {
		remaining = 0
	}
	files := result.Items
	if files == nil {
		files = []models.Attachment{}
	}
	return &ListEnvelope{
		TotalFiles:     result.TotalCount,
		FilesReceived:  len(result.Items),
		CurrentPage:    page,
		TotalPages:     result.TotalPages,
		RemainingFiles: remaining,
		Files:          files,
	}, nil
}
