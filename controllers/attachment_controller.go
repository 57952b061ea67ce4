package controllers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"attachd/services"
	"attachd/utils"
)

// maxUploadSize caps multipart uploads at 5 MB.
const maxUploadSize = 5 << 20

// AttachmentService is the pipeline surface the controller drives.
type AttachmentService interface {
	Upload(ctx context.Context, ownerID *int64, fileName, fileType string, data []byte, size int64) (*services.UploadResult, error)
	Download(ctx context.Context, fileName string, ownerID, attachmentID *int64) (*services.DownloadResult, error)
	List(ctx context.Context, ownerID *int64, page, pageSize int) (*services.ListEnvelope, error)
}

// AttachmentController exposes upload, listing, and download over HTTP.
type AttachmentController struct {
	svc AttachmentService
}

// NewAttachmentController creates a new AttachmentController instance.
func NewAttachmentController(svc AttachmentService) *AttachmentController {
	return &AttachmentController{svc: svc}
}

// Upload accepts a multipart file plus a userId form/query value and runs the
// upload pipeline.
func (a *AttachmentController) Upload(ctx *gin.Context) {
	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "no file uploaded")
		return
	}
	defer file.Close()

	if header.Size > maxUploadSize {
		utils.Error(ctx, http.StatusBadRequest, 40001, "file size exceeds the 5 MB limit")
		return
	}

	ownerID, ok := optionalInt64(ctx, formOrQuery(ctx, "userId"))
	if !ok {
		return
	}

	// Re-check the limit while reading; the declared header size is not
	// trustworthy.
	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize+1))
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to read uploaded file")
		return
	}
	if len(data) > maxUploadSize {
		utils.Error(ctx, http.StatusBadRequest, 40001, "file size exceeds the 5 MB limit")
		return
	}

	fileType := header.Header.Get("Content-Type")
	result, err := a.svc.Upload(ctx.Request.Context(), ownerID, header.Filename, fileType, data, int64(len(data)))
	if err != nil {
		writeError(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

// List returns one page of attachments, optionally scoped to a userId.
func (a *AttachmentController) List(ctx *gin.Context) {
	ownerID, ok := optionalInt64(ctx, ctx.Query("userId"))
	if !ok {
		return
	}
	// Unparseable page/size values fall through to the pipeline defaults.
	page, _ := strconv.Atoi(ctx.Query("page"))
	pageSize, _ := strconv.Atoi(ctx.Query("size"))

	envelope, err := a.svc.List(ctx.Request.Context(), ownerID, page, pageSize)
	if err != nil {
		writeError(ctx, err)
		return
	}
	utils.Success(ctx, envelope)
}

// Download streams an attachment's bytes back to its owner.
func (a *AttachmentController) Download(ctx *gin.Context) {
	fileName := ctx.Param("filename")
	ownerID, ok := optionalInt64(ctx, ctx.Query("userId"))
	if !ok {
		return
	}
	attachmentID, ok := optionalInt64(ctx, ctx.Query("attachmentId"))
	if !ok {
		return
	}

	result, err := a.svc.Download(ctx.Request.Context(), fileName, ownerID, attachmentID)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", "attachment; filename="+result.SuggestedFileName)
	ctx.Data(http.StatusOK, result.ContentType, result.Data)
}

func formOrQuery(ctx *gin.Context, key string) string {
	if v := ctx.PostForm(key); v != "" {
		return v
	}
	return ctx.Query(key)
}

// optionalInt64 parses an optional numeric parameter. An empty value yields
// nil; a malformed one writes a 400 and reports false.
func optionalInt64(ctx *gin.Context, raw string) (*int64, bool) {
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "parameter must be an integer")
		return nil, false
	}
	return &v, true
}
