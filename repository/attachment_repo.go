// Package repository holds the gorm-backed data access for users and
// attachments. Pipelines depend on the interfaces in services, not on gorm,
// so these types stay thin.
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"attachd/models"
)

// AttachmentPage is the raw page result the metadata store reports. The
// response envelope is derived from it fresh on every request.
type AttachmentPage struct {
	Items      []models.Attachment
	TotalCount int64
	TotalPages int
}

// AttachmentRepository persists attachment metadata in MySQL.
type AttachmentRepository struct {
	db *gorm.DB
}

// NewAttachmentRepository creates an AttachmentRepository.
func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// Create inserts the record and fills in the generated id.
func (r *AttachmentRepository) Create(ctx context.Context, att *models.Attachment) error {
	if err := r.db.WithContext(ctx).Create(att).Error; err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// GetByID loads one attachment. Returns (nil, nil) when the id does not exist.
func (r *AttachmentRepository) GetByID(ctx context.Context, id int64) (*models.Attachment, error) {
	var att models.Attachment
	err := r.db.WithContext(ctx).First(&att, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get attachment %d: %w", id, err)
	}
	return &att, nil
}

// Page queries one page of attachments sorted newest first, optionally scoped
// to an owner. Ties on the timestamp keep insertion order.
func (r *AttachmentRepository) Page(ctx context.Context, ownerID *int64, offset, limit int) (*AttachmentPage, error) {
	query := r.db.WithContext(ctx).Model(&models.Attachment{})
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count attachments: %w", err)
	}

	var items []models.Attachment
	err := query.Order("last_updated_on DESC, id ASC").Offset(offset).Limit(limit).Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}

	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &AttachmentPage{Items: items, TotalCount: total, TotalPages: totalPages}, nil
}
