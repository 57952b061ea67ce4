package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attachd/apperr"
	"attachd/models"
	"attachd/repository"
	"attachd/storage"
)

// fakeAttachmentStore keeps records in memory with auto-incremented ids and
// mirrors the repository's page semantics: newest first, ties by insertion
// order.
type fakeAttachmentStore struct {
	nextID    int64
	records   map[int64]*models.Attachment
	createErr error
}

func newFakeAttachmentStore() *fakeAttachmentStore {
	return &fakeAttachmentStore{records: map[int64]*models.Attachment{}}
}

func (f *fakeAttachmentStore) Create(_ context.Context, att *models.Attachment) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.nextID++
	att.ID = f.nextID
	if att.LastUpdatedOn.IsZero() {
		att.LastUpdatedOn = time.Now()
	}
	stored := *att
	f.records[att.ID] = &stored
	return nil
}

func (f *fakeAttachmentStore) GetByID(_ context.Context, id int64) (*models.Attachment, error) {
	att, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	copied := *att
	return &copied, nil
}

func (f *fakeAttachmentStore) Page(_ context.Context, ownerID *int64, offset, limit int) (*repository.AttachmentPage, error) {
	var all []models.Attachment
	for _, att := range f.records {
		if ownerID != nil && att.OwnerID != *ownerID {
			continue
		}
		all = append(all, *att)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].LastUpdatedOn.Equal(all[j].LastUpdatedOn) {
			return all[i].LastUpdatedOn.After(all[j].LastUpdatedOn)
		}
		return all[i].ID < all[j].ID
	})
	total := int64(len(all))
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	totalPages := 0
	if limit > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &repository.AttachmentPage{Items: all[offset:end], TotalCount: total, TotalPages: totalPages}, nil
}

type fakeUserDirectory struct {
	users map[int64]bool
	err   error
}

func (f *fakeUserDirectory) Exists(_ context.Context, id int64) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.users[id], nil
}

// fakeBlobStore stores blobs in a map; putHook observes each write before it
// lands, and putErr/getErr force failures.
type fakeBlobStore struct {
	blobs   map[string][]byte
	putHook func(key string)
	putErr  error
	getErr  error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func (f *fakeBlobStore) Put(_ context.Context, key string, data []byte, _ string) error {
	if f.putHook != nil {
		f.putHook(key)
	}
	if f.putErr != nil {
		return f.putErr
	}
	f.blobs[key] = append([]byte(nil), data...)
	return nil
}

func (f *fakeBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.blobs[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return append([]byte(nil), data...), nil
}

func ptr(v int64) *int64 { return &v }

func newTestService() (*AttachmentService, *fakeAttachmentStore, *fakeUserDirectory, *fakeBlobStore) {
	atts := newFakeAttachmentStore()
	users := &fakeUserDirectory{users: map[int64]bool{1: true, 2: true}}
	blobs := newFakeBlobStore()
	return NewAttachmentService(atts, users, blobs, nil), atts, users, blobs
}

func TestUploadDownloadRoundTrip(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()
	payload := []byte("binary image bytes")

	res, err := svc.Upload(ctx, ptr(1), "f.png", "image/png", payload, int64(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, "f.png", res.FileName)
	require.Positive(t, res.AttachmentID)

	got, err := svc.Download(ctx, "f.png", ptr(1), ptr(res.AttachmentID))
	require.NoError(t, err)
	assert.Equal(t, payload, got.Data)
	assert.Equal(t, fmt.Sprintf("%d_f.png", res.AttachmentID), got.SuggestedFileName)
	assert.Equal(t, "application/octet-stream", got.ContentType)
}

func TestUploadKeysNeverCollide(t *testing.T) {
	svc, _, _, blobs := newTestService()
	ctx := context.Background()

	// Same owner, same filename, uploaded twice.
	first, err := svc.Upload(ctx, ptr(1), "dup.png", "image/png", []byte("one"), 3)
	require.NoError(t, err)
	second, err := svc.Upload(ctx, ptr(1), "dup.png", "image/png", []byte("two"), 3)
	require.NoError(t, err)

	assert.NotEqual(t, ObjectKey(first.AttachmentID, "dup.png"), ObjectKey(second.AttachmentID, "dup.png"))
	assert.Len(t, blobs.blobs, 2)
}

func TestUploadValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name     string
		ownerID  *int64
		fileName string
		fileType string
		message  string
	}{
		{"missing owner", nil, "f.png", "image/png", "enter userId"},
		{"non-positive owner", ptr(0), "f.png", "image/png", "userId must be positive"},
		{"unknown owner", ptr(999), "f.png", "image/png", "unknown owner"},
		{"empty filename", ptr(1), "", "image/png", "invalid file name"},
		{"unsupported type", ptr(1), "f.txt", "text/plain", "unsupported file type: only JPG, PNG, and DOCX files are accepted"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Upload(ctx, tc.ownerID, tc.fileName, tc.fileType, []byte("x"), 1)
			require.Error(t, err)
			assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
			assert.Equal(t, tc.message, apperr.MessageOf(err))
		})
	}
}

func TestUploadChecksOwnerExistenceBeforeFileType(t *testing.T) {
	svc, _, _, _ := newTestService()

	// Doubly invalid input: the owner check must win.
	_, err := svc.Upload(context.Background(), ptr(999), "f.txt", "text/plain", []byte("x"), 1)
	require.Error(t, err)
	assert.Equal(t, "unknown owner", apperr.MessageOf(err))
}

func TestUploadMetadataCommittedBeforeObjectWrite(t *testing.T) {
	svc, atts, _, blobs := newTestService()
	ctx := context.Background()

	sawRecord := false
	blobs.putHook = func(key string) {
		// By the time the object write is issued, the metadata record must
		// already be retrievable by id.
		att, err := atts.GetByID(ctx, 1)
		sawRecord = err == nil && att != nil && ObjectKey(att.ID, att.FileName) == key
	}

	_, err := svc.Upload(ctx, ptr(1), "a.png", "image/png", []byte("x"), 1)
	require.NoError(t, err)
	assert.True(t, sawRecord)
}

func TestUploadObjectWriteFailureLeavesOrphan(t *testing.T) {
	svc, atts, _, blobs := newTestService()
	ctx := context.Background()
	blobs.putErr = errors.New("connection reset by peer")

	_, err := svc.Upload(ctx, ptr(1), "a.png", "image/png", []byte("x"), 1)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstreamStorage, apperr.KindOf(err))

	// No rollback: the minted record remains retrievable.
	att, err := atts.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, att)
	assert.Equal(t, "a.png", att.FileName)
}

func TestDownloadValidation(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name         string
		ownerID      *int64
		attachmentID *int64
		message      string
	}{
		{"missing owner", nil, ptr(1), "enter userId"},
		{"non-positive owner", ptr(-4), ptr(1), "userId must be positive"},
		{"missing attachment id", ptr(1), nil, "enter attachmentId"},
		{"non-positive attachment id", ptr(1), ptr(0), "attachmentId must be positive"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Download(ctx, "f.png", tc.ownerID, tc.attachmentID)
			require.Error(t, err)
			assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
			assert.Equal(t, tc.message, apperr.MessageOf(err))
		})
	}
}

func TestDownloadAuthorizationSymmetry(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	res, err := svc.Upload(ctx, ptr(1), "mine.png", "image/png", []byte("secret"), 6)
	require.NoError(t, err)

	// Unknown id resolves to NotFound, never Forbidden.
	_, err = svc.Download(ctx, "mine.png", ptr(1), ptr(res.AttachmentID+100))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// Wrong owner and wrong filename both resolve to Forbidden with the same
	// message, so neither check leaks which half failed.
	_, ownerErr := svc.Download(ctx, "mine.png", ptr(2), ptr(res.AttachmentID))
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(ownerErr))
	_, nameErr := svc.Download(ctx, "other.png", ptr(1), ptr(res.AttachmentID))
	require.Equal(t, apperr.KindForbidden, apperr.KindOf(nameErr))
	assert.Equal(t, apperr.MessageOf(ownerErr), apperr.MessageOf(nameErr))
}

func TestDownloadMissingObjectIsInternal(t *testing.T) {
	svc, atts, _, _ := newTestService()
	ctx := context.Background()

	// Orphan: metadata row exists, no blob was ever written.
	orphan := &models.Attachment{FileName: "ghost.png", FileType: "image/png", OwnerID: 1}
	require.NoError(t, atts.Create(ctx, orphan))

	_, err := svc.Download(ctx, "ghost.png", ptr(1), ptr(orphan.ID))
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestDownloadBackendFailureIsUpstream(t *testing.T) {
	svc, _, _, blobs := newTestService()
	ctx := context.Background()

	res, err := svc.Upload(ctx, ptr(1), "a.png", "image/png", []byte("x"), 1)
	require.NoError(t, err)

	blobs.getErr = errors.New("503 slow down")
	_, err = svc.Download(ctx, "a.png", ptr(1), ptr(res.AttachmentID))
	require.Error(t, err)
	assert.Equal(t, apperr.KindUpstreamStorage, apperr.KindOf(err))
	assert.Contains(t, apperr.MessageOf(err), "503 slow down")
}

func seedAttachments(t *testing.T, atts *fakeAttachmentStore, owner int64, n int) {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		att := &models.Attachment{
			FileName:      fmt.Sprintf("file-%d.png", i),
			FileType:      "image/png",
			OwnerID:       owner,
			LastUpdatedOn: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, atts.Create(context.Background(), att))
	}
}

func TestListPaginationArithmetic(t *testing.T) {
	svc, atts, _, _ := newTestService()
	seedAttachments(t, atts, 1, 47)
	ctx := context.Background()

	env, err := svc.List(ctx, nil, 3, 15)
	require.NoError(t, err)
	assert.Equal(t, int64(47), env.TotalFiles)
	assert.Equal(t, 15, env.FilesReceived)
	assert.Equal(t, 3, env.CurrentPage)
	assert.Equal(t, 4, env.TotalPages)
	assert.Equal(t, int64(2), env.RemainingFiles)

	env, err = svc.List(ctx, nil, 4, 15)
	require.NoError(t, err)
	assert.Equal(t, 2, env.FilesReceived)
	assert.Equal(t, int64(0), env.RemainingFiles)
}

func TestListDefaultSubstitution(t *testing.T) {
	svc, atts, _, _ := newTestService()
	seedAttachments(t, atts, 1, 20)
	ctx := context.Background()

	defaulted, err := svc.List(ctx, nil, 0, -5)
	require.NoError(t, err)
	explicit, err := svc.List(ctx, nil, 1, 15)
	require.NoError(t, err)
	assert.Equal(t, explicit, defaulted)
	assert.Equal(t, 1, defaulted.CurrentPage)
	assert.Equal(t, 15, defaulted.FilesReceived)
}

func TestListOwnerScopedEmptyIsNotFound(t *testing.T) {
	svc, atts, _, _ := newTestService()
	seedAttachments(t, atts, 1, 3)
	ctx := context.Background()

	_, err := svc.List(ctx, ptr(999), 1, 15)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.Equal(t, "no attachments for this owner", apperr.MessageOf(err))

	// Unscoped with no data is still an ordinary success.
	empty := newFakeAttachmentStore()
	emptySvc := NewAttachmentService(empty, &fakeUserDirectory{users: map[int64]bool{}}, newFakeBlobStore(), nil)
	env, err := emptySvc.List(ctx, nil, 1, 15)
	require.NoError(t, err)
	assert.Equal(t, int64(0), env.TotalFiles)
	assert.Empty(t, env.Files)
}

func TestListRejectsNonPositiveOwner(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.List(context.Background(), ptr(0), 1, 15)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidInput, apperr.KindOf(err))
}

func TestListNewestFirstWithStableTies(t *testing.T) {
	svc, atts, _, _ := newTestService()
	ctx := context.Background()
	ts := time.Now()

	older := &models.Attachment{FileName: "old.png", FileType: "image/png", OwnerID: 1, LastUpdatedOn: ts.Add(-time.Minute)}
	tieA := &models.Attachment{FileName: "tie-a.png", FileType: "image/png", OwnerID: 1, LastUpdatedOn: ts}
	tieB := &models.Attachment{FileName: "tie-b.png", FileType: "image/png", OwnerID: 1, LastUpdatedOn: ts}
	for _, att := range []*models.Attachment{older, tieA, tieB} {
		require.NoError(t, atts.Create(ctx, att))
	}

	env, err := svc.List(ctx, ptr(1), 1, 15)
	require.NoError(t, err)
	require.Len(t, env.Files, 3)
	assert.Equal(t, "tie-a.png", env.Files[0].FileName)
	assert.Equal(t, "tie-b.png", env.Files[1].FileName)
	assert.Equal(t, "old.png", env.Files[2].FileName)
}

func TestListScopesToOwner(t *testing.T) {
	svc, atts, _, _ := newTestService()
	seedAttachments(t, atts, 1, 4)
	seedAttachments(t, atts, 2, 2)
	ctx := context.Background()

	env, err := svc.List(ctx, ptr(2), 1, 15)
	require.NoError(t, err)
	assert.Equal(t, int64(2), env.TotalFiles)
	for _, att := range env.Files {
		assert.Equal(t, int64(2), att.OwnerID)
	}
}
