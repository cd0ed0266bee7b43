package server

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"roadlens/internal/models"
	"roadlens/internal/provider"
	"roadlens/internal/store"
)

const testDeliveryBase = "https://cdn.test/image/upload"

// fakeUploader records calls and fails on configured call indexes.
type fakeUploader struct {
	mu      sync.Mutex
	calls   []string
	folders []string
	failAt  map[int]error
	// before runs ahead of each upload with the call index.
	before func(index int)
}

func (f *fakeUploader) Upload(ctx context.Context, file provider.File, opts provider.UploadOptions) (models.StoredImage, error) {
	f.mu.Lock()
	index := len(f.calls)
	f.calls = append(f.calls, file.Name)
	f.folders = append(f.folders, opts.Folder)
	failure := f.failAt[index]
	before := f.before
	f.mu.Unlock()

	if before != nil {
		before(index)
	}
	if failure != nil {
		return models.StoredImage{}, failure
	}

	data, err := io.ReadAll(file.Body)
	if err != nil {
		return models.StoredImage{}, &provider.UploadError{Kind: provider.KindNetwork, Err: err}
	}
	if opts.OnProgress != nil {
		opts.OnProgress(int64(len(data)), int64(len(data)))
	}

	objectID := fmt.Sprintf("%s/obj-%d", opts.Folder, index)
	return models.StoredImage{
		ObjectID:         objectID,
		URL:              "http://cdn.test/image/upload/" + objectID,
		SecureURL:        testDeliveryBase + "/" + objectID,
		Format:           "jpg",
		Bytes:            int64(len(data)),
		OriginalFilename: strings.TrimSuffix(file.Name, path.Ext(file.Name)),
		CreatedAt:        time.Now().UTC(),
	}, nil
}

func (f *fakeUploader) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// faultyStore injects errors into selected store operations.
type faultyStore struct {
	store.EvidenceStore
	createLinkErr   error
	deleteLinkErr   map[string]error
	deletePhotoErr  map[string]error
	afterCreateLink func()
}

func (f *faultyStore) CreateLink(ctx context.Context, link *models.LinkRecord) error {
	if f.createLinkErr != nil {
		return f.createLinkErr
	}
	if err := f.EvidenceStore.CreateLink(ctx, link); err != nil {
		return err
	}
	if f.afterCreateLink != nil {
		f.afterCreateLink()
	}
	return nil
}

func (f *faultyStore) DeleteLink(ctx context.Context, id string) error {
	if err := f.deleteLinkErr[id]; err != nil {
		return err
	}
	return f.EvidenceStore.DeleteLink(ctx, id)
}

func (f *faultyStore) DeletePhoto(ctx context.Context, id string) error {
	if err := f.deletePhotoErr[id]; err != nil {
		return err
	}
	return f.EvidenceStore.DeletePhoto(ctx, id)
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "roadlens.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newPhotoServiceForTest(t *testing.T) (*PhotoService, *store.Store, *fakeUploader) {
	t.Helper()
	st := openTestStore(t)
	uploader := &fakeUploader{}
	svc := NewPhotoService(st, uploader, PhotoServiceOptions{DeliveryBaseURL: testDeliveryBase})
	return svc, st, uploader
}

// steppingClock advances one day per call so upload dates differ.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current := next
		next = next.Add(24 * time.Hour)
		return current
	}
}

func testFiles(names ...string) []provider.File {
	files := make([]provider.File, 0, len(names))
	for _, name := range names {
		body := "jpeg-bytes-" + name
		files = append(files, provider.File{
			Name:        name,
			ContentType: "image/jpeg",
			Size:        int64(len(body)),
			Body:        strings.NewReader(body),
		})
	}
	return files
}

func asAPIError(err error, out *apiError) bool {
	if err == nil || out == nil {
		return false
	}
	v, ok := err.(apiError)
	if !ok {
		return false
	}
	*out = v
	return true
}
