package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"roadlens/internal/models"
	"roadlens/internal/provider"
)

func TestUploadBatch_LinksContinueAfterExistingPhotos(t *testing.T) {
	svc, _, uploader := newPhotoServiceForTest(t)
	ctx := context.Background()

	first, err := svc.UploadBatch(ctx, "u-1", "r-1", testFiles("a.jpg", "b.jpg"), nil)
	if err != nil {
		t.Fatalf("first batch: %v", err)
	}
	second, err := svc.UploadBatch(ctx, "u-1", "r-1", testFiles("c.jpg", "d.jpg", "e.jpg"), nil)
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if len(first) != 2 || len(second) != 3 {
		t.Fatalf("unexpected batch sizes %d and %d", len(first), len(second))
	}

	links, err := svc.ListLinks(ctx, "r-1")
	if err != nil {
		t.Fatalf("list links: %v", err)
	}
	if len(links) != 5 {
		t.Fatalf("expected 5 links, got %d", len(links))
	}
	for i, link := range links {
		if link.Order != i {
			t.Fatalf("link %d has order %d", i, link.Order)
		}
	}
	for i, photo := range second {
		if links[2+i].PhotoID != photo.ID {
			t.Fatalf("expected link %d to reference %s, got %s", 2+i, photo.ID, links[2+i].PhotoID)
		}
	}

	photo := second[0]
	if photo.OwnerID != "u-1" || photo.ReportID != "r-1" {
		t.Fatalf("unexpected ownership %+v", photo)
	}
	if photo.Category != models.CategoryReportEvidence {
		t.Fatalf("expected category %q, got %q", models.CategoryReportEvidence, photo.Category)
	}
	if photo.Path != "reports/r-1/c" {
		t.Fatalf("unexpected path %q", photo.Path)
	}
	if photo.Name != "c.jpg" {
		t.Fatalf("unexpected name %q", photo.Name)
	}
	if !strings.HasPrefix(photo.URL, "https://") {
		t.Fatalf("expected secure url, got %q", photo.URL)
	}
	if photo.UploadDate != models.UploadDateOf(photo.CreatedAt) {
		t.Fatalf("upload date %q does not match created_at %s", photo.UploadDate, photo.CreatedAt)
	}

	for _, folder := range uploader.folders {
		if folder != "evidence/r-1" {
			t.Fatalf("unexpected folder hint %q", folder)
		}
	}
}

func TestUploadBatch_QuotaExceededMakesNoProviderCall(t *testing.T) {
	svc, st, uploader := newPhotoServiceForTest(t)
	ctx := context.Background()

	if _, err := svc.UploadBatch(ctx, "u-1", "r-1", testFiles("a.jpg", "b.jpg", "c.jpg"), nil); err != nil {
		t.Fatalf("seed batch: %v", err)
	}
	before := len(uploader.Calls())

	photos, err := svc.UploadBatch(ctx, "u-1", "r-1", testFiles("d.jpg", "e.jpg", "f.jpg"), nil)
	if err == nil {
		t.Fatal("expected quota error")
	}
	if photos != nil {
		t.Fatalf("expected no photos, got %d", len(photos))
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if httpStatusFromError(err) != http.StatusConflict {
		t.Fatalf("expected HTTP 409, got %d", httpStatusFromError(err))
	}
	if !strings.Contains(err.Error(), "already has 3 photos; cannot add 3 more (maximum 5)") {
		t.Fatalf("unexpected message: %v", err)
	}
	if got := len(uploader.Calls()); got != before {
		t.Fatalf("expected no provider calls, got %d new", got-before)
	}

	count, err := st.CountLinksByReport(ctx, "r-1")
	if err != nil {
		t.Fatalf("count links: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 links to remain, got %d", count)
	}

	// Exactly filling the report is allowed.
	if _, err := svc.UploadBatch(ctx, "u-1", "r-1", testFiles("d.jpg", "e.jpg"), nil); err != nil {
		t.Fatalf("filling batch: %v", err)
	}
}

func TestUploadBatch_RejectsOversizedBatch(t *testing.T) {
	svc, _, uploader := newPhotoServiceForTest(t)

	for _, reportID := range []string{"r-1", ""} {
		_, err := svc.UploadBatch(context.Background(), "u-1", reportID, testFiles("1.jpg", "2.jpg", "3.jpg", "4.jpg", "5.jpg", "6.jpg"), nil)
		if !errors.Is(err, ErrBatchTooLarge) {
			t.Fatalf("report %q: expected ErrBatchTooLarge, got %v", reportID, err)
		}
		var apiErr apiError
		if !asAPIError(err, &apiErr) || apiErr.errCode != ErrCodeBatchTooLarge {
			t.Fatalf("report %q: expected error_code %d, got %+v", reportID, ErrCodeBatchTooLarge, err)
		}
	}
	if calls := uploader.Calls(); len(calls) != 0 {
		t.Fatalf("expected no provider calls, got %v", calls)
	}
}

func TestUploadBatch_ValidatesInput(t *testing.T) {
	svc, _, _ := newPhotoServiceForTest(t)
	ctx := context.Background()

	if _, err := svc.UploadBatch(ctx, " ", "r-1", testFiles("a.jpg"), nil); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := svc.UploadBatch(ctx, "u-1", "r-1", nil, nil); httpStatusFromError(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty batch, got %v", err)
	}
	if _, err := svc.UploadBatch(ctx, "u-1", "bad report", testFiles("a.jpg"), nil); httpStatusFromError(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid report id, got %v", err)
	}
	files := testFiles("a.jpg")
	files[0].Body = nil
	if _, err := svc.UploadBatch(ctx, "u-1", "r-1", files, nil); httpStatusFromError(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing body, got %v", err)
	}
}

func TestUploadBatch_StopsAtFirstFailure(t *testing.T) {
	svc, st, uploader := newPhotoServiceForTest(t)
	ctx := context.Background()
	uploader.failAt = map[int]error{1: &provider.UploadError{Kind: provider.KindTimeout, Message: "no response within 1m0s"}}

	photos, err := svc.UploadBatch(ctx, "u-1", "r-1", testFiles("a.jpg", "b.jpg", "c.jpg"), nil)
	if err == nil {
		t.Fatal("expected batch failure")
	}

	var batchErr *BatchUploadError
	if !errors.As(err, &batchErr) {
		t.Fatalf("expected BatchUploadError, got %T", err)
	}
	if batchErr.FailedFile != "b.jpg" || batchErr.FailedIndex != 1 {
		t.Fatalf("unexpected failure position %q/%d", batchErr.FailedFile, batchErr.FailedIndex)
	}
	if got := strings.Join(batchErr.Pending, ","); got != "b.jpg,c.jpg" {
		t.Fatalf("unexpected pending files %q", got)
	}
	if len(batchErr.Completed) != 1 || len(photos) != 1 || photos[0].ID != batchErr.Completed[0].ID {
		t.Fatalf("expected the first photo to be reported as completed, got %+v", batchErr.Completed)
	}
	if !strings.Contains(err.Error(), `upload of "b.jpg" failed after 1 of 3 files`) {
		t.Fatalf("unexpected message: %v", err)
	}
	if !errors.Is(err, provider.ErrTimeout) || !errors.Is(err, provider.ErrAborted) {
		t.Fatalf("expected timeout to unwrap, got %v", err)
	}
	if batchErr.Status() != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", batchErr.Status())
	}

	if calls := uploader.Calls(); strings.Join(calls, ",") != "a.jpg,b.jpg" {
		t.Fatalf("expected c.jpg never attempted, got %v", calls)
	}

	// No rollback: the first photo stays linked.
	stored, err := st.ListPhotosByReport(ctx, "r-1")
	if err != nil {
		t.Fatalf("list photos: %v", err)
	}
	if len(stored) != 1 || stored[0].Name != "a.jpg" {
		t.Fatalf("expected only a.jpg to be stored, got %+v", stored)
	}
}

func TestUploadBatch_CancellationAbortsRemainingFiles(t *testing.T) {
	st := openTestStore(t)
	uploader := &fakeUploader{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	faulty := &faultyStore{EvidenceStore: st, afterCreateLink: cancel}
	svc := NewPhotoService(faulty, uploader, PhotoServiceOptions{DeliveryBaseURL: testDeliveryBase})

	_, err := svc.UploadBatch(ctx, "u-1", "r-1", testFiles("a.jpg", "b.jpg"), nil)
	var batchErr *BatchUploadError
	if !errors.As(err, &batchErr) {
		t.Fatalf("expected BatchUploadError, got %v", err)
	}
	if provider.KindOf(err) != provider.KindAborted {
		t.Fatalf("expected aborted kind, got %q", provider.KindOf(err))
	}
	if batchErr.FailedFile != "b.jpg" || len(batchErr.Completed) != 1 {
		t.Fatalf("unexpected failure %+v", batchErr)
	}
	if batchErr.Status() != statusClientClosedRequest {
		t.Fatalf("expected 499, got %d", batchErr.Status())
	}
	if calls := uploader.Calls(); len(calls) != 1 {
		t.Fatalf("expected one provider call, got %v", calls)
	}
}

func TestUploadBatch_LinkFailureRemovesPhoto(t *testing.T) {
	st := openTestStore(t)
	uploader := &fakeUploader{}
	faulty := &faultyStore{EvidenceStore: st, createLinkErr: errors.New("disk full")}
	svc := NewPhotoService(faulty, uploader, PhotoServiceOptions{DeliveryBaseURL: testDeliveryBase})
	ctx := context.Background()

	_, err := svc.UploadBatch(ctx, "u-1", "r-1", testFiles("a.jpg", "b.jpg"), nil)
	var batchErr *BatchUploadError
	if !errors.As(err, &batchErr) {
		t.Fatalf("expected BatchUploadError, got %v", err)
	}
	if batchErr.FailedIndex != 0 || len(batchErr.Completed) != 0 {
		t.Fatalf("unexpected failure %+v", batchErr)
	}
	if code, numeric := batchErr.Code(); code != "upload_store_failed" || numeric != ErrCodeUploadStoreFailed {
		t.Fatalf("unexpected code %s/%d", code, numeric)
	}
	if batchErr.Status() != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", batchErr.Status())
	}

	photos, err := st.ListPhotosByOwner(ctx, "u-1")
	if err != nil {
		t.Fatalf("list photos: %v", err)
	}
	if len(photos) != 0 {
		t.Fatalf("expected unlinked photo to be removed, got %d", len(photos))
	}
}

func TestUploadBatch_WithoutReportSkipsLinks(t *testing.T) {
	svc, st, uploader := newPhotoServiceForTest(t)
	ctx := context.Background()

	photos, err := svc.UploadBatch(ctx, "u-1", "", testFiles("a.jpg", "b.jpg"), nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	for _, photo := range photos {
		if photo.Linked() {
			t.Fatalf("expected unlinked photo, got report %q", photo.ReportID)
		}
		if !strings.HasPrefix(photo.Path, "unlinked/") {
			t.Fatalf("unexpected path %q", photo.Path)
		}
		links, err := st.ListLinksByPhoto(ctx, photo.ID)
		if err != nil {
			t.Fatalf("list links: %v", err)
		}
		if len(links) != 0 {
			t.Fatalf("expected no links, got %d", len(links))
		}
	}
	if uploader.folders[0] != "evidence/unlinked" {
		t.Fatalf("unexpected folder %q", uploader.folders[0])
	}
}

func TestUploadBatch_ForwardsProgressPerFile(t *testing.T) {
	svc, _, _ := newPhotoServiceForTest(t)

	type event struct {
		index int
		name  string
	}
	var events []event
	_, err := svc.UploadBatch(context.Background(), "u-1", "r-1", testFiles("a.jpg", "b.jpg"), func(index int, name string, sent, total int64) {
		if sent != total {
			t.Errorf("fake uploader reports whole files, got %d/%d", sent, total)
		}
		events = append(events, event{index, name})
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(events) != 2 || events[0] != (event{0, "a.jpg"}) || events[1] != (event{1, "b.jpg"}) {
		t.Fatalf("unexpected progress events %+v", events)
	}
}

func TestBatchUploadError_MapsKinds(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&provider.UploadError{Kind: provider.KindTimeout}, http.StatusGatewayTimeout, "upload_timeout"},
		{&provider.UploadError{Kind: provider.KindNetwork}, http.StatusBadGateway, "upload_network"},
		{&provider.UploadError{Kind: provider.KindRejected, StatusCode: 400}, http.StatusBadGateway, "upload_rejected"},
		{&provider.UploadError{Kind: provider.KindMalformed}, http.StatusBadGateway, "upload_malformed"},
		{&provider.UploadError{Kind: provider.KindAborted}, statusClientClosedRequest, "upload_aborted"},
		{storeFailure(errors.New("locked")), http.StatusInternalServerError, "upload_store_failed"},
	}
	for _, tc := range tests {
		batchErr := &BatchUploadError{FailedFile: "x.jpg", Total: 1, Err: tc.err}
		if got := batchErr.Status(); got != tc.status {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.status, got)
		}
		if code, _ := batchErr.Code(); code != tc.code {
			t.Fatalf("%v: expected code %q, got %q", tc.err, tc.code, code)
		}
	}
}

func TestUploadBatch_PlainUploaderErrorBecomesNetworkFailure(t *testing.T) {
	svc, _, uploader := newPhotoServiceForTest(t)
	uploader.failAt = map[int]error{0: errors.New("connection reset")}

	_, err := svc.UploadBatch(context.Background(), "u-1", "r-1", testFiles("a.jpg"), nil)
	if provider.KindOf(err) != provider.KindNetwork {
		t.Fatalf("expected network kind, got %q (%v)", provider.KindOf(err), err)
	}
}

func TestCapacity(t *testing.T) {
	svc, _, _ := newPhotoServiceForTest(t)
	ctx := context.Background()

	if _, err := svc.UploadBatch(ctx, "u-1", "r-1", testFiles("a.jpg", "b.jpg", "c.jpg", "d.jpg"), nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	capacity, err := svc.Capacity(ctx, "r-1", 1)
	if err != nil {
		t.Fatalf("capacity: %v", err)
	}
	if !capacity.CanAdd || capacity.Current != 4 || capacity.Remaining != 1 || capacity.Max != models.MaxPhotosPerReport {
		t.Fatalf("unexpected capacity %+v", capacity)
	}

	ok, err := svc.CanAddPhotos(ctx, "r-1", 2)
	if err != nil {
		t.Fatalf("can add: %v", err)
	}
	if ok {
		t.Fatal("expected 4+2 to exceed the limit")
	}

	ok, err = svc.CanAddPhotos(ctx, "r-empty", 5)
	if err != nil || !ok {
		t.Fatalf("expected an empty report to take 5 photos, got %v/%v", ok, err)
	}

	if _, err := svc.Capacity(ctx, "r-1", -1); httpStatusFromError(err) != http.StatusBadRequest {
		t.Fatalf("expected 400 for negative count, got %v", err)
	}
}

func TestListing_Ordering(t *testing.T) {
	svc, _, _ := newPhotoServiceForTest(t)
	svc.now = steppingClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if _, err := svc.UploadBatch(ctx, "u-1", "r-1", testFiles("a.jpg", "b.jpg"), nil); err != nil {
		t.Fatalf("batch 1: %v", err)
	}
	if _, err := svc.UploadBatch(ctx, "u-1", "r-2", testFiles("other.jpg"), nil); err != nil {
		t.Fatalf("batch 2: %v", err)
	}
	if _, err := svc.UploadBatch(ctx, "u-1", "r-1", testFiles("c.jpg"), nil); err != nil {
		t.Fatalf("batch 3: %v", err)
	}
	if _, err := svc.UploadBatch(ctx, "u-2", "r-1", testFiles("d.jpg"), nil); err != nil {
		t.Fatalf("batch 4: %v", err)
	}

	byReport, err := svc.ListByReport(ctx, "r-1")
	if err != nil {
		t.Fatalf("list by report: %v", err)
	}
	if got := photoNames(byReport); got != "a.jpg,b.jpg,c.jpg,d.jpg" {
		t.Fatalf("expected oldest first, got %s", got)
	}

	byOwner, err := svc.ListByOwner(ctx, "u-1")
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	if got := photoNames(byOwner); got != "c.jpg,other.jpg,b.jpg,a.jpg" {
		t.Fatalf("expected newest first, got %s", got)
	}

	empty, err := svc.ListByReport(ctx, "r-none")
	if err != nil {
		t.Fatalf("list empty report: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no photos, got %d", len(empty))
	}
}

func photoNames(photos []models.PhotoRecord) string {
	names := make([]string, 0, len(photos))
	for _, photo := range photos {
		names = append(names, photo.Name)
	}
	return strings.Join(names, ",")
}

func TestThumbnailURL(t *testing.T) {
	svc, _, _ := newPhotoServiceForTest(t)
	photo := models.PhotoRecord{ID: "ph-1", URL: "https://cdn.test/x.jpg", ObjectID: "evidence/r-1/abc"}

	want := testDeliveryBase + "/w_150,h_150,c_fill,q_auto/evidence/r-1/abc"
	if got := svc.ThumbnailURL(photo, 0, 0); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if svc.ThumbnailURL(photo, 300, 200) != svc.ThumbnailURL(photo, 300, 200) {
		t.Fatal("expected identical inputs to give identical urls")
	}
	if got := svc.ThumbnailURL(photo, 300, 200); !strings.Contains(got, "/w_300,h_200,c_fill,q_auto/") {
		t.Fatalf("unexpected sized url %s", got)
	}

	photo.ObjectID = ""
	if got := svc.ThumbnailURL(photo, 0, 0); got != photo.URL {
		t.Fatalf("expected fallback to original url, got %s", got)
	}
}

func TestDelete_ChecksExistenceThenOwnership(t *testing.T) {
	svc, st, _ := newPhotoServiceForTest(t)
	ctx := context.Background()

	photos, err := svc.UploadBatch(ctx, "u-1", "r-1", testFiles("a.jpg"), nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	photo := photos[0]

	if err := svc.Delete(ctx, "u-2", "ph-missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	err = svc.Delete(ctx, "u-2", photo.ID)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if httpStatusFromError(err) != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", httpStatusFromError(err))
	}

	count, err := st.CountLinksByReport(ctx, "r-1")
	if err != nil || count != 1 {
		t.Fatalf("expected forbidden delete to leave the link, got %d/%v", count, err)
	}
}

func TestDelete_RemovesLinksThenPhoto(t *testing.T) {
	svc, st, _ := newPhotoServiceForTest(t)
	ctx := context.Background()

	photos, err := svc.UploadBatch(ctx, "u-1", "r-1", testFiles("a.jpg", "b.jpg"), nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if err := svc.Delete(ctx, "u-1", photos[0].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := st.GetPhoto(ctx, photos[0].ID)
	if err != nil {
		t.Fatalf("get photo: %v", err)
	}
	if got != nil {
		t.Fatal("expected photo to be gone")
	}
	links, err := st.ListLinksByPhoto(ctx, photos[0].ID)
	if err != nil || len(links) != 0 {
		t.Fatalf("expected links to be gone, got %d/%v", len(links), err)
	}

	remaining, err := svc.ListByReport(ctx, "r-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != photos[1].ID {
		t.Fatalf("expected the sibling photo to remain, got %+v", remaining)
	}
}

func TestDelete_LinkFailureKeepsPhoto(t *testing.T) {
	st := openTestStore(t)
	faulty := &faultyStore{EvidenceStore: st}
	svc := NewPhotoService(faulty, &fakeUploader{}, PhotoServiceOptions{})
	ctx := context.Background()

	photos, err := svc.UploadBatch(ctx, "u-1", "r-1", testFiles("a.jpg"), nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	links, err := st.ListLinksByPhoto(ctx, photos[0].ID)
	if err != nil || len(links) != 1 {
		t.Fatalf("expected one link, got %d/%v", len(links), err)
	}
	faulty.deleteLinkErr = map[string]error{links[0].ID: errors.New("database is locked")}

	err = svc.Delete(ctx, "u-1", photos[0].ID)
	if httpStatusFromError(err) != http.StatusInternalServerError {
		t.Fatalf("expected store failure, got %v", err)
	}
	got, err := st.GetPhoto(ctx, photos[0].ID)
	if err != nil || got == nil {
		t.Fatalf("expected photo to remain, got %v/%v", got, err)
	}
}

func TestDeleteAllForReport_ContinuesPastFailures(t *testing.T) {
	st := openTestStore(t)
	faulty := &faultyStore{EvidenceStore: st}
	svc := NewPhotoService(faulty, &fakeUploader{}, PhotoServiceOptions{})
	ctx := context.Background()

	mine, err := svc.UploadBatch(ctx, "u-1", "r-1", testFiles("a.jpg", "b.jpg"), nil)
	if err != nil {
		t.Fatalf("upload u-1: %v", err)
	}
	theirs, err := svc.UploadBatch(ctx, "u-2", "r-1", testFiles("c.jpg"), nil)
	if err != nil {
		t.Fatalf("upload u-2: %v", err)
	}

	stuck := mine[1]
	links, err := st.ListLinksByPhoto(ctx, stuck.ID)
	if err != nil || len(links) != 1 {
		t.Fatalf("expected one link, got %d/%v", len(links), err)
	}
	faulty.deleteLinkErr = map[string]error{links[0].ID: errors.New("database is locked")}

	result, err := svc.DeleteAllForReport(ctx, "r-1")
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if !strings.Contains(err.Error(), stuck.ID) {
		t.Fatalf("expected error to name %s, got %v", stuck.ID, err)
	}
	if len(result.Deleted) != 2 || len(result.Failed) != 1 || result.Failed[0].PhotoID != stuck.ID {
		t.Fatalf("unexpected purge result %+v", result)
	}
	deleted := strings.Join(result.Deleted, ",")
	if !strings.Contains(deleted, mine[0].ID) || !strings.Contains(deleted, theirs[0].ID) {
		t.Fatalf("expected both owners' photos to be purged, got %s", deleted)
	}

	remaining, err := svc.ListByReport(ctx, "r-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != stuck.ID {
		t.Fatalf("expected only the failed photo to remain, got %+v", remaining)
	}

	// A retry finishes the job once the fault clears.
	faulty.deleteLinkErr = nil
	result, err = svc.DeleteAllForReport(ctx, "r-1")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(result.Deleted) != 1 || len(result.Failed) != 0 {
		t.Fatalf("unexpected retry result %+v", result)
	}
}

func TestGetPhoto_OwnerOnly(t *testing.T) {
	svc, _, _ := newPhotoServiceForTest(t)
	ctx := context.Background()

	photos, err := svc.UploadBatch(ctx, "u-1", "", testFiles("a.jpg"), nil)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	got, err := svc.GetPhoto(ctx, "u-1", photos[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != photos[0].ID {
		t.Fatalf("unexpected photo %s", got.ID)
	}
	if _, err := svc.GetPhoto(ctx, "u-2", photos[0].ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.GetPhoto(ctx, "", photos[0].ID); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
