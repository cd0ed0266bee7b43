package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"roadlens/internal/models"
)

func seedPhoto(t *testing.T, st *Store, id, owner, reportID, uploadDate string, createdAt time.Time) models.PhotoRecord {
	t.Helper()
	photo := models.PhotoRecord{
		ID:          id,
		OwnerID:     owner,
		URL:         "https://img.example.com/" + id + ".jpg",
		Path:        models.PhotoPath(reportID, id+".jpg"),
		Name:        id + ".jpg",
		UploadDate:  uploadDate,
		Category:    models.CategoryReportEvidence,
		SizeBytes:   1024,
		ReportID:    reportID,
		ObjectID:    "evidence/" + id,
		ContentType: "image/jpeg",
		CreatedAt:   createdAt,
	}
	if err := st.CreatePhoto(context.Background(), &photo); err != nil {
		t.Fatalf("create photo %s: %v", id, err)
	}
	return photo
}

func seedLink(t *testing.T, st *Store, id, reportID, photoID string, order int) models.LinkRecord {
	t.Helper()
	link := models.LinkRecord{ID: id, ReportID: reportID, PhotoID: photoID, Order: order, CreatedAt: time.Now().UTC()}
	if err := st.CreateLink(context.Background(), &link); err != nil {
		t.Fatalf("create link %s: %v", id, err)
	}
	return link
}

func photoIDs(photos []models.PhotoRecord) []string {
	out := make([]string, 0, len(photos))
	for _, photo := range photos {
		out = append(out, photo.ID)
	}
	return out
}

func TestCreateGetPhoto_RoundTrip(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	created := seedPhoto(t, st, "ph-aaa111", "user-1", "rep-1", "2025-04-02", now)

	got, err := st.GetPhoto(ctx, created.ID)
	if err != nil {
		t.Fatalf("get photo: %v", err)
	}
	if got == nil {
		t.Fatal("expected photo")
	}
	if diff := cmp.Diff(created, *got); diff != "" {
		t.Fatalf("photo mismatch (-want +got):\n%s", diff)
	}

	exists, err := st.PhotoExists(ctx, created.ID)
	if err != nil || !exists {
		t.Fatalf("expected photo to exist, got %v (%v)", exists, err)
	}

	missing, err := st.GetPhoto(ctx, "ph-missing")
	if err != nil {
		t.Fatalf("get missing photo: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing photo, got %+v", missing)
	}
}

func TestCreatePhotoWithoutReportStoresNulls(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	photo := seedPhoto(t, st, "ph-free01", "user-1", "", "2025-04-02", time.Now().UTC())
	got, err := st.GetPhoto(ctx, photo.ID)
	if err != nil || got == nil {
		t.Fatalf("get photo: %v", err)
	}
	if got.ReportID != "" || got.Linked() {
		t.Fatalf("expected unlinked photo, got report %q", got.ReportID)
	}
	if got.Path != "unlinked/ph-free01.jpg" {
		t.Fatalf("unexpected path %q", got.Path)
	}
}

func TestListPhotosByReportOrdersByUploadDate(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

	seedPhoto(t, st, "ph-c00003", "user-1", "rep-1", "2025-04-03", base.Add(2*time.Hour))
	seedPhoto(t, st, "ph-a00001", "user-2", "rep-1", "2025-04-01", base)
	seedPhoto(t, st, "ph-b00002", "user-1", "rep-1", "2025-04-01", base.Add(time.Minute))
	seedPhoto(t, st, "ph-other1", "user-1", "rep-2", "2025-04-01", base)

	seedLink(t, st, "lk-000001", "rep-1", "ph-c00003", 0)
	seedLink(t, st, "lk-000002", "rep-1", "ph-a00001", 1)
	seedLink(t, st, "lk-000003", "rep-1", "ph-b00002", 2)
	seedLink(t, st, "lk-000004", "rep-2", "ph-other1", 0)

	photos, err := st.ListPhotosByReport(ctx, "rep-1")
	if err != nil {
		t.Fatalf("list by report: %v", err)
	}
	want := []string{"ph-a00001", "ph-b00002", "ph-c00003"}
	if diff := cmp.Diff(want, photoIDs(photos)); diff != "" {
		t.Fatalf("report order mismatch (-want +got):\n%s", diff)
	}

	empty, err := st.ListPhotosByReport(ctx, "rep-none")
	if err != nil {
		t.Fatalf("list empty report: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestListPhotosByReportIgnoresUnlinkedReportColumn(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	seedPhoto(t, st, "ph-nolink", "user-1", "rep-1", "2025-04-01", time.Now().UTC())

	photos, err := st.ListPhotosByReport(ctx, "rep-1")
	if err != nil {
		t.Fatalf("list by report: %v", err)
	}
	if len(photos) != 0 {
		t.Fatalf("expected photos without links to be excluded, got %v", photoIDs(photos))
	}
}

func TestListPhotosByOwnerNewestFirst(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)

	seedPhoto(t, st, "ph-old001", "user-1", "rep-1", "2025-03-30", base.Add(-48*time.Hour))
	seedPhoto(t, st, "ph-new001", "user-1", "", "2025-04-01", base.Add(time.Hour))
	seedPhoto(t, st, "ph-mid001", "user-1", "rep-2", "2025-04-01", base)
	seedPhoto(t, st, "ph-else01", "user-2", "rep-1", "2025-04-05", base)

	photos, err := st.ListPhotosByOwner(ctx, "user-1")
	if err != nil {
		t.Fatalf("list by owner: %v", err)
	}
	want := []string{"ph-new001", "ph-mid001", "ph-old001"}
	if diff := cmp.Diff(want, photoIDs(photos)); diff != "" {
		t.Fatalf("owner order mismatch (-want +got):\n%s", diff)
	}
}

func TestLinksCountListDelete(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedPhoto(t, st, "ph-l00001", "user-1", "rep-1", "2025-04-01", now)
	seedPhoto(t, st, "ph-l00002", "user-1", "rep-1", "2025-04-01", now)
	seedLink(t, st, "lk-l00001", "rep-1", "ph-l00001", 0)
	seedLink(t, st, "lk-l00002", "rep-1", "ph-l00002", 1)
	seedLink(t, st, "lk-l00003", "rep-9", "ph-l00001", 0)

	count, err := st.CountLinksByReport(ctx, "rep-1")
	if err != nil {
		t.Fatalf("count links: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 links, got %d", count)
	}

	byPhoto, err := st.ListLinksByPhoto(ctx, "ph-l00001")
	if err != nil {
		t.Fatalf("list links by photo: %v", err)
	}
	if len(byPhoto) != 2 {
		t.Fatalf("expected 2 links for photo, got %d", len(byPhoto))
	}

	byReport, err := st.ListLinksByReport(ctx, "rep-1")
	if err != nil {
		t.Fatalf("list links by report: %v", err)
	}
	if len(byReport) != 2 || byReport[0].Order != 0 || byReport[1].Order != 1 {
		t.Fatalf("unexpected report links %+v", byReport)
	}

	exists, err := st.LinkExists(ctx, "lk-l00002")
	if err != nil || !exists {
		t.Fatalf("expected link to exist, got %v (%v)", exists, err)
	}

	if err := st.DeleteLink(ctx, "lk-l00002"); err != nil {
		t.Fatalf("delete link: %v", err)
	}
	count, err = st.CountLinksByReport(ctx, "rep-1")
	if err != nil {
		t.Fatalf("count after delete: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 link after delete, got %d", count)
	}
}

func TestDeletePhotoRequiresLinksRemoved(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	seedPhoto(t, st, "ph-d00001", "user-1", "rep-1", "2025-04-01", time.Now().UTC())
	link := seedLink(t, st, "lk-d00001", "rep-1", "ph-d00001", 0)

	if err := st.DeletePhoto(ctx, "ph-d00001"); err == nil {
		t.Fatal("expected foreign key failure while a link still references the photo")
	}

	if err := st.DeleteLink(ctx, link.ID); err != nil {
		t.Fatalf("delete link: %v", err)
	}
	if err := st.DeletePhoto(ctx, "ph-d00001"); err != nil {
		t.Fatalf("delete photo: %v", err)
	}
	got, err := st.GetPhoto(ctx, "ph-d00001")
	if err != nil {
		t.Fatalf("get deleted photo: %v", err)
	}
	if got != nil {
		t.Fatal("expected photo to be gone")
	}
}

func TestCreateLinkRejectsDanglingPhoto(t *testing.T) {
	st := testStore(t)
	link := models.LinkRecord{ID: "lk-dangle", ReportID: "rep-1", PhotoID: "ph-nothere", Order: 0}
	if err := st.CreateLink(context.Background(), &link); err == nil {
		t.Fatal("expected foreign key failure for missing photo")
	}
}

func TestCreateLinkRejectsNegativeOrder(t *testing.T) {
	st := testStore(t)
	link := models.LinkRecord{ID: "lk-neg", ReportID: "rep-1", PhotoID: "ph-x", Order: -1}
	if err := st.CreateLink(context.Background(), &link); err == nil {
		t.Fatal("expected error for negative order")
	}
}
