package store

import (
	"context"

	"roadlens/internal/models"
)

// PhotoStore persists PhotoRecords.
type PhotoStore interface {
	CreatePhoto(ctx context.Context, photo *models.PhotoRecord) error
	GetPhoto(ctx context.Context, id string) (*models.PhotoRecord, error)
	PhotoExists(ctx context.Context, id string) (bool, error)
	ListPhotosByReport(ctx context.Context, reportID string) ([]models.PhotoRecord, error)
	ListPhotosByOwner(ctx context.Context, ownerID string) ([]models.PhotoRecord, error)
	DeletePhoto(ctx context.Context, id string) error
}

// LinkStore persists report-to-photo LinkRecords.
//
// Links carry no uniqueness constraint on (report_id, ord); order is a
// display hint computed by callers from a point-in-time count.
type LinkStore interface {
	CreateLink(ctx context.Context, link *models.LinkRecord) error
	LinkExists(ctx context.Context, id string) (bool, error)
	CountLinksByReport(ctx context.Context, reportID string) (int, error)
	ListLinksByReport(ctx context.Context, reportID string) ([]models.LinkRecord, error)
	ListLinksByPhoto(ctx context.Context, photoID string) ([]models.LinkRecord, error)
	DeleteLink(ctx context.Context, id string) error
}

// EvidenceStore is the full metadata surface used by the photo service.
type EvidenceStore interface {
	PhotoStore
	LinkStore
}

var _ EvidenceStore = (*Store)(nil)
