package provider

import (
	"fmt"
	"strings"

	"roadlens/internal/models"
)

// TransformURL inserts a delivery transformation segment before objectID.
func TransformURL(deliveryBase, transform, objectID string) string {
	base := strings.TrimRight(strings.TrimSpace(deliveryBase), "/")
	objectID = strings.TrimLeft(strings.TrimSpace(objectID), "/")
	transform = strings.Trim(strings.TrimSpace(transform), "/")
	if transform == "" {
		return base + "/" + objectID
	}
	return base + "/" + transform + "/" + objectID
}

// ThumbnailTransform returns the fill-crop transformation for a w by h thumbnail.
func ThumbnailTransform(width, height int) string {
	if width <= 0 {
		width = models.DefaultThumbnailWidth
	}
	if height <= 0 {
		height = models.DefaultThumbnailHeight
	}
	return fmt.Sprintf("w_%d,h_%d,c_fill,q_auto", width, height)
}

// ThumbnailURL derives a thumbnail URL without I/O. Equal inputs give equal output.
func ThumbnailURL(deliveryBase, objectID string, width, height int) string {
	return TransformURL(deliveryBase, ThumbnailTransform(width, height), objectID)
}

// PhotoThumbnailURL falls back to the original URL when the photo has no object id.
func PhotoThumbnailURL(deliveryBase string, photo models.PhotoRecord, width, height int) string {
	if strings.TrimSpace(photo.ObjectID) == "" || strings.TrimSpace(deliveryBase) == "" {
		return photo.URL
	}
	return ThumbnailURL(deliveryBase, photo.ObjectID, width, height)
}
