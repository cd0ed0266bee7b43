package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"roadlens/internal/models"
)

const photoColumns = "id, owner_id, url, path, name, upload_date, category, size_bytes, report_id, object_id, content_type, created_at"
const linkColumns = "id, report_id, photo_id, ord, created_at"

// CreatePhoto inserts one photo row.
func (s *Store) CreatePhoto(ctx context.Context, photo *models.PhotoRecord) error {
	if photo == nil {
		return fmt.Errorf("photo is required")
	}
	if strings.TrimSpace(photo.ID) == "" {
		return fmt.Errorf("photo id is required")
	}
	if photo.CreatedAt.IsZero() {
		photo.CreatedAt = time.Now().UTC()
	}
	if photo.UploadDate == "" {
		photo.UploadDate = models.UploadDateOf(photo.CreatedAt)
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO photos (`+photoColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		photo.ID,
		photo.OwnerID,
		photo.URL,
		photo.Path,
		photo.Name,
		photo.UploadDate,
		photo.Category,
		photo.SizeBytes,
		nullString(photo.ReportID),
		nullString(photo.ObjectID),
		nullString(photo.ContentType),
		dbFormatTime(photo.CreatedAt),
	)
	return err
}

// GetPhoto returns one photo or nil when it does not exist.
func (s *Store) GetPhoto(ctx context.Context, id string) (*models.PhotoRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+photoColumns+` FROM photos WHERE id = ?`), id)
	return scanPhoto(row)
}

// PhotoExists checks whether a photo id is taken.
func (s *Store) PhotoExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, "SELECT 1 FROM photos WHERE id = ? LIMIT 1", id)
}

// ListPhotosByReport lists photos linked to a report, oldest upload first.
func (s *Store) ListPhotosByReport(ctx context.Context, reportID string) ([]models.PhotoRecord, error) {
	query := `SELECT ` + photoColumns + ` FROM photos
WHERE id IN (SELECT photo_id FROM report_photos WHERE report_id = ?)
ORDER BY upload_date ASC, created_at ASC, id ASC`
	return s.queryPhotos(ctx, query, reportID)
}

// ListPhotosByOwner lists photos owned by a user, newest first.
func (s *Store) ListPhotosByOwner(ctx context.Context, ownerID string) ([]models.PhotoRecord, error) {
	query := `SELECT ` + photoColumns + ` FROM photos
WHERE owner_id = ?
ORDER BY upload_date DESC, created_at DESC, id DESC`
	return s.queryPhotos(ctx, query, ownerID)
}

// DeletePhoto deletes one photo row. Links must be removed first.
func (s *Store) DeletePhoto(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM photos WHERE id = ?"), id)
	return err
}

// CreateLink inserts one report link row.
func (s *Store) CreateLink(ctx context.Context, link *models.LinkRecord) error {
	if link == nil {
		return fmt.Errorf("link is required")
	}
	if strings.TrimSpace(link.ID) == "" {
		return fmt.Errorf("link id is required")
	}
	if link.Order < 0 {
		return fmt.Errorf("link order must be non-negative")
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO report_photos (`+linkColumns+`) VALUES (?, ?, ?, ?, ?)`),
		link.ID,
		link.ReportID,
		link.PhotoID,
		link.Order,
		dbFormatTime(link.CreatedAt),
	)
	return err
}

// LinkExists checks whether a link id is taken.
func (s *Store) LinkExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, "SELECT 1 FROM report_photos WHERE id = ? LIMIT 1", id)
}

// CountLinksByReport counts links held by one report.
func (s *Store) CountLinksByReport(ctx context.Context, reportID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM report_photos WHERE report_id = ?"), reportID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListLinksByReport lists links for a report by display order.
func (s *Store) ListLinksByReport(ctx context.Context, reportID string) ([]models.LinkRecord, error) {
	return s.queryLinks(ctx, `SELECT `+linkColumns+` FROM report_photos WHERE report_id = ? ORDER BY ord ASC, created_at ASC, id ASC`, reportID)
}

// ListLinksByPhoto lists every link referencing a photo.
func (s *Store) ListLinksByPhoto(ctx context.Context, photoID string) ([]models.LinkRecord, error) {
	return s.queryLinks(ctx, `SELECT `+linkColumns+` FROM report_photos WHERE photo_id = ? ORDER BY created_at ASC, id ASC`, photoID)
}

// DeleteLink deletes one link row.
func (s *Store) DeleteLink(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM report_photos WHERE id = ?"), id)
	return err
}

func (s *Store) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found int
	err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) queryPhotos(ctx context.Context, query string, args ...any) ([]models.PhotoRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	photos := []models.PhotoRecord{}
	for rows.Next() {
		photo, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		if photo == nil {
			continue
		}
		photos = append(photos, *photo)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return photos, nil
}

func (s *Store) queryLinks(ctx context.Context, query string, args ...any) ([]models.LinkRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []models.LinkRecord{}
	for rows.Next() {
		var link models.LinkRecord
		var createdAt string
		if err := rows.Scan(&link.ID, &link.ReportID, &link.PhotoID, &link.Order, &createdAt); err != nil {
			return nil, err
		}
		parsed, err := dbParseTime(createdAt)
		if err != nil {
			return nil, err
		}
		link.CreatedAt = parsed
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return links, nil
}

func scanPhoto(scanner interface {
	Scan(dest ...any) error
}) (*models.PhotoRecord, error) {
	photo := models.PhotoRecord{}

	var reportID, objectID, contentType sql.NullString
	var createdAt string

	err := scanner.Scan(
		&photo.ID,
		&photo.OwnerID,
		&photo.URL,
		&photo.Path,
		&photo.Name,
		&photo.UploadDate,
		&photo.Category,
		&photo.SizeBytes,
		&reportID,
		&objectID,
		&contentType,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	photo.ReportID = reportID.String
	photo.ObjectID = objectID.String
	photo.ContentType = contentType.String

	parsed, err := dbParseTime(createdAt)
	if err != nil {
		return nil, err
	}
	photo.CreatedAt = parsed
	return &photo, nil
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
