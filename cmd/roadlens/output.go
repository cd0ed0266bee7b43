package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"roadlens/internal/api"
	"roadlens/internal/format"
)

var outputFormatter format.Formatter = format.JSONFormatter{}

func writeJSON(payload any) error {
	return outputFormatter.Write(os.Stdout, payload)
}

func writePlain(format string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, format, args...)
	return err
}

func writePhotoList(photos []api.PhotoResponse) error {
	if len(photos) == 0 {
		return writePlain("no photos\n")
	}
	for _, photo := range photos {
		if err := writePlain("%s\n", formatPhotoLine(photo)); err != nil {
			return err
		}
	}
	return nil
}

func writePhotoDetail(photo api.PhotoResponse) error {
	lines := []string{
		fmt.Sprintf("id: %s", photo.ID),
		fmt.Sprintf("name: %s", photo.Name),
		fmt.Sprintf("owner: %s", photo.OwnerID),
		fmt.Sprintf("path: %s", photo.Path),
		fmt.Sprintf("category: %s", photo.Category),
		fmt.Sprintf("size: %s", formatBytes(photo.SizeBytes)),
		fmt.Sprintf("upload_date: %s", photo.UploadDate),
		fmt.Sprintf("created_at: %s", formatTime(photo.CreatedAt)),
		fmt.Sprintf("url: %s", photo.URL),
	}
	if photo.ReportID != "" {
		lines = append(lines, fmt.Sprintf("report_id: %s", photo.ReportID))
	}
	if photo.ContentType != "" {
		lines = append(lines, fmt.Sprintf("content_type: %s", photo.ContentType))
	}
	if photo.ThumbnailURL != "" {
		lines = append(lines, fmt.Sprintf("thumbnail_url: %s", photo.ThumbnailURL))
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatPhotoLine(photo api.PhotoResponse) string {
	report := "unlinked"
	if photo.Linked() {
		report = photo.ReportID
	}
	return fmt.Sprintf("%s [%s] %s %s (%s)", photo.ID, report, photo.UploadDate, photo.Name, formatBytes(photo.SizeBytes))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}
