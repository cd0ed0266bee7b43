package main

import (
	"context"
	"errors"
	"net"

	"roadlens/internal/api"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{err.Error()}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case "unauthorized":
			lines = append(lines, "hint: set ROADLENS_TOKEN to a bearer token from: roadlens token issue <user-id>")
		case "forbidden":
			lines = append(lines, "hint: only the owner can act on a photo; admin routes need ROADLENS_ADMIN_TOKEN.")
		case "quota_exceeded":
			lines = append(lines, "hint: check remaining room with: roadlens photos capacity <report-id>")
		case "batch_too_large":
			lines = append(lines, "hint: split the upload into batches of at most five photos.")
		case "upload_timeout":
			lines = append(lines, "hint: the photo provider did not answer within its timeout; retry the files that were not uploaded.")
		case "upload_network", "upload_rejected", "upload_malformed":
			lines = append(lines, "hint: the photo provider failed; photos uploaded before the failure were kept.")
		case "partial_purge":
			lines = append(lines, "hint: rerun the purge to retry the photos that could not be deleted.")
		case "resource_exhausted":
			lines = append(lines, "hint: retry shortly; the server limits concurrent uploads.")
		}
		if apiErr.Code == "" {
			lines = append(lines, "hint: verify ROADLENS_API_URL points to a roadlens server.")
		}
		if apiErr.Status >= 500 && apiErr.Batch == nil {
			lines = append(lines, "hint: server returned an internal error; check server logs for details.")
		}
		return uniqueLines(lines)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		lines = append(lines, "hint: request timed out; check server health or increase ROADLENS_HTTP_TIMEOUT.")
		return uniqueLines(lines)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		lines = append(lines,
			"hint: ensure a roadlens server is running at ROADLENS_API_URL.",
			"hint: start local server manually with: roadlens srv",
			"hint: you can increase ROADLENS_HTTP_TIMEOUT for slower environments.",
		)
		return uniqueLines(lines)
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
