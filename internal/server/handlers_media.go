package server

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"
	"time"
)

// transformSegment matches a delivery transformation such as w_150,h_150,c_fill,q_auto.
var transformSegment = regexp.MustCompile(`^[a-z]{1,2}_[A-Za-z0-9_.]+(,[a-z]{1,2}_[A-Za-z0-9_.]+)*$`)

// handleMedia serves objects written by the local provider. A leading
// transformation segment is accepted and ignored so thumbnail URLs resolve
// to the original image.
func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	if s.media == nil {
		s.writeServiceError(w, r, makeAPIError(http.StatusNotFound, "not_found", ErrCodePhotoNotFound, fmt.Errorf("media is not served by this provider")))
		return
	}

	key := mediaKey(r.PathValue("key"))
	if key == "" {
		s.writeServiceError(w, r, badRequestCode(fmt.Errorf("media key is required"), ErrCodeMissingRequired))
		return
	}

	rc, err := s.media.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.writeServiceError(w, r, makeAPIError(http.StatusNotFound, "not_found", ErrCodePhotoNotFound, fmt.Errorf("media %s not found", key)))
			return
		}
		s.writeServiceError(w, r, badRequest(err))
		return
	}
	defer rc.Close()

	if contentType := mime.TypeByExtension(path.Ext(key)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	if seeker, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, path.Base(key), time.Time{}, seeker)
		return
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		s.log().Debug("media copy interrupted", "key", key, "error", err)
	}
}

func mediaKey(raw string) string {
	raw = strings.Trim(strings.TrimSpace(raw), "/")
	first, rest, found := strings.Cut(raw, "/")
	if found && transformSegment.MatchString(first) {
		return rest
	}
	return raw
}
