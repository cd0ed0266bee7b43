package server

import (
	"fmt"
	"net/http"
	"strings"

	"roadlens/internal/auth"
)

const (
	userIDHeader     = "X-User-ID"
	adminTokenHeader = "X-Admin-Token"
)

// withIdentity resolves the caller from a bearer token, or from the
// X-User-ID header when the server is configured to trust an upstream proxy.
// Requests without credentials pass through anonymously; handlers decide
// whether a user is required.
func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token, ok := bearerToken(r); ok {
			if s.tokens == nil {
				s.writeServiceError(w, r, makeAPIError(http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized,
					fmt.Errorf("bearer tokens are not enabled")))
				return
			}
			userID, err := s.tokens.UserID(token)
			if err != nil {
				s.writeServiceError(w, r, makeAPIError(http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized, err))
				return
			}
			r = r.WithContext(withRequester(r.Context(), requester{UserID: userID, Source: sourceBearer}))
		} else if s.trustUserHeader {
			if userID := strings.TrimSpace(r.Header.Get(userIDHeader)); userID != "" {
				r = r.WithContext(withRequester(r.Context(), requester{UserID: userID, Source: sourceProxyHeader}))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requireUser writes a 401 and returns false when the request is anonymous.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	who, ok := requesterFrom(r.Context())
	if !ok {
		s.writeServiceError(w, r, unauthenticated())
		return "", false
	}
	return who.UserID, true
}

// requireAdmin checks the X-Admin-Token header against the configured hash.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if s.adminTokenHash == "" {
		s.writeServiceError(w, r, makeAPIError(http.StatusForbidden, "forbidden", ErrCodeForbidden,
			fmt.Errorf("admin operations are disabled")))
		return false
	}
	token := strings.TrimSpace(r.Header.Get(adminTokenHeader))
	if token == "" {
		s.writeServiceError(w, r, makeAPIError(http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized,
			fmt.Errorf("admin token required")))
		return false
	}
	if !auth.VerifyAdminToken(s.adminTokenHash, token) {
		s.writeServiceError(w, r, makeAPIError(http.StatusForbidden, "forbidden", ErrCodeForbidden,
			fmt.Errorf("invalid admin token")))
		return false
	}
	return true
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
