package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"roadlens/internal/blobstore"
)

func TestMediaKey(t *testing.T) {
	tests := map[string]string{
		"evidence/r-1/a.png":                            "evidence/r-1/a.png",
		"w_150,h_150,c_fill,q_auto/evidence/r-1/a.png":  "evidence/r-1/a.png",
		"/w_300,h_200,c_fill,q_auto/evidence/r-1/a.png": "evidence/r-1/a.png",
		"a.png": "a.png",
	}
	for raw, want := range tests {
		if got := mediaKey(raw); got != want {
			t.Fatalf("mediaKey(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestMediaHandler(t *testing.T) {
	ts := newTestServer(t)
	objects, err := blobstore.NewLocalObjects(t.TempDir())
	if err != nil {
		t.Fatalf("local objects: %v", err)
	}
	ts.srv.media = objects

	put, err := objects.Put(context.Background(), "evidence/r-1", ".png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	for _, path := range []string{"/media/" + put.Key, "/media/w_150,h_150,c_fill,q_auto/" + put.Key} {
		w := ts.do(t, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d (%s)", path, w.Code, w.Body.String())
		}
		if w.Body.String() != "png-bytes" {
			t.Fatalf("%s: unexpected body %q", path, w.Body.String())
		}
		if ct := w.Header().Get("Content-Type"); ct != "image/png" {
			t.Fatalf("%s: unexpected content type %q", path, ct)
		}
	}

	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/media/evidence/r-1/missing.png", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestMediaHandler_DisabledWithoutLocalProvider(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(t, httptest.NewRequest(http.MethodGet, "/media/evidence/a.png", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
