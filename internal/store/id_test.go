package store

import (
	"strings"
	"testing"
)

func TestGenerateID(t *testing.T) {
	t.Run("valid prefix", func(t *testing.T) {
		id, err := GenerateID("ph", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(id) != 9 { // "ph-" + 6 chars
			t.Fatalf("expected length 9, got %d: %s", len(id), id)
		}
		if id[:3] != "ph-" {
			t.Fatalf("expected prefix ph-, got %s", id[:3])
		}
	})

	t.Run("empty prefix", func(t *testing.T) {
		_, err := GenerateID("", nil)
		if err == nil {
			t.Fatal("expected error for empty prefix")
		}
	})

	t.Run("retries on collision", func(t *testing.T) {
		calls := 0
		exists := func(id string) (bool, error) {
			calls++
			return calls < 3, nil // first 2 calls collide
		}
		id, err := GenerateID("ph", exists)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id == "" {
			t.Fatal("expected non-empty id")
		}
		if calls != 3 {
			t.Fatalf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		exists := func(id string) (bool, error) {
			return true, nil
		}
		_, err := GenerateID("ph", exists)
		if err == nil {
			t.Fatal("expected error after max attempts")
		}
	})
}

func TestGeneratePhotoAndLinkID(t *testing.T) {
	photoID, err := GeneratePhotoID(nil)
	if err != nil {
		t.Fatalf("generate photo id: %v", err)
	}
	if !strings.HasPrefix(photoID, "ph-") {
		t.Fatalf("expected photo id with ph- prefix, got %q", photoID)
	}

	linkID, err := GenerateLinkID(nil)
	if err != nil {
		t.Fatalf("generate link id: %v", err)
	}
	if !strings.HasPrefix(linkID, "lk-") {
		t.Fatalf("expected link id with lk- prefix, got %q", linkID)
	}
}
