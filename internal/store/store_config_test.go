package store

import (
	"database/sql"
	"testing"
	"time"
)

func TestPoolEnvParsing(t *testing.T) {
	cases := []struct {
		raw      string
		wantInt  int
		wantDur  time.Duration
		describe string
	}{
		{raw: "", wantInt: 3, wantDur: 2 * time.Minute, describe: "unset"},
		{raw: "4", wantInt: 4, wantDur: 4 * time.Second, describe: "plain number"},
		{raw: "45s", wantInt: 3, wantDur: 45 * time.Second, describe: "go duration"},
		{raw: "0", wantInt: 3, wantDur: 2 * time.Minute, describe: "zero"},
		{raw: "-2", wantInt: 3, wantDur: 2 * time.Minute, describe: "negative"},
		{raw: "soon", wantInt: 3, wantDur: 2 * time.Minute, describe: "garbage"},
	}
	for _, tc := range cases {
		t.Run(tc.describe, func(t *testing.T) {
			t.Setenv(maxOpenConnsEnvKey, tc.raw)
			t.Setenv(connMaxLifetimeEnvKey, tc.raw)
			if got := intFromEnv(maxOpenConnsEnvKey, 3); got != tc.wantInt {
				t.Fatalf("intFromEnv(%q) = %d, want %d", tc.raw, got, tc.wantInt)
			}
			if got := durationFromEnv(connMaxLifetimeEnvKey, 2*time.Minute); got != tc.wantDur {
				t.Fatalf("durationFromEnv(%q) = %v, want %v", tc.raw, got, tc.wantDur)
			}
		})
	}
}

func TestConfigurePoolHonoursEnv(t *testing.T) {
	t.Setenv(maxOpenConnsEnvKey, "7")
	t.Setenv(maxIdleConnsEnvKey, "")

	db, err := sql.Open("sqlite", "file::memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	configurePool(db, 2, 1)
	if got := db.Stats().MaxOpenConnections; got != 7 {
		t.Fatalf("expected max open 7 from env, got %d", got)
	}
}
