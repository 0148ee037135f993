package main

import (
	"context"
	"testing"
)

func TestCLISettingsShowDefaults(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "settings", "show")
	if err != nil {
		t.Fatalf("settings show: %v", err)
	}
	requireContains(t, out, "segment_length_minutes")
	requireContains(t, out, "direct_stream")
	requireContains(t, out, "/volume1/auction_archive")
}

func TestCLISettingsSetPersistsAndValidates(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "settings", "set",
		"segment_length_minutes=20", "whisper_model=small", "--updated-by", "ops")
	if err != nil {
		t.Fatalf("settings set: %v", err)
	}
	requireContains(t, out, "Updated 2 setting(s)")

	store := env.openStore(t)
	settings, err := store.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if settings.SegmentLengthMinutes != 20 {
		t.Fatalf("segment length = %d, want 20", settings.SegmentLengthMinutes)
	}
	if settings.WhisperModel != "small" {
		t.Fatalf("whisper model = %q, want small", settings.WhisperModel)
	}
	if settings.UpdatedBy != "ops" {
		t.Fatalf("updated_by = %q, want ops", settings.UpdatedBy)
	}
}

func TestCLISettingsSetRejectsBadInput(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "settings", "set", "segment_length_minutes=90"); err == nil {
		t.Fatal("expected out-of-range value to be rejected")
	}
	if _, _, err := runCLI(t, env, "settings", "set", "no_such_field=1"); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
	if _, _, err := runCLI(t, env, "settings", "set", "segment_length_minutes"); err == nil {
		t.Fatal("expected missing value to be rejected")
	}

	store := env.openStore(t)
	settings, err := store.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if settings.SegmentLengthMinutes != 15 {
		t.Fatalf("rejected set leaked into the store: %d", settings.SegmentLengthMinutes)
	}
}
