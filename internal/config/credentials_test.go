package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCredentials_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credentials.json")
	expires := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	creds := &Credentials{
		IDToken:      "id",
		RefreshToken: "refresh",
		ExpiresAt:    expires,
		UID:          "u1",
		Email:        "a@b.co",
		DisplayName:  "Ada",
	}

	if err := SaveCredentialsTo(path, creds); err != nil {
		t.Fatalf("SaveCredentialsTo() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("permissions = %o, want 600", perm)
	}

	loaded, err := LoadCredentialsFrom(path)
	if err != nil {
		t.Fatalf("LoadCredentialsFrom() error = %v", err)
	}

	id, refresh, exp := loaded.Snapshot()
	if id != "id" || refresh != "refresh" || !exp.Equal(expires) {
		t.Errorf("Snapshot() = %s, %s, %v", id, refresh, exp)
	}
	uid, email, name := loaded.Identity()
	if uid != "u1" || email != "a@b.co" || name != "Ada" {
		t.Errorf("Identity() = %s, %s, %s", uid, email, name)
	}
}

func TestLoadCredentials_Missing(t *testing.T) {
	_, err := LoadCredentialsFrom(filepath.Join(t.TempDir(), "none.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want os.ErrNotExist", err)
	}
}

func TestLoadCredentials_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `nope`},
		{"no tokens", `{"uid":"u1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "credentials.json")
			if err := os.WriteFile(path, []byte(tt.data), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadCredentialsFrom(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCredentials_SetTokensKeepsRefresh(t *testing.T) {
	creds := &Credentials{IDToken: "old", RefreshToken: "r1"}
	creds.SetTokens("new", "", time.Time{})

	id, refresh, _ := creds.Snapshot()
	if id != "new" || refresh != "r1" {
		t.Errorf("Snapshot() = %s, %s", id, refresh)
	}
}

func TestDeleteCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	_ = SaveCredentialsTo(path, &Credentials{IDToken: "x"})

	if err := DeleteCredentialsAt(path); err != nil {
		t.Fatalf("DeleteCredentialsAt() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still exists")
	}
	if err := DeleteCredentialsAt(path); err != nil {
		t.Errorf("second delete error = %v", err)
	}
}

func TestSaveCredentials_DefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	if err := SaveCredentials(&Credentials{RefreshToken: "r"}); err != nil {
		t.Fatalf("SaveCredentials() error = %v", err)
	}
	creds, err := LoadCredentials()
	if err != nil {
		t.Fatalf("LoadCredentials() error = %v", err)
	}
	if creds.RefreshToken != "r" {
		t.Errorf("RefreshToken = %s", creds.RefreshToken)
	}
}
