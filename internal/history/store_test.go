package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/diogo/chatbridge/internal/models"
)

var baseTime = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// newTestStore returns a store whose clock advances one minute per call
func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	tick := 0
	store.now = func() time.Time {
		tick++
		return baseTime.Add(time.Duration(tick) * time.Minute)
	}
	return store
}

func savedSession(ref string, turns ...string) models.SavedSession {
	history := make([]models.TranscriptEntry, 0, len(turns))
	for i, text := range turns {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleModel
		}
		history = append(history, models.NewTranscriptEntry(role, text))
	}
	return models.SavedSession{SessionRef: ref, History: history}
}

func TestNewStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sessions")

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if store.Dir() != dir {
		t.Errorf("Dir() = %s, want %s", store.Dir(), dir)
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("sessions directory was not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o700 {
		t.Errorf("directory permissions = %o, want 700", perm)
	}
}

func TestStore_Save(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.Save("", savedSession("s1", "How do plants grow?", "With light."))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if sess.ID == "" {
		t.Error("session ID is empty")
	}
	if sess.Title != "How do plants grow?" {
		t.Errorf("Title = %q, want derived from first user turn", sess.Title)
	}
	if sess.SessionRef != "s1" {
		t.Errorf("SessionRef = %q, want s1", sess.SessionRef)
	}
	if sess.Turns() != 2 {
		t.Errorf("Turns() = %d, want 2", sess.Turns())
	}
	if !sess.CreatedAt.Equal(sess.UpdatedAt) {
		t.Error("CreatedAt and UpdatedAt should match on a new session")
	}

	info, err := os.Stat(filepath.Join(store.Dir(), sess.ID+".json"))
	if err != nil {
		t.Fatalf("session file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file permissions = %o, want 600", perm)
	}
}

func TestStore_SaveExplicitTitle(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.Save("  Biology notes  ", savedSession("", "q"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if sess.Title != "Biology notes" {
		t.Errorf("Title = %q, want %q", sess.Title, "Biology notes")
	}
}

func TestStore_SaveCopiesHistory(t *testing.T) {
	store := newTestStore(t)

	saved := savedSession("s1", "original")
	sess, err := store.Save("", saved)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	saved.History[0].Parts[0].Text = "mutated"

	if sess.History[0].Text() != "original" {
		t.Error("session shares history with the caller")
	}
}

func TestStore_Get(t *testing.T) {
	store := newTestStore(t)

	saved := savedSession("s7", "Q", "R")
	saved.History[1].Videos = []models.Suggestion{{URL: "https://v/1", Title: "One", Thumbnail: "https://t/1"}}

	created, _ := store.Save("", saved)

	got, err := store.Get(created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got.SessionRef != "s7" {
		t.Errorf("SessionRef = %q, want s7", got.SessionRef)
	}
	if len(got.History) != 2 || got.History[0].Text() != "Q" || got.History[1].Role != models.RoleModel {
		t.Errorf("History = %+v", got.History)
	}
	if len(got.History[1].Videos) != 1 || got.History[1].Videos[0].Title != "One" {
		t.Errorf("Videos not persisted: %+v", got.History[1].Videos)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("missing")
	if err == nil || !strings.Contains(err.Error(), "session not found") {
		t.Errorf("Get(missing) error = %v, want not found", err)
	}
}

func TestStore_GetRejectsPathLikeIDs(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"", "../config", "a/b", `a\b`, "meta"} {
		if _, err := store.Get(id); err == nil {
			t.Errorf("Get(%q) should fail", id)
		}
	}
}

func TestStore_GetCorrupted(t *testing.T) {
	store := newTestStore(t)

	if err := os.WriteFile(filepath.Join(store.Dir(), "broken.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Get("broken"); err == nil {
		t.Error("Get should fail on corrupted file")
	}
}

func TestStore_Update(t *testing.T) {
	store := newTestStore(t)

	created, _ := store.Save("Kept title", savedSession("", "first"))

	updated, err := store.Update(created.ID, savedSession("s2", "first", "answer", "second"))
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if updated.Title != "Kept title" {
		t.Errorf("Title = %q, want unchanged", updated.Title)
	}
	if updated.SessionRef != "s2" {
		t.Errorf("SessionRef = %q, want s2", updated.SessionRef)
	}
	if updated.Turns() != 3 {
		t.Errorf("Turns() = %d, want 3", updated.Turns())
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Error("UpdatedAt should advance")
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("CreatedAt should not change")
	}

	got, _ := store.Get(created.ID)
	if got.Turns() != 3 {
		t.Errorf("persisted Turns() = %d, want 3", got.Turns())
	}
}

func TestStore_UpdateNotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Update("missing", savedSession("")); err == nil {
		t.Error("Update should fail for unknown session")
	}
}

func TestStore_List(t *testing.T) {
	store := newTestStore(t)

	first, _ := store.Save("first", savedSession(""))
	second, _ := store.Save("second", savedSession(""))
	third, _ := store.Save("third", savedSession(""))

	sessions, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	want := []string{third.ID, second.ID, first.ID}
	if len(sessions) != len(want) {
		t.Fatalf("List returned %d sessions, want %d", len(sessions), len(want))
	}
	for i, id := range want {
		if sessions[i].ID != id {
			t.Errorf("sessions[%d] = %s, want %s", i, sessions[i].Title, id)
		}
	}

	// Updating moves a session to the front
	if _, err := store.Update(first.ID, savedSession("s1")); err != nil {
		t.Fatal(err)
	}
	sessions, _ = store.List()
	if sessions[0].ID != first.ID {
		t.Errorf("sessions[0] = %s, want updated session first", sessions[0].Title)
	}
}

func TestStore_ListSkipsForeignFiles(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Save("ok", savedSession("")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.ToggleFavorite(mustFirstID(t, store)); err != nil {
		t.Fatal(err)
	}
	_ = os.WriteFile(filepath.Join(store.Dir(), "broken.json"), []byte("nope"), 0o600)
	_ = os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("x"), 0o600)
	_ = os.Mkdir(filepath.Join(store.Dir(), "nested.json"), 0o700)

	sessions, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Errorf("List returned %d sessions, want 1", len(sessions))
	}
}

func TestStore_ListEmpty(t *testing.T) {
	store := newTestStore(t)

	sessions, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("List returned %d sessions, want 0", len(sessions))
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)

	sess, _ := store.Save("", savedSession("", "bye"))
	if _, err := store.ToggleFavorite(sess.ID); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(sess.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, err := store.Get(sess.ID); err == nil {
		t.Error("session still readable after Delete")
	}

	favorites, _ := store.Favorites()
	if favorites[sess.ID] {
		t.Error("deleted session is still a favorite")
	}

	if err := store.Delete(sess.ID); err == nil {
		t.Error("second Delete should fail")
	}
}

func TestStore_Rename(t *testing.T) {
	store := newTestStore(t)

	sess, _ := store.Save("", savedSession("", "hello"))

	if err := store.Rename(sess.ID, "  Greetings "); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}

	got, _ := store.Get(sess.ID)
	if got.Title != "Greetings" {
		t.Errorf("Title = %q, want Greetings", got.Title)
	}

	if err := store.Rename(sess.ID, "   "); err == nil {
		t.Error("Rename with blank title should fail")
	}
	if err := store.Rename("missing", "x"); err == nil {
		t.Error("Rename of unknown session should fail")
	}
}

func TestStore_ClearAll(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		if _, err := store.Save("", savedSession("", "q")); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.ClearAll(); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	sessions, _ := store.List()
	if len(sessions) != 0 {
		t.Errorf("List returned %d sessions after ClearAll", len(sessions))
	}
}

func TestSession_ToSaved(t *testing.T) {
	store := newTestStore(t)

	sess, _ := store.Save("", savedSession("s3", "Q", "R"))
	saved := sess.ToSaved()

	if saved.SessionRef != "s3" {
		t.Errorf("SessionRef = %q, want s3", saved.SessionRef)
	}
	if len(saved.History) != 2 || saved.History[1].Text() != "R" {
		t.Errorf("History = %+v", saved.History)
	}

	saved.History[0] = models.NewTranscriptEntry(models.RoleUser, "changed")
	if sess.History[0].Text() != "Q" {
		t.Error("ToSaved shares its history slice with the session")
	}
}

func TestDeriveTitle(t *testing.T) {
	long := strings.Repeat("a", 60)

	tests := []struct {
		name    string
		history []models.TranscriptEntry
		want    string
	}{
		{
			name:    "first user turn",
			history: savedSession("", "What is DNA?", "A molecule.").History,
			want:    "What is DNA?",
		},
		{
			name: "skips model and blank turns",
			history: []models.TranscriptEntry{
				models.NewTranscriptEntry(models.RoleModel, "Welcome"),
				models.NewTranscriptEntry(models.RoleUser, "   "),
				models.NewTranscriptEntry(models.RoleUser, "second\nline"),
			},
			want: "second line",
		},
		{
			name:    "truncated",
			history: savedSession("", long).History,
			want:    strings.Repeat("a", 50) + "...",
		},
		{
			name:    "no user turn",
			history: nil,
			want:    "Chat 2026-03-14 09:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.history, baseTime); got != tt.want {
				t.Errorf("DeriveTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveTitle_MultibyteTruncation(t *testing.T) {
	text := strings.Repeat("é", 55)
	got := DeriveTitle(savedSession("", text).History, baseTime)

	want := strings.Repeat("é", 50) + "..."
	if got != want {
		t.Errorf("DeriveTitle() = %q, want %q", got, want)
	}
}

func mustFirstID(t *testing.T, store *Store) string {
	t.Helper()
	sessions, err := store.List()
	if err != nil || len(sessions) == 0 {
		t.Fatalf("expected at least one session: %v", err)
	}
	return sessions[0].ID
}
