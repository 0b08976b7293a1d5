package storage

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/noahxzhu/tiffin-client/internal/model"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tiffin", "user_data.json")
	return Open(path, quietLogger()), path
}

func TestStore_SetUserRoundTripAcrossRestart(t *testing.T) {
	s, path := newTestStore(t)

	if err := s.SetUser("Asha", "asha@example.com", "u-1", "tok-1"); err != nil {
		t.Fatalf("SetUser: %v", err)
	}

	reopened := Open(path, quietLogger())
	name, email, id := reopened.GetUser()
	if name != "Asha" || email != "asha@example.com" || id != "u-1" {
		t.Errorf("GetUser() = (%q, %q, %q), want (Asha, asha@example.com, u-1)", name, email, id)
	}
	if got := reopened.Token(); got != "tok-1" {
		t.Errorf("Token() = %q, want tok-1", got)
	}
	if !reopened.IsLoggedIn() {
		t.Error("IsLoggedIn() = false after reload, want true")
	}
}

func TestStore_PersistedDocumentShape(t *testing.T) {
	s, path := newTestStore(t)
	if err := s.SetUser("Asha", "asha@example.com", "u-1", "tok-1"); err != nil {
		t.Fatalf("SetUser: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read session file: %v", err)
	}
	var doc map[string]string
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("session file is not a flat JSON object: %v", err)
	}
	want := map[string]string{
		"name":         "Asha",
		"email":        "asha@example.com",
		"user_id":      "u-1",
		"access_token": "tok-1",
	}
	for k, v := range want {
		if doc[k] != v {
			t.Errorf("doc[%q] = %q, want %q", k, doc[k], v)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %v, want 0600", perm)
	}
}

func TestStore_IsLoggedInRequiresEveryField(t *testing.T) {
	full := model.Session{Name: "n", Email: "e", UserID: "id", AccessToken: "t"}
	cases := map[string]func(*model.Session){
		"name":         func(s *model.Session) { s.Name = "" },
		"email":        func(s *model.Session) { s.Email = "" },
		"user_id":      func(s *model.Session) { s.UserID = "" },
		"access_token": func(s *model.Session) { s.AccessToken = "" },
	}

	for field, drop := range cases {
		t.Run(field, func(t *testing.T) {
			s, path := newTestStore(t)
			sess := full
			drop(&sess)

			err := s.SetUser(sess.Name, sess.Email, sess.UserID, sess.AccessToken)
			if !errors.Is(err, ErrIncompleteSession) {
				t.Errorf("SetUser error = %v, want ErrIncompleteSession", err)
			}
			if s.IsLoggedIn() {
				t.Errorf("IsLoggedIn() = true with %s missing", field)
			}
			for _, st := range []*Store{s, Open(path, quietLogger())} {
				if got := st.Session(); got != (model.Session{}) {
					t.Errorf("Session() = %+v with %s missing, want empty", got, field)
				}
			}
			raw, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("ReadFile: %v", err)
			}
			var doc map[string]string
			if err := json.Unmarshal(raw, &doc); err != nil {
				t.Fatalf("session file: %v", err)
			}
			for k, v := range doc {
				if v != "" {
					t.Errorf("doc[%q] = %q, want empty", k, v)
				}
			}
		})
	}
}

func TestStore_Clear(t *testing.T) {
	s, path := newTestStore(t)
	if err := s.SetUser("Asha", "asha@example.com", "u-1", "tok-1"); err != nil {
		t.Fatalf("SetUser: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	for _, st := range []*Store{s, Open(path, quietLogger())} {
		if st.IsLoggedIn() {
			t.Error("IsLoggedIn() = true after Clear")
		}
		name, email, id := st.GetUser()
		if name != "" || email != "" || id != "" {
			t.Errorf("GetUser() = (%q, %q, %q), want all empty", name, email, id)
		}
		if st.Token() != "" {
			t.Errorf("Token() = %q, want empty", st.Token())
		}
	}
}

func TestStore_LoadDegradesToEmpty(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
	}{
		{"empty file", []byte{}},
		{"corrupt json", []byte("{not json")},
		{"wrong shape", []byte(`["a","b"]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "user_data.json")
			if err := os.WriteFile(path, tt.content, 0600); err != nil {
				t.Fatal(err)
			}
			s := Open(path, quietLogger())
			if s.IsLoggedIn() {
				t.Error("IsLoggedIn() = true for unusable file")
			}
			if s.UserName() != "User" {
				t.Errorf("UserName() = %q, want User", s.UserName())
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		s := Open(filepath.Join(t.TempDir(), "absent.json"), quietLogger())
		if s.IsLoggedIn() {
			t.Error("IsLoggedIn() = true for missing file")
		}
	})
}

func TestStore_SaveFailureKeepsMemoryState(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	// The parent "directory" is a regular file, so MkdirAll fails.
	s := NewStore(filepath.Join(blocker, "user_data.json"), quietLogger())

	if err := s.SetUser("Asha", "asha@example.com", "u-1", "tok-1"); err == nil {
		t.Fatal("SetUser succeeded, want persistence error")
	}
	if !s.IsLoggedIn() {
		t.Error("in-memory session lost after failed save")
	}
}

func TestStore_SaveUser(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.SaveUser(model.User{ID: "u-9", Name: "Ravi", Email: "ravi@example.com"}, "tok-9"); err != nil {
		t.Fatalf("SaveUser: %v", err)
	}
	if s.UserID() != "u-9" || s.UserName() != "Ravi" || s.Token() != "tok-9" {
		t.Errorf("session = %+v", s.Session())
	}
}
