package store

import (
	"testing"
	"time"
)

func TestSessionCreateAnonymous(t *testing.T) {
	ss := NewSessionStore(setupTestDB(t))

	sess, err := ss.Create()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if len(sess.Token) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(sess.Token))
	}
	if sess.UserEmail != nil {
		t.Error("new session has a user pointer")
	}
	if sess.IsAdmin {
		t.Error("new session has the admin flag set")
	}
}

func TestSessionGetByToken(t *testing.T) {
	ss := NewSessionStore(setupTestDB(t))

	created, err := ss.Create()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	sess, err := ss.GetByToken(created.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess == nil || sess.ID != created.ID {
		t.Fatalf("got %+v, want session %d", sess, created.ID)
	}

	sess, err = ss.GetByToken("bogus")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess != nil {
		t.Error("expected nil for unknown token")
	}
}

func TestSessionUserAndAdminIndependent(t *testing.T) {
	ss := NewSessionStore(setupTestDB(t))

	created, err := ss.Create()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	if err := ss.SetAdmin(created.ID, true); err != nil {
		t.Fatalf("set admin: %v", err)
	}
	sess, err := ss.GetByToken(created.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if !sess.IsAdmin {
		t.Error("admin flag not set")
	}
	if sess.UserEmail != nil {
		t.Error("admin flag set a user pointer")
	}

	if err := ss.SetUserEmail(created.ID, "alice@example.com"); err != nil {
		t.Fatalf("set user email: %v", err)
	}
	sess, err = ss.GetByToken(created.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess.UserEmail == nil || *sess.UserEmail != "alice@example.com" {
		t.Errorf("user email = %v, want alice@example.com", sess.UserEmail)
	}
	if !sess.IsAdmin {
		t.Error("setting the user pointer cleared the admin flag")
	}
}

func TestSessionClear(t *testing.T) {
	ss := NewSessionStore(setupTestDB(t))

	created, err := ss.Create()
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := ss.SetUserEmail(created.ID, "alice@example.com"); err != nil {
		t.Fatalf("set user email: %v", err)
	}
	if err := ss.SetAdmin(created.ID, true); err != nil {
		t.Fatalf("set admin: %v", err)
	}

	if err := ss.Clear(created.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	sess, err := ss.GetByToken(created.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if sess.UserEmail != nil || sess.IsAdmin {
		t.Errorf("session not fully cleared: %+v", sess)
	}
}

func TestSessionDeleteExpired(t *testing.T) {
	db := setupTestDB(t)
	ss := NewSessionStore(db)

	if _, err := ss.Create(); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := db.Exec(
		`INSERT INTO sessions (token, expires_at) VALUES (?, ?)`,
		"stale", time.Now().UTC().Add(-time.Hour),
	); err != nil {
		t.Fatalf("insert stale session: %v", err)
	}

	n, err := ss.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}
