package chatdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/profitble/bridge/internal/models"
)

// fakeChatDB builds a minimal Messages-shaped database: handle plus message
// tables, dates in nanoseconds since the Apple epoch.
type fakeChatDB struct {
	t    *testing.T
	path string
	db   *sql.DB
}

func newFakeChatDB(t *testing.T) *fakeChatDB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.db")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE handle (
			ROWID INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			service TEXT NOT NULL
		);
		CREATE TABLE message (
			ROWID INTEGER PRIMARY KEY AUTOINCREMENT,
			handle_id INTEGER NOT NULL,
			text TEXT,
			is_from_me INTEGER NOT NULL DEFAULT 0,
			date INTEGER NOT NULL
		);
	`)
	if err != nil {
		t.Fatal(err)
	}

	return &fakeChatDB{t: t, path: path, db: db}
}

func (f *fakeChatDB) addHandle(id, service string) int64 {
	f.t.Helper()
	res, err := f.db.Exec(`INSERT INTO handle (id, service) VALUES (?, ?)`, id, service)
	if err != nil {
		f.t.Fatal(err)
	}
	rowID, _ := res.LastInsertId()
	return rowID
}

func (f *fakeChatDB) addMessage(handleID int64, text string, fromMe bool, unixSecs int64) int64 {
	f.t.Helper()
	appleDate := (unixSecs - appleEpochOffset) * 1_000_000_000
	fromMeInt := 0
	if fromMe {
		fromMeInt = 1
	}
	res, err := f.db.Exec(
		`INSERT INTO message (handle_id, text, is_from_me, date) VALUES (?, ?, ?, ?)`,
		handleID, text, fromMeInt, appleDate,
	)
	if err != nil {
		f.t.Fatal(err)
	}
	rowID, _ := res.LastInsertId()
	return rowID
}

func newTestReader(t *testing.T, path string) *Reader {
	t.Helper()
	r := NewReader(path, zerolog.Nop())
	t.Cleanup(func() { r.Close() })
	return r
}

func TestListNewRowsMissingDatabase(t *testing.T) {
	r := newTestReader(t, filepath.Join(t.TempDir(), "does-not-exist.db"))

	rows, err := r.ListNewRows(context.Background(), 0)
	if err != nil {
		t.Fatalf("missing database should not error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows, got %d", len(rows))
	}
}

func TestListNewRowsIncremental(t *testing.T) {
	f := newFakeChatDB(t)
	h := f.addHandle("+15551234567", "iMessage")
	first := f.addMessage(h, "hello", false, 1700000000)
	f.addMessage(h, "reply", true, 1700000010)

	r := newTestReader(t, f.path)
	ctx := context.Background()

	rows, err := r.ListNewRows(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	if rows[0].ForeignID >= rows[1].ForeignID {
		t.Fatal("rows not in ascending foreign id order")
	}
	if rows[0].Text != "hello" || rows[0].Direction != models.Inbound {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Text != "reply" || rows[1].Direction != models.Outbound {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
	if rows[0].Timestamp != 1700000000 {
		t.Fatalf("apple epoch conversion wrong: %f", rows[0].Timestamp)
	}

	// Requesting past the first row must never return it again.
	rows, err = r.ListNewRows(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Text != "reply" {
		t.Fatalf("expected only the second row, got %+v", rows)
	}

	rows, err = r.ListNewRows(ctx, rows[0].ForeignID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no rows past the end, got %d", len(rows))
	}
}

func TestListNewRowsFiltersService(t *testing.T) {
	f := newFakeChatDB(t)
	im := f.addHandle("+15551234567", "iMessage")
	sms := f.addHandle("+15559999999", "SMS")
	f.addMessage(im, "keep me", false, 1700000000)
	f.addMessage(sms, "drop me", false, 1700000001)

	r := newTestReader(t, f.path)
	rows, err := r.ListNewRows(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Text != "keep me" {
		t.Fatalf("service filter failed: %+v", rows)
	}
}

func TestListNewRowsSkipsNullText(t *testing.T) {
	f := newFakeChatDB(t)
	h := f.addHandle("+15551234567", "iMessage")
	if _, err := f.db.Exec(
		`INSERT INTO message (handle_id, text, is_from_me, date) VALUES (?, NULL, 0, 0)`, h,
	); err != nil {
		t.Fatal(err)
	}
	f.addMessage(h, "real one", false, 1700000000)

	r := newTestReader(t, f.path)
	rows, err := r.ListNewRows(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Text != "real one" {
		t.Fatalf("attachment-only rows should be skipped: %+v", rows)
	}
}

func TestListConversations(t *testing.T) {
	f := newFakeChatDB(t)
	a := f.addHandle("+15551234567", "iMessage")
	b := f.addHandle("+15557654321", "iMessage")
	email := f.addHandle("person@example.com", "iMessage")
	f.addMessage(a, "old", false, 1700000000)
	f.addMessage(a, "newest from a", false, 1700000100)
	f.addMessage(b, "only one", true, 1700000050)
	f.addMessage(email, "not a phone handle", false, 1700000200)

	r := newTestReader(t, f.path)
	conversations, err := r.ListConversations(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(conversations) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(conversations))
	}
	if conversations[0].SenderID != "+15551234567" || conversations[0].LastMessage != "newest from a" {
		t.Fatalf("unexpected first conversation: %+v", conversations[0])
	}
	if conversations[1].SenderID != "+15557654321" {
		t.Fatalf("unexpected second conversation: %+v", conversations[1])
	}
}

func TestMessagesForKey(t *testing.T) {
	f := newFakeChatDB(t)
	h := f.addHandle("+15551234567", "iMessage")
	other := f.addHandle("+15559999999", "iMessage")
	f.addMessage(h, "first", false, 1700000000)
	f.addMessage(h, "second", true, 1700000010)
	f.addMessage(other, "unrelated", false, 1700000020)

	r := newTestReader(t, f.path)
	msgs, err := r.MessagesForKey(context.Background(), "+15551234567", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if !msgs[0].IsFromUser || msgs[0].Text != "first" {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].IsFromUser {
		t.Fatal("is_from_me row should not be marked from user")
	}
}
