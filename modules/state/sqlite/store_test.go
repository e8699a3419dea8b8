package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Simonx22/telegram-assistant/internal/conversation"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	t.Parallel()

	db := testDB(t)
	if err := migrate(context.Background(), db); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	var version int
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		t.Fatalf("read version: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("schema version = %d, want %d", version, len(migrations))
	}
}

func TestStateStoreRoundtrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &StateStore{db: testDB(t)}

	if _, ok, err := store.Get(ctx, "chat-1"); err != nil || ok {
		t.Fatalf("Get on empty store = ok=%v err=%v", ok, err)
	}

	if err := store.Put(ctx, "chat-1", []byte("token-a")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	st, ok, err := store.Get(ctx, "chat-1")
	if err != nil || !ok {
		t.Fatalf("Get = ok=%v err=%v", ok, err)
	}
	if string(st.Token) != "token-a" || st.ChatID != "chat-1" {
		t.Errorf("state = %+v", st)
	}
	if st.LastUsed.IsZero() {
		t.Error("LastUsed not set")
	}

	// Upsert replaces the token.
	if err := store.Put(ctx, "chat-1", []byte("token-b")); err != nil {
		t.Fatalf("Put upsert: %v", err)
	}
	st, _, _ = store.Get(ctx, "chat-1")
	if string(st.Token) != "token-b" {
		t.Errorf("token after upsert = %q", st.Token)
	}

	if n, err := store.Len(ctx); err != nil || n != 1 {
		t.Errorf("Len = %d err=%v, want 1", n, err)
	}

	if err := store.Clear(ctx, "chat-1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "chat-1"); ok {
		t.Error("state survived Clear")
	}
}

func TestStateStorePrune(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := testDB(t)
	store := &StateStore{db: db}

	old := time.Now().Add(-48 * time.Hour).Unix()
	if _, err := db.Exec(
		`INSERT INTO conversations (chat_id, token, last_used) VALUES (?, ?, ?)`,
		"stale", []byte("t"), old); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "fresh", []byte("t")); err != nil {
		t.Fatal(err)
	}

	n, err := store.PruneBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d rows, want 1", n)
	}
	if _, ok, _ := store.Get(ctx, "fresh"); !ok {
		t.Error("fresh state was pruned")
	}
	if _, ok, _ := store.Get(ctx, "stale"); ok {
		t.Error("stale state survived")
	}
}

func TestTranscriptRecent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &TranscriptStore{db: testDB(t), maxRows: 100}

	for i := range 5 {
		chat := "a"
		if i%2 == 1 {
			chat = "b"
		}
		ex := conversation.Exchange{
			ChatID:   chat,
			SenderID: "100",
			Query:    fmt.Sprintf("q%d", i),
			Reply:    fmt.Sprintf("r%d", i),
		}
		if err := store.Append(ctx, ex); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	all, err := store.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("len = %d, want 5", len(all))
	}
	if all[0].Query != "q4" || all[4].Query != "q0" {
		t.Errorf("order = %q .. %q, want newest first", all[0].Query, all[4].Query)
	}

	onlyA, err := store.Recent(ctx, "a", 10)
	if err != nil {
		t.Fatalf("Recent(a): %v", err)
	}
	if len(onlyA) != 3 {
		t.Errorf("chat filter returned %d rows, want 3", len(onlyA))
	}
	for _, ex := range onlyA {
		if ex.ChatID != "a" {
			t.Errorf("filtered row from chat %q", ex.ChatID)
		}
	}

	limited, err := store.Recent(ctx, "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limit ignored: got %d rows", len(limited))
	}
}

func TestTranscriptTrim(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &TranscriptStore{db: testDB(t), maxRows: 3}

	for i := range 6 {
		ex := conversation.Exchange{ChatID: "a", Query: fmt.Sprintf("q%d", i)}
		if err := store.Append(ctx, ex); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := store.Recent(ctx, "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("len = %d, want trim to 3", len(rows))
	}
	if rows[0].Query != "q5" || rows[2].Query != "q3" {
		t.Errorf("kept %q .. %q, want the newest three", rows[0].Query, rows[2].Query)
	}
}

func TestTranscriptTrimDisabled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &TranscriptStore{db: testDB(t), maxRows: -1}

	for i := range 10 {
		if err := store.Append(ctx, conversation.Exchange{ChatID: "a", Query: fmt.Sprintf("q%d", i)}); err != nil {
			t.Fatal(err)
		}
	}
	rows, err := store.Recent(ctx, "", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 10 {
		t.Errorf("len = %d, want all rows kept", len(rows))
	}
}
