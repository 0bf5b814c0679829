package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diagnosis/roomstay/internal/client"
	"github.com/diagnosis/roomstay/internal/domain"
	"github.com/diagnosis/roomstay/internal/session"
	"github.com/diagnosis/roomstay/internal/storage"
	"github.com/diagnosis/roomstay/internal/testbackend"
	"github.com/diagnosis/roomstay/internal/workflow"
	"github.com/diagnosis/roomstay/pkg/config"
	"github.com/diagnosis/roomstay/pkg/events"
	"github.com/diagnosis/roomstay/pkg/logger"
)

func runScript(t *testing.T, script string) (string, *testbackend.Backend, *session.Store) {
	t.Helper()
	logger.SetDefault(logger.New(io.Discard, "error"))

	b := testbackend.New()
	t.Cleanup(b.Close)
	b.AddUser("a@a.com", "secret", "A")
	b.AddRoom(domain.Room{ID: "5", Name: "Spa Suite", Description: "Suite with spa", Capacity: 2, Price: 150, Amenities: []string{"WiFi", "Spa"}})

	store, err := session.Open(context.Background(), storage.NewMemoryKV())
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	sh := newShell(strings.NewReader(script), &out)
	attach(sh, client.New(b.Registry(), store), store, events.Noop{}, workflow.Options{})

	if err := sh.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	return out.String(), b, store
}

func TestShell_BookAndCancel(t *testing.T) {
	script := strings.Join([]string{
		"room 5",
		"dates 2024-05-01 2024-05-03",
		"reserve",
		"login a@a.com secret",
		"reserve",
		"my",
		"cancel 1",
		"y",
		"quit",
	}, "\n")

	out, b, store := runScript(t, script)

	for _, want := range []string{
		"[5] Spa Suite",
		"amenities: WiFi, Spa",
		"-> please log in",
		"-> home",
		"-> reservation confirmed",
		"#1 Spa Suite 2024-05-01 -> 2024-05-03  pending  $150.00",
		"reservation 1 cancelled",
		"no reservations",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}

	if !store.Authenticated() {
		t.Fatal("expected session to stay logged in")
	}
	if ids := b.ReservationIDs(store.User().ID); len(ids) != 0 {
		t.Fatalf("expected no reservations left, got %v", ids)
	}
}

func TestShell_DeclinedCancelKeepsReservation(t *testing.T) {
	script := "login a@a.com secret\nroom 5\ndates 2024-05-01 2024-05-03\nreserve\nmy\ncancel 1\nn\n"

	out, b, store := runScript(t, script)

	if strings.Contains(out, "reservation 1 cancelled") {
		t.Fatalf("declined cancel should not cancel\n%s", out)
	}
	if ids := b.ReservationIDs(store.User().ID); len(ids) != 1 {
		t.Fatalf("expected the reservation to remain, got %v", ids)
	}
}

func TestShell_LoginFailureShowsFormError(t *testing.T) {
	out, _, store := runScript(t, "login a@a.com nope\nwhoami\n")

	if !strings.Contains(out, "login failed: invalid credentials") {
		t.Fatalf("expected inline login error\n%s", out)
	}
	if !strings.Contains(out, "not logged in") || store.Authenticated() {
		t.Fatalf("expected anonymous session\n%s", out)
	}
}

func TestOpenSessionStorage(t *testing.T) {
	cfg := &config.Config{Session: config.SessionConfig{
		Backend: config.SessionBackendFile,
		File:    filepath.Join(t.TempDir(), "nested", "session.json"),
	}}

	kv, closeKV, err := openSessionStorage(context.Background(), cfg)
	if err != nil {
		t.Fatalf("file backend: %v", err)
	}
	defer closeKV()
	if err := kv.Set(context.Background(), session.TokenKey, "tok"); err != nil {
		t.Fatal(err)
	}

	cfg.Session.Backend = "etcd"
	if _, _, err := openSessionStorage(context.Background(), cfg); err == nil {
		t.Fatal("expected unknown backend to fail")
	}
}
