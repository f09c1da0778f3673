package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newBuf() (*bytes.Buffer, *slog.Logger) {
	var buf bytes.Buffer
	return &buf, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRedactsStorageKeys(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{})

	h.StoreSetRejected("result:texture:abcdef")
	out := buf.String()
	if strings.Contains(out, "result:texture") {
		t.Fatalf("key not redacted: %s", out)
	}
	if !strings.Contains(out, "gencache.store_set_rejected") {
		t.Fatalf("missing event: %s", out)
	}

	buf.Reset()
	h = New(l, Options{Redact: func(string) string { return "X" }})
	h.StoreSelfHeal("k", "corrupt")
	if !strings.Contains(buf.String(), "key=X") || !strings.Contains(buf.String(), "reason=corrupt") {
		t.Fatalf("custom redactor not used: %s", buf.String())
	}
}

func TestSampling(t *testing.T) {
	buf, l := newBuf()
	h := New(l, Options{LifecycleEvery: 3})
	for i := 0; i < 9; i++ {
		h.EntryCreated("images")
	}
	if n := strings.Count(buf.String(), "gencache.entry_created"); n != 3 {
		t.Fatalf("logged %d, want 3", n)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	h := New(nil, Options{})
	h.EntryCreated("c")
	h.EntryDestroyed("c", true)
	h.AssignUnknown("c")
	h.GenerationFailed("c", errors.New("x"))
	h.StoreSelfHeal("k", "corrupt")
	h.StoreSetRejected("k")
}
