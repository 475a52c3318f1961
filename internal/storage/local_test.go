package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/gulp-tools/gulp/internal/config"
)

func newTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	st, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}
	return st
}

func TestLocalStorage_PutGet(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	objectPath := "uploads/object.txt"
	if err := st.Put(ctx, objectPath, strings.NewReader("hello world")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	exists, err := st.Exists(ctx, objectPath)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected object to exist")
	}

	rc, err := st.Get(ctx, objectPath)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	got, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(got) != "hello world" {
		t.Errorf("content mismatch: got %q", got)
	}

	if err := st.Put(ctx, objectPath, strings.NewReader("replaced")); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	rc, err = st.Get(ctx, objectPath)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	got, _ = io.ReadAll(rc)
	rc.Close()
	if string(got) != "replaced" {
		t.Errorf("expected replaced content, got %q", got)
	}

	if err := st.Delete(ctx, objectPath); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	exists, err = st.Exists(ctx, objectPath)
	if err != nil {
		t.Fatalf("Exists after delete failed: %v", err)
	}
	if exists {
		t.Error("expected object to not exist after delete")
	}
	if err := st.Delete(ctx, objectPath); err != nil {
		t.Errorf("deleting a missing object should succeed, got %v", err)
	}
}

func TestLocalStorage_GetMissing(t *testing.T) {
	st := newTestStorage(t)
	_, err := st.Get(context.Background(), "nope/missing.sz")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestLocalStorage_RejectsEscapingPaths(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()
	for _, p := range []string{"../x", "a/../../x", "uploads/.."} {
		if err := st.Put(ctx, p, strings.NewReader("x")); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Put(%q): expected ErrInvalidPath, got %v", p, err)
		}
	}
}

func TestLocalStorage_ListObjects(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	for _, p := range []string{"uploads/a.sz", "uploads/b.sz", "other/c.sz"} {
		if err := st.Put(ctx, p, strings.NewReader(p)); err != nil {
			t.Fatalf("Put(%q) failed: %v", p, err)
		}
	}

	objects, err := st.ListObjects(ctx, "uploads")
	if err != nil {
		t.Fatalf("ListObjects failed: %v", err)
	}
	sort.Strings(objects)
	if len(objects) != 2 || objects[0] != "uploads/a.sz" || objects[1] != "uploads/b.sz" {
		t.Errorf("unexpected objects: %v", objects)
	}

	objects, err = st.ListObjects(ctx, "missing")
	if err != nil {
		t.Fatalf("ListObjects on missing prefix failed: %v", err)
	}
	if len(objects) != 0 {
		t.Errorf("expected no objects, got %v", objects)
	}
}

func TestLocalStorage_ContextCancelled(t *testing.T) {
	st := newTestStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := st.Put(ctx, "a", strings.NewReader("x")); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	st := newTestStorage(t)
	ctx := context.Background()

	payload := bytes.Repeat([]byte("a,b,c\n1,2,3\n"), 5000)
	n, err := PutCompressed(ctx, st, "uploads/data.sz", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("PutCompressed failed: %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("expected %d bytes written, got %d", len(payload), n)
	}

	raw, err := st.Get(ctx, "uploads/data.sz")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	stored, _ := io.ReadAll(raw)
	raw.Close()
	if len(stored) >= len(payload) {
		t.Errorf("expected compressed object smaller than %d bytes, got %d", len(payload), len(stored))
	}

	rc, err := GetCompressed(ctx, st, "uploads/data.sz")
	if err != nil {
		t.Fatalf("GetCompressed failed: %v", err)
	}
	defer rc.Close()
	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("decompressed payload differs")
	}
}

func TestNew(t *testing.T) {
	st, err := New(context.Background(), config.StorageConfig{Type: "local", Path: t.TempDir()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := st.(*LocalStorage); !ok {
		t.Errorf("expected *LocalStorage, got %T", st)
	}

	if _, err := New(context.Background(), config.StorageConfig{Type: "ftp"}); err == nil {
		t.Error("expected error for unknown storage type")
	}
}
