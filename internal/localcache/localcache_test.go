package localcache

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSaveLoad(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	type doc struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := c.Save(ctx, DocReports, doc{Name: "snapshot", Count: 3}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var got doc
	ok, err := c.Load(ctx, DocReports, &got)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !ok {
		t.Fatal("expected document to exist")
	}
	if got.Name != "snapshot" || got.Count != 3 {
		t.Errorf("unexpected document: %+v", got)
	}
}

func TestLoadMissingKey(t *testing.T) {
	c := openTestCache(t)

	var v map[string]string
	ok, err := c.Load(context.Background(), "absent", &v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ok {
		t.Error("expected missing key to report false")
	}
}

func TestSaveOverwrites(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	if err := c.Save(ctx, DocNotifications, []string{"a"}); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	if err := c.Save(ctx, DocNotifications, []string{"a", "b"}); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	var got []string
	if _, err := c.Load(ctx, DocNotifications, &got); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected overwritten document, got %v", got)
	}
}

func TestDelete(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	if err := c.Save(ctx, "k", 1); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var v int
	ok, err := c.Load(ctx, "k", &v)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ok {
		t.Error("expected key to be gone")
	}

	// deleting again is fine
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("second Delete failed: %v", err)
	}
}
