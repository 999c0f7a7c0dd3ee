package memory

import (
	"bytes"
	"context"
	"io"
	"testing"

	"contrastcore/internal/blob/core"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()

	if _, err := store.Put(ctx, "k1", bytes.NewReader([]byte("payload")), core.PutOptions{ContentType: "application/json"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := store.Put(ctx, "k1", bytes.NewReader([]byte("other")), core.PutOptions{}); err == nil {
		t.Fatal("expected duplicate put to fail")
	}

	info, rc, err := store.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "payload" {
		t.Fatalf("payload %q", data)
	}
	if info.Size != 7 || info.ContentType != "application/json" {
		t.Fatalf("info %+v", info)
	}

	head, err := store.Head(ctx, "k1")
	if err != nil || head.Key != "k1" {
		t.Fatalf("head %+v err %v", head, err)
	}

	existed, err := store.Delete(ctx, "k1")
	if err != nil || !existed {
		t.Fatalf("delete existed=%v err=%v", existed, err)
	}
	if _, _, err := store.Get(ctx, "k1"); err == nil {
		t.Fatal("expected get after delete to fail")
	}
}

func TestMemoryStoreListOrdersByKey(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, key := range []string{"b", "a/2", "a/1"} {
		if _, err := store.Put(ctx, key, bytes.NewReader(nil), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "a/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "a/1" || infos[1].Key != "a/2" {
		t.Fatalf("list = %+v", infos)
	}
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", bytes.NewReader([]byte("abc")), core.PutOptions{Metadata: map[string]string{"a": "1"}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, rc, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = rc.Close()
	info.Metadata["a"] = "mutated"
	again, err := store.Head(ctx, "k")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if again.Metadata["a"] != "1" {
		t.Fatal("metadata aliased into store state")
	}
}
