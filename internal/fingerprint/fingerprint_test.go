package fingerprint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestHashIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	// spans several chunks with a ragged tail
	data := bytes.Repeat([]byte("metaofm"), 3*chunkSize/7+5)
	a := writeFile(t, dir, "a.bin", data)
	b := writeFile(t, dir, "b.bin", data)

	fa, err := Hash(a)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	fb, err := Hash(b)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if fa != fb {
		t.Fatalf("expected identical fingerprints, got %s and %s", fa, fb)
	}
	if len(fa) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(fa))
	}
	if again, _ := Hash(a); again != fa {
		t.Fatalf("expected repeat hash to match")
	}
}

func TestHashDiffersForDifferentContent(t *testing.T) {
	dir := t.TempDir()
	fa, _ := Hash(writeFile(t, dir, "a.bin", []byte("one")))
	fb, _ := Hash(writeFile(t, dir, "b.bin", []byte("two")))
	if fa == fb {
		t.Fatal("expected different fingerprints")
	}
}

func TestHashKnownDigest(t *testing.T) {
	fp, err := HashReader(bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("HashReader: %v", err)
	}
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if fp != empty {
		t.Fatalf("unexpected empty digest %s", fp)
	}
}

func TestHashMissingFile(t *testing.T) {
	_, err := Hash(filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestFileRegistryClaimAndPersist(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "processed_files.json")

	reg, err := OpenFileRegistry(path)
	if err != nil {
		t.Fatalf("OpenFileRegistry: %v", err)
	}
	ok, err := reg.Claim(ctx, "abc")
	if err != nil || !ok {
		t.Fatalf("expected first claim to win, got ok=%v err=%v", ok, err)
	}
	ok, err = reg.Claim(ctx, "abc")
	if err != nil || ok {
		t.Fatalf("expected second claim to lose, got ok=%v err=%v", ok, err)
	}
	if err := reg.Add(ctx, "def"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read registry: %v", err)
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("registry is not a flat JSON list: %v", err)
	}
	if len(list) != 2 || list[0] != "abc" || list[1] != "def" {
		t.Fatalf("unexpected persisted list: %v", list)
	}

	reopened, err := OpenFileRegistry(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if found, _ := reopened.Contains(ctx, "abc"); !found {
		t.Fatal("expected reloaded registry to contain abc")
	}
	if reopened.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", reopened.Len())
	}
}

func TestFileRegistrySeesOtherProcessWrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "processed_files.json")
	a, err := OpenFileRegistry(path)
	if err != nil {
		t.Fatalf("open a: %v", err)
	}
	b, err := OpenFileRegistry(path)
	if err != nil {
		t.Fatalf("open b: %v", err)
	}
	if ok, _ := a.Claim(ctx, "shared"); !ok {
		t.Fatal("expected a to claim")
	}
	if ok, _ := b.Claim(ctx, "shared"); ok {
		t.Fatal("expected b to observe a's claim")
	}
}

func TestFileRegistryConcurrentClaims(t *testing.T) {
	reg, err := OpenFileRegistry(filepath.Join(t.TempDir(), "processed_files.json"))
	if err != nil {
		t.Fatalf("OpenFileRegistry: %v", err)
	}
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := reg.Claim(context.Background(), "same"); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestFileRegistryRejectsCorruptFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "processed_files.json", []byte("{not json"))
	if _, err := OpenFileRegistry(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestFileRegistryRejectsEmptyFingerprint(t *testing.T) {
	reg, err := OpenFileRegistry(filepath.Join(t.TempDir(), "r.json"))
	if err != nil {
		t.Fatalf("OpenFileRegistry: %v", err)
	}
	if _, err := reg.Claim(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty fingerprint")
	}
}

func TestRedisRegistryClaim(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx := context.Background()
	reg := NewRedisRegistry(rdb, "")

	if found, err := reg.Contains(ctx, "abc"); err != nil || found {
		t.Fatalf("expected empty set, got found=%v err=%v", found, err)
	}
	if ok, err := reg.Claim(ctx, "abc"); err != nil || !ok {
		t.Fatalf("expected first claim to win, got ok=%v err=%v", ok, err)
	}
	if ok, err := reg.Claim(ctx, "abc"); err != nil || ok {
		t.Fatalf("expected second claim to lose, got ok=%v err=%v", ok, err)
	}
	if found, _ := reg.Contains(ctx, "abc"); !found {
		t.Fatal("expected abc to be present")
	}
	members, err := mr.Members(DefaultRedisKey)
	if err != nil || len(members) != 1 {
		t.Fatalf("expected one member under default key, got %v (%v)", members, err)
	}
}
