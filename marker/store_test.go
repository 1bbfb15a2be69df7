package marker

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/pithecene-io/genoa/iox"
)

// fakeS3 is an in-memory S3API.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string][]byte{}} }

func (f *fakeS3) key(bucket, key *string) string { return aws.ToString(bucket) + "/" + aws.ToString(key) }

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[f.key(in.Bucket, in.Key)]; !ok {
		return nil, &s3types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.objects[f.key(in.Bucket, in.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[f.key(in.Bucket, in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, f.key(in.Bucket, in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	full := f.key(in.Bucket, in.Prefix)
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, full) {
			keys = append(keys, strings.TrimPrefix(k, aws.ToString(in.Bucket)+"/"))
		}
	}
	slices.Sort(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, s3types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for k := range f.objects {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func backends(t *testing.T) map[string]Store {
	t.Helper()

	mr := miniredis.RunT(t)
	rs, err := NewRedisStore("redis://"+mr.Addr(), "test")
	if err != nil {
		t.Fatalf("NewRedisStore() error = %v", err)
	}
	t.Cleanup(iox.CloseFunc(rs))

	return map[string]Store{
		BackendMemory: NewMemoryStore(),
		BackendFS:     NewFSStore(filepath.Join(t.TempDir(), ".genoa", "markers")),
		BackendRedis:  rs,
		BackendS3:     NewS3StoreWithAPI(newFakeS3(), "bucket", "runs/dmel"),
	}
}

func TestStore_Lifecycle(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()

			done, err := store.Done(ctx, "busco")
			if err != nil || done {
				t.Fatalf("Done() on empty store = %v, %v", done, err)
			}
			if _, err := store.Get(ctx, "busco"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Get() on empty store error = %v, want ErrNotFound", err)
			}

			now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
			for _, stage := range []string{"busco", "repeat_database", "repeat_modeler"} {
				rec := NewRecord(stage, "run-1", "EP", 1500*time.Millisecond, now)
				if err := store.Put(ctx, rec); err != nil {
					t.Fatalf("Put(%s) error = %v", stage, err)
				}
			}

			rec, err := store.Get(ctx, "busco")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if rec.RunID != "run-1" || rec.DurationMS != 1500 || rec.CompletedAt != "2026-03-01T12:00:00Z" || rec.Mode != "EP" {
				t.Errorf("Get() = %+v", rec)
			}

			if err := store.Delete(ctx, "busco"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := store.Delete(ctx, "busco"); err != nil {
				t.Fatalf("Delete() of absent marker error = %v", err)
			}
			if done, _ := store.Done(ctx, "busco"); done {
				t.Error("busco still done after Delete")
			}
			if done, _ := store.Done(ctx, "repeat_database"); !done {
				t.Error("Delete removed an unrelated marker")
			}

			if err := store.Clear(ctx); err != nil {
				t.Fatalf("Clear() error = %v", err)
			}
			for _, stage := range []string{"repeat_database", "repeat_modeler"} {
				if done, _ := store.Done(ctx, stage); done {
					t.Errorf("%s still done after Clear", stage)
				}
			}
			if err := store.Clear(ctx); err != nil {
				t.Fatalf("Clear() on empty store error = %v", err)
			}
			if store.Location() == "" {
				t.Error("Location() is empty")
			}
		})
	}
}

func TestStore_PutRequiresStage(t *testing.T) {
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Put(t.Context(), Record{RunID: "x"}); err == nil {
				t.Error("Put() without stage should fail")
			}
		})
	}
}

func TestFSStore_Layout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "markers")
	store := NewFSStore(dir)
	ctx := t.Context()

	if err := store.Put(ctx, Record{Stage: "busco", RunID: "r"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "busco.done")); err != nil {
		t.Fatalf("marker file missing: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("marker dir has %d entries, want 1", len(entries))
	}
}

func TestFSStore_ClearRemovesOrphanedTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFSStore(dir)
	orphan := filepath.Join(dir, ".busco.done.tmp-123")
	keep := filepath.Join(dir, "notes.txt")
	for _, p := range []string{orphan, keep} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	if done, _ := store.Done(t.Context(), "busco"); done {
		t.Fatal("a temp file must not count as a marker")
	}
	if err := store.Clear(t.Context()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Error("orphaned temp file survived Clear")
	}
	if _, err := os.Stat(keep); err != nil {
		t.Error("Clear removed an unrelated file")
	}
}

func TestFSStore_ClearMissingDir(t *testing.T) {
	store := NewFSStore(filepath.Join(t.TempDir(), "absent"))
	if err := store.Clear(t.Context()); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
}

func TestRedisStore_Keys(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+mr.Addr(), "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(iox.CloseFunc(store))

	if err := store.Put(t.Context(), Record{Stage: "busco"}); err != nil {
		t.Fatal(err)
	}
	if !mr.Exists("genoa:marker:busco") {
		t.Errorf("keys = %v, want genoa:marker:busco", mr.Keys())
	}

	mr.Set("other:key", "x")
	if err := store.Clear(t.Context()); err != nil {
		t.Fatal(err)
	}
	if mr.Exists("genoa:marker:busco") || !mr.Exists("other:key") {
		t.Errorf("after Clear keys = %v", mr.Keys())
	}
}

func TestRedisStore_InvalidURL(t *testing.T) {
	if _, err := NewRedisStore("", ""); err == nil {
		t.Error("empty URL should fail")
	}
	if _, err := NewRedisStore("http://nope", ""); err == nil {
		t.Error("non-redis URL should fail")
	}
}

func TestS3Store_Keys(t *testing.T) {
	api := newFakeS3()
	store := NewS3StoreWithAPI(api, "bucket", "/runs/dmel/")
	ctx := t.Context()

	if err := store.Put(ctx, Record{Stage: "busco"}); err != nil {
		t.Fatal(err)
	}
	if got := api.keys(); !slices.Equal(got, []string{"bucket/runs/dmel/markers/busco.done"}) {
		t.Errorf("objects = %v", got)
	}
	if store.Location() != "s3://bucket/runs/dmel/markers" {
		t.Errorf("Location() = %q", store.Location())
	}
}

func TestOpen(t *testing.T) {
	ctx := t.Context()
	if _, _, err := Open(ctx, Options{Backend: "tape"}); err == nil {
		t.Error("unknown backend should fail")
	}
	if _, _, err := Open(ctx, Options{Backend: BackendFS}); err == nil {
		t.Error("fs backend without dir should fail")
	}
	s, closeFn, err := Open(ctx, Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	defer iox.DiscardErr(closeFn)
	if _, ok := s.(*FSStore); !ok {
		t.Errorf("default backend = %T, want *FSStore", s)
	}
}

func TestOpen_RejectsMemory(t *testing.T) {
	if _, _, err := Open(t.Context(), Options{Backend: BackendMemory}); err == nil {
		t.Error("memory backend should not be selectable")
	}
}

func TestOpen_RedisScopedByWorkDir(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := t.Context()
	open := func(workDir string) Store {
		t.Helper()
		s, closeFn, err := Open(ctx, Options{
			Backend:  BackendRedis,
			RedisURL: "redis://" + mr.Addr(),
			Scope:    ScopeFor(workDir),
		})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		t.Cleanup(func() { iox.DiscardErr(closeFn) })
		return s
	}

	a := open("/data/dmel")
	b := open("/data/agam")
	if err := a.Put(ctx, Record{Stage: "busco", RunID: "r"}); err != nil {
		t.Fatal(err)
	}
	if done, err := b.Done(ctx, "busco"); err != nil || done {
		t.Errorf("other work dir Done() = %v, %v; want false", done, err)
	}
	if done, _ := open("/data/dmel").Done(ctx, "busco"); !done {
		t.Error("same work dir should see its marker")
	}
	if err := b.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	if done, _ := a.Done(ctx, "busco"); !done {
		t.Error("Clear() in one scope removed another scope's marker")
	}
	want := "genoa:" + ScopeFor("/data/dmel") + ":marker:busco"
	if !mr.Exists(want) {
		t.Errorf("keys = %v, want %s", mr.Keys(), want)
	}
}

func TestOpen_SharedBackendsRequireScope(t *testing.T) {
	for _, backend := range []string{BackendRedis, BackendS3} {
		opts := Options{Backend: backend, RedisURL: "redis://localhost:6379", S3: S3Config{Bucket: "b"}}
		if _, _, err := Open(t.Context(), opts); err == nil {
			t.Errorf("%s without scope should fail", backend)
		}
	}
}

func TestScopeFor(t *testing.T) {
	if ScopeFor("/a") == ScopeFor("/b") {
		t.Error("distinct work dirs share a scope")
	}
	if ScopeFor("/a") != ScopeFor("/a") {
		t.Error("scope is not stable")
	}
}

func TestDecode_Corrupt(t *testing.T) {
	if _, err := Decode([]byte{0xc1}); err == nil {
		t.Error("Decode() of garbage should fail")
	}
}
