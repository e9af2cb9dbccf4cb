package pipeline

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fuzzrnet/forage-go/internal/appconfig"
	"github.com/fuzzrnet/forage-go/internal/blobstore"
	"github.com/fuzzrnet/forage-go/internal/codec"
	"github.com/fuzzrnet/forage-go/internal/forage"
	"github.com/fuzzrnet/forage-go/internal/index"
	"github.com/fuzzrnet/forage-go/internal/paths"
)

func newTestApp(t *testing.T) (*forage.App, string) {
	t.Helper()
	dataDir := t.TempDir()
	storeDir := t.TempDir()
	cfgDir := t.TempDir()

	ix, err := index.Open(cfgDir, nil)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	t.Cleanup(func() { ix.Close() })

	blobs, err := blobstore.Open(storeDir)
	if err != nil {
		t.Fatalf("open blobstore: %v", err)
	}

	secret, err := ix.InitUserSecret()
	if err != nil {
		t.Fatalf("init secret: %v", err)
	}

	app := &forage.App{
		Paths: paths.Resolved{
			ConfigDir: cfgDir,
			DataDir:   dataDir,
			StoreDir:  storeDir,
		},
		Config: appconfig.Config{},
		Index:  ix,
		Blobs:  blobs,
		Secret: secret,
	}
	return app, dataDir
}

func TestUploadThenDownloadRoundTrip(t *testing.T) {
	app, dataDir := newTestApp(t)

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(os.MkdirAll(filepath.Join(dataDir, "docs"), 0755))
	must(os.WriteFile(filepath.Join(dataDir, "docs", "a.txt"), []byte("hello world"), 0644))
	must(os.WriteFile(filepath.Join(dataDir, "docs", "b.txt"), []byte(""), 0644))

	stats, err := Upload(app, "")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if stats.FilesUploaded != 2 {
		t.Fatalf("uploaded %d files, want 2", stats.FilesUploaded)
	}
	if stats.BytesRead != int64(len("hello world")) {
		t.Fatalf("bytes read = %d, want %d", stats.BytesRead, len("hello world"))
	}

	// Re-uploading the same tree should skip everything via the SeenSet.
	stats2, err := Upload(app, "")
	if err != nil {
		t.Fatalf("re-upload: %v", err)
	}
	if stats2.FilesUploaded != 0 || stats2.FilesSkipped != 2 {
		t.Fatalf("re-upload stats = %+v, want all skipped", stats2)
	}

	// Delete local copies and download should reconstruct them.
	must(os.RemoveAll(filepath.Join(dataDir, "docs")))

	dstats, err := Download(app, "")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if dstats.FilesFetched != 2 {
		t.Fatalf("fetched %d files, want 2", dstats.FilesFetched)
	}

	got, err := os.ReadFile(filepath.Join(dataDir, "docs", "a.txt"))
	if err != nil {
		t.Fatalf("read restored file: %v", err)
	}
	if string(got) != "hello world" {
		t.Fatalf("restored content = %q, want %q", got, "hello world")
	}
}

func TestUploadSliceAlignedFile(t *testing.T) {
	app, dataDir := newTestApp(t)
	content := bytes.Repeat([]byte{0x7A}, codec.Slice*3) // exact multiple of Slice

	if err := os.WriteFile(filepath.Join(dataDir, "aligned.bin"), content, 0644); err != nil {
		t.Fatal(err)
	}

	stats, err := Upload(app, "")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if stats.FilesUploaded != 1 {
		t.Fatalf("uploaded %d files, want 1", stats.FilesUploaded)
	}

	if err := os.Remove(filepath.Join(dataDir, "aligned.bin")); err != nil {
		t.Fatal(err)
	}

	dstats, err := Download(app, "")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if dstats.FilesFetched != 1 || len(dstats.Failures) != 0 {
		t.Fatalf("download stats = %+v, want 1 fetched and no failures", dstats)
	}

	got, err := os.ReadFile(filepath.Join(dataDir, "aligned.bin"))
	if err != nil {
		t.Fatalf("read restored file: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatal("restored slice-aligned file does not match original content")
	}
}

func TestDownloadContinuesPastOneFailure(t *testing.T) {
	app, dataDir := newTestApp(t)

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(os.WriteFile(filepath.Join(dataDir, "good.txt"), []byte("still here"), 0644))
	must(os.WriteFile(filepath.Join(dataDir, "bad.txt"), bytes.Repeat([]byte{0x11}, 4096), 0644))

	if _, err := Upload(app, ""); err != nil {
		t.Fatalf("upload: %v", err)
	}

	// Corrupt the blob backing bad.txt so its extract fails, then remove both
	// local copies so download must reconstruct from the store.
	records, err := app.Index.GetFiles(nil, nil)
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	var badFP string
	for _, r := range records {
		if r.Path == "bad.txt" {
			badFP = r.FP
		}
	}
	if badFP == "" {
		t.Fatal("bad.txt not found in index")
	}
	blobPath := app.Blobs.PathOf(badFP)
	f, err := os.OpenFile(blobPath, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("open blob for corruption: %v", err)
	}
	if _, err := f.WriteAt([]byte{0xFF, 0xFF, 0xFF, 0xFF}, 0); err != nil {
		t.Fatalf("corrupt blob: %v", err)
	}
	f.Close()

	must(os.Remove(filepath.Join(dataDir, "good.txt")))
	must(os.Remove(filepath.Join(dataDir, "bad.txt")))

	dstats, err := Download(app, "")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if dstats.FilesFetched != 1 {
		t.Fatalf("fetched %d files, want 1 (the uncorrupted one)", dstats.FilesFetched)
	}
	if len(dstats.Failures) != 1 || dstats.Failures[0].Path != "bad.txt" {
		t.Fatalf("failures = %+v, want exactly one failure for bad.txt", dstats.Failures)
	}

	got, err := os.ReadFile(filepath.Join(dataDir, "good.txt"))
	if err != nil {
		t.Fatalf("good.txt should have been reconstructed despite bad.txt failing: %v", err)
	}
	if string(got) != "still here" {
		t.Fatalf("restored content = %q, want %q", got, "still here")
	}
}

func TestVerifyNothingWhenStoreEmpty(t *testing.T) {
	app, _ := newTestApp(t)

	report, err := Verify(app)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if report.Checked {
		t.Fatalf("expected nothing to check against an empty store")
	}
}

func TestVerifyOKAfterUpload(t *testing.T) {
	app, dataDir := newTestApp(t)
	if err := os.WriteFile(filepath.Join(dataDir, "f.bin"), make([]byte, 5000), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Upload(app, ""); err != nil {
		t.Fatalf("upload: %v", err)
	}

	report, err := Verify(app)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !report.Checked {
		t.Fatalf("expected a slice to be checked")
	}
	if !report.OK {
		t.Fatalf("expected verify to pass, got err=%v", report.Err)
	}
}
