package filestore

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lexvault/internal/blobstore"
	"lexvault/internal/models"
)

func TestUploadDeduplicatesContent(t *testing.T) {
	forEachMode(t, func(t *testing.T, cfg Config) {
		s := openTestStore(t, cfg)

		a := mustUpload(t, s, textUpload("same bytes", "brief.txt", "alice"))
		b := mustUpload(t, s, textUpload("same bytes", "copy.md", "bob"))

		if a.Hash != b.Hash {
			t.Fatalf("expected same hash, got %s and %s", a.Hash, b.Hash)
		}
		if a.Path != b.Path {
			t.Fatalf("expected same path, got %s and %s", a.Path, b.Path)
		}
		if a.FileID == b.FileID {
			t.Fatalf("expected distinct file ids, got %s twice", a.FileID)
		}
		if a.Deduplicated || !b.Deduplicated {
			t.Fatalf("unexpected dedup flags: first=%v second=%v", a.Deduplicated, b.Deduplicated)
		}
		if a.Path != blobPath(cfg, a.Hash) {
			t.Fatalf("unexpected blob path %s", a.Path)
		}
		if !fileExists(t, a.Path) {
			t.Fatalf("expected blob at %s", a.Path)
		}
		if countBlobs(t, s) != 1 {
			t.Fatalf("expected one blob on disk")
		}
		if a.Metadata.Size != int64(len("same bytes")) || a.Metadata.MimeType != "text/plain" {
			t.Fatalf("unexpected metadata %+v", a.Metadata)
		}
	})
}

func TestUploadNormalizesFields(t *testing.T) {
	s := openTestStore(t, Config{DataDir: t.TempDir()})

	res := mustUpload(t, s, UploadInput{
		Content:      []byte("memo"),
		OriginalName: "  Memo.TXT ",
		MimeType:     "Text/Plain; charset=utf-8",
		UploadedBy:   "alice",
		CaseID:       " c1 ",
		Tags:         []string{"Urgent", "urgent", " court "},
		Description:  " draft ",
	})

	meta := res.Metadata
	if meta.OriginalName != "Memo.TXT" || meta.MimeType != "text/plain" || meta.CaseID != "c1" || meta.Description != "draft" {
		t.Fatalf("unexpected metadata %+v", meta)
	}
	if strings.Join(meta.Tags, ",") != "court,urgent" {
		t.Fatalf("unexpected tags %v", meta.Tags)
	}
}

func TestContentRoundTrip(t *testing.T) {
	forEachMode(t, func(t *testing.T, cfg Config) {
		s := openTestStore(t, cfg)
		ctx := context.Background()
		payload := []byte{0x25, 0x50, 0x44, 0x46, 0x00, 0xff, 0x10}

		res := mustUpload(t, s, UploadInput{Content: payload, OriginalName: "scan.pdf", MimeType: "application/pdf", UploadedBy: "clerk"})

		got, err := s.GetFileContent(ctx, res.FileID)
		if err != nil {
			t.Fatalf("get content: %v", err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("content mismatch: %x", got)
		}

		byHash, err := s.GetFileContentByHash(ctx, strings.ToUpper(res.Hash))
		if err != nil {
			t.Fatalf("get content by hash: %v", err)
		}
		if !bytes.Equal(byHash, payload) {
			t.Fatalf("content by hash mismatch: %x", byHash)
		}
	})
}

func TestHashIsDeterministic(t *testing.T) {
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := blobstore.Digest([]byte("abc")); got != want {
		t.Fatalf("unexpected digest %s", got)
	}
	if blobstore.Digest([]byte("abc")) != blobstore.Digest([]byte("abc")) {
		t.Fatal("digest is not stable")
	}

	s := openTestStore(t, Config{DataDir: t.TempDir()})
	res := mustUpload(t, s, textUpload("abc", "abc.txt", "u"))
	if res.Hash != want {
		t.Fatalf("upload hash %s, want %s", res.Hash, want)
	}
}

func TestDeleteIsReferenceCounted(t *testing.T) {
	forEachMode(t, func(t *testing.T, cfg Config) {
		s := openTestStore(t, cfg)
		ctx := context.Background()

		a := mustUpload(t, s, textUpload("shared", "a.txt", "alice"))
		b := mustUpload(t, s, textUpload("shared", "b.txt", "bob"))

		deleted, err := s.DeleteFile(ctx, a.FileID)
		if err != nil || !deleted {
			t.Fatalf("delete first: deleted=%v err=%v", deleted, err)
		}
		if !fileExists(t, a.Path) {
			t.Fatal("blob removed while still referenced")
		}
		other, err := s.GetFileByID(ctx, b.FileID)
		if err != nil || other == nil {
			t.Fatalf("expected remaining record, got %v err=%v", other, err)
		}
		content, err := s.GetFileContent(ctx, b.FileID)
		if err != nil || string(content) != "shared" {
			t.Fatalf("expected remaining content, got %q err=%v", content, err)
		}

		deleted, err = s.DeleteFile(ctx, b.FileID)
		if err != nil || !deleted {
			t.Fatalf("delete second: deleted=%v err=%v", deleted, err)
		}
		if fileExists(t, b.Path) {
			t.Fatal("expected blob removed after last reference")
		}
		if fileExists(t, filepath.Dir(b.Path)) {
			t.Fatal("expected empty shard directory pruned")
		}

		deleted, err = s.DeleteFile(ctx, b.FileID)
		if err != nil || deleted {
			t.Fatalf("delete missing: deleted=%v err=%v", deleted, err)
		}
	})
}

func TestCleanupOrphanedFilesIsIdempotent(t *testing.T) {
	forEachMode(t, func(t *testing.T, cfg Config) {
		s := openTestStore(t, cfg)
		ctx := context.Background()

		kept := mustUpload(t, s, textUpload("kept", "kept.txt", "u"))
		for _, orphan := range []string{"orphan one", "orphan two"} {
			if _, err := s.blobs.Put(ctx, strings.NewReader(orphan)); err != nil {
				t.Fatalf("seed orphan: %v", err)
			}
		}
		stray := filepath.Join(cfg.DataDir, "files", "ab", "cd", "notes.bak")
		if err := os.MkdirAll(filepath.Dir(stray), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(stray, []byte("x"), 0o644); err != nil {
			t.Fatalf("write stray: %v", err)
		}
		tmp := filepath.Join(cfg.DataDir, "files", ".tmp", "put-123")
		if err := os.WriteFile(tmp, []byte("partial"), 0o644); err != nil {
			t.Fatalf("write temp: %v", err)
		}

		removed, err := s.CleanupOrphanedFiles(ctx)
		if err != nil {
			t.Fatalf("first cleanup: %v", err)
		}
		if removed != 2 {
			t.Fatalf("expected 2 removed, got %d", removed)
		}

		removed, err = s.CleanupOrphanedFiles(ctx)
		if err != nil {
			t.Fatalf("second cleanup: %v", err)
		}
		if removed != 0 {
			t.Fatalf("expected 0 removed on second run, got %d", removed)
		}

		if !fileExists(t, kept.Path) {
			t.Fatal("referenced blob was removed")
		}
		if !fileExists(t, stray) || !fileExists(t, tmp) {
			t.Fatal("non-blob files must be left alone")
		}
	})
}

func TestSweepOrphansDryRun(t *testing.T) {
	s := openTestStore(t, Config{DataDir: t.TempDir()})
	ctx := context.Background()

	mustUpload(t, s, textUpload("kept", "kept.txt", "u"))
	orphan, err := s.blobs.Put(ctx, strings.NewReader("12345"))
	if err != nil {
		t.Fatalf("seed orphan: %v", err)
	}

	res, err := s.SweepOrphans(ctx, false)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if !res.DryRun || res.ScannedCount != 2 || res.CandidateCount != 1 || res.DeletedCount != 0 || res.ReclaimedBytes != 5 {
		t.Fatalf("unexpected dry run result %+v", res)
	}
	exists, err := s.blobs.Exists(ctx, orphan.BlobKey)
	if err != nil || !exists {
		t.Fatalf("dry run removed orphan: exists=%v err=%v", exists, err)
	}

	res, err = s.SweepOrphans(ctx, true)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.DryRun || res.DeletedCount != 1 || res.ReclaimedBytes != 5 {
		t.Fatalf("unexpected apply result %+v", res)
	}
}

func TestUploadValidationBoundary(t *testing.T) {
	cfg := Config{DataDir: t.TempDir(), MaxFileSize: 16}
	s := openTestStore(t, cfg)
	ctx := context.Background()

	if _, err := s.Upload(ctx, textUpload(strings.Repeat("x", 16), "max.txt", "u")); err != nil {
		t.Fatalf("upload at limit: %v", err)
	}

	tests := []struct {
		name       string
		input      UploadInput
		constraint string
	}{
		{name: "one byte over", input: textUpload(strings.Repeat("y", 17), "big.txt", "u"), constraint: ConstraintSize},
		{name: "unlisted mime", input: UploadInput{Content: []byte("MZ"), OriginalName: "tool.txt", MimeType: "application/x-msdownload"}, constraint: ConstraintMimeType},
		{name: "octet stream", input: UploadInput{Content: []byte("z"), OriginalName: "blob.pdf", MimeType: "application/octet-stream"}, constraint: ConstraintMimeType},
		{name: "unlisted extension", input: textUpload("run", "run.exe", "u"), constraint: ConstraintExtension},
		{name: "missing extension", input: textUpload("run", "README", "u"), constraint: ConstraintExtension},
		{name: "blank name", input: textUpload("n", "  ", "u"), constraint: ConstraintName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Upload(ctx, tt.input)
			verr, ok := IsValidation(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if verr.Constraint != tt.constraint {
				t.Fatalf("expected constraint %s, got %s (%v)", tt.constraint, verr.Constraint, err)
			}
		})
	}

	if n := countBlobs(t, s); n != 1 {
		t.Fatalf("validation failures wrote blobs: %d on disk", n)
	}
	stats, err := s.Statistics(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalFiles != 1 {
		t.Fatalf("validation failures wrote metadata: %d records", stats.TotalFiles)
	}
}

func TestDuplicateUploadScenario(t *testing.T) {
	forEachMode(t, func(t *testing.T, cfg Config) {
		s := openTestStore(t, cfg)
		ctx := context.Background()

		first := mustUpload(t, s, textUpload("0123456789", "a.txt", "alice"))
		second := mustUpload(t, s, textUpload("0123456789", "a.txt", "bob"))

		stats, err := s.Statistics(ctx)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats.TotalFiles != 2 || stats.UniqueFiles != 1 || stats.DuplicateFiles != 1 {
			t.Fatalf("unexpected stats %+v", stats)
		}
		if stats.TotalSize != 20 || stats.StoredBytes != 10 {
			t.Fatalf("unexpected sizes %+v", stats)
		}
		if countBlobs(t, s) != 1 {
			t.Fatal("expected exactly one blob")
		}

		for _, id := range []string{first.FileID, second.FileID} {
			if ok, err := s.DeleteFile(ctx, id); err != nil || !ok {
				t.Fatalf("delete %s: ok=%v err=%v", id, ok, err)
			}
		}
		if fileExists(t, first.Path) {
			t.Fatal("expected blob removed")
		}
		stats, err = s.Statistics(ctx)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if stats.TotalFiles != 0 || stats.UniqueFiles != 0 {
			t.Fatalf("expected empty store, got %+v", stats)
		}
	})
}

func TestQueryLatestForCaseScenario(t *testing.T) {
	forEachMode(t, func(t *testing.T, cfg Config) {
		s := openTestStore(t, cfg, WithClock(newStepClock().now))
		ctx := context.Background()

		var last UploadResult
		for _, content := range []string{"one", "two", "three"} {
			in := textUpload(content, "doc.txt", "alice")
			in.CaseID = "c1"
			last = mustUpload(t, s, in)
		}
		other := textUpload("four", "other.txt", "alice")
		other.CaseID = "c2"
		mustUpload(t, s, other)

		files, err := s.QueryFiles(ctx, models.FileFilter{CaseID: "c1", Limit: 1})
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(files) != 1 || files[0].ID != last.FileID {
			t.Fatalf("expected latest c1 record %s, got %v", last.FileID, ids(files))
		}
	})
}

func TestQueryFilesFilters(t *testing.T) {
	forEachMode(t, func(t *testing.T, cfg Config) {
		clock := newStepClock()
		s := openTestStore(t, cfg, WithClock(clock.now))
		ctx := context.Background()

		pdf := mustUpload(t, s, UploadInput{Content: []byte("p"), OriginalName: "p.pdf", MimeType: "application/pdf", UploadedBy: "alice", CaseID: "c1", Tags: []string{"court"}})
		txt := mustUpload(t, s, UploadInput{Content: []byte("t"), OriginalName: "t.txt", MimeType: "text/plain", UploadedBy: "bob", OrderID: "o1", Tags: []string{"draft"}})
		img := mustUpload(t, s, UploadInput{Content: []byte("i"), OriginalName: "i.png", MimeType: "image/png", UploadedBy: "alice", CaseID: "c1"})

		from := txt.Metadata.UploadedAt
		to := img.Metadata.UploadedAt

		tests := []struct {
			name   string
			filter models.FileFilter
			want   []string
		}{
			{name: "all newest first", filter: models.FileFilter{}, want: []string{img.FileID, txt.FileID, pdf.FileID}},
			{name: "by case", filter: models.FileFilter{CaseID: "c1"}, want: []string{img.FileID, pdf.FileID}},
			{name: "by order", filter: models.FileFilter{OrderID: "o1"}, want: []string{txt.FileID}},
			{name: "by uploader", filter: models.FileFilter{UploadedBy: "bob"}, want: []string{txt.FileID}},
			{name: "by mime", filter: models.FileFilter{MimeType: "Application/PDF"}, want: []string{pdf.FileID}},
			{name: "any tag", filter: models.FileFilter{Tags: []string{"COURT", "draft"}}, want: []string{txt.FileID, pdf.FileID}},
			{name: "inclusive range", filter: models.FileFilter{DateFrom: &from, DateTo: &to}, want: []string{img.FileID, txt.FileID}},
			{name: "offset", filter: models.FileFilter{Offset: 1, Limit: 1}, want: []string{txt.FileID}},
			{name: "offset past end", filter: models.FileFilter{Offset: 10}, want: []string{}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				files, err := s.QueryFiles(ctx, tt.filter)
				if err != nil {
					t.Fatalf("query: %v", err)
				}
				if strings.Join(ids(files), ",") != strings.Join(tt.want, ",") {
					t.Fatalf("expected %v, got %v", tt.want, ids(files))
				}
			})
		}
	})
}

func TestQueryFilesDefaultLimit(t *testing.T) {
	s := openTestStore(t, Config{DataDir: t.TempDir(), DefaultQueryLimit: 2})
	for _, c := range []string{"a", "b", "c"} {
		mustUpload(t, s, textUpload(c, c+".txt", "u"))
	}
	files, err := s.QueryFiles(context.Background(), models.FileFilter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected default limit of 2, got %d", len(files))
	}
}

func TestGetFileByHashReturnsEarliest(t *testing.T) {
	forEachMode(t, func(t *testing.T, cfg Config) {
		s := openTestStore(t, cfg, WithClock(newStepClock().now))
		ctx := context.Background()

		first := mustUpload(t, s, textUpload("dup", "one.txt", "alice"))
		mustUpload(t, s, textUpload("dup", "two.txt", "bob"))

		got, err := s.GetFileByHash(ctx, first.Hash)
		if err != nil {
			t.Fatalf("get by hash: %v", err)
		}
		if got == nil || got.ID != first.FileID {
			t.Fatalf("expected %s, got %+v", first.FileID, got)
		}

		missing, err := s.GetFileByHash(ctx, blobstore.Digest([]byte("never uploaded")))
		if err != nil || missing != nil {
			t.Fatalf("expected nil for unknown hash, got %+v err=%v", missing, err)
		}
	})
}

func TestReadPathsTreatMissingAsNotFound(t *testing.T) {
	forEachMode(t, func(t *testing.T, cfg Config) {
		s := openTestStore(t, cfg)
		ctx := context.Background()

		if meta, err := s.GetFileByID(ctx, "no-such-id"); err != nil || meta != nil {
			t.Fatalf("expected nil record, got %+v err=%v", meta, err)
		}
		if data, err := s.GetFileContent(ctx, "no-such-id"); err != nil || data != nil {
			t.Fatalf("expected nil content, got %q err=%v", data, err)
		}
		for _, hash := range []string{"", "xyz", strings.Repeat("g", 64), "../../etc/passwd"} {
			if data, err := s.GetFileContentByHash(ctx, hash); err != nil || data != nil {
				t.Fatalf("hash %q: expected nil content, got %q err=%v", hash, data, err)
			}
			if meta, err := s.GetFileByHash(ctx, hash); err != nil || meta != nil {
				t.Fatalf("hash %q: expected nil record, got %+v err=%v", hash, meta, err)
			}
		}

		res := mustUpload(t, s, textUpload("gone", "gone.txt", "u"))
		if err := os.Remove(res.Path); err != nil {
			t.Fatalf("remove blob: %v", err)
		}
		if data, err := s.GetFileContent(ctx, res.FileID); err != nil || data != nil {
			t.Fatalf("expected nil content for missing blob, got %q err=%v", data, err)
		}
	})
}

func TestUpdateFileMetadata(t *testing.T) {
	forEachMode(t, func(t *testing.T, cfg Config) {
		s := openTestStore(t, cfg)
		ctx := context.Background()

		res := mustUpload(t, s, UploadInput{Content: []byte("brief"), OriginalName: "brief.txt", MimeType: "text/plain", UploadedBy: "alice", CaseID: "c1", Description: "v1"})

		name := "final-brief.pdf"
		desc := "signed"
		order := "o9"
		tags := []string{"Final", "signed"}
		ok, err := s.UpdateFileMetadata(ctx, res.FileID, models.FileUpdate{OriginalName: &name, Description: &desc, OrderID: &order, Tags: &tags})
		if err != nil || !ok {
			t.Fatalf("update: ok=%v err=%v", ok, err)
		}

		got, err := s.GetFileByID(ctx, res.FileID)
		if err != nil || got == nil {
			t.Fatalf("get: %+v err=%v", got, err)
		}
		if got.OriginalName != name || got.Description != desc || got.OrderID != order || got.CaseID != "c1" {
			t.Fatalf("unexpected record %+v", got)
		}
		if strings.Join(got.Tags, ",") != "final,signed" {
			t.Fatalf("unexpected tags %v", got.Tags)
		}
		if got.Hash != res.Hash || got.Size != res.Size || got.UploadedBy != "alice" || !got.UploadedAt.Equal(res.Metadata.UploadedAt) {
			t.Fatalf("immutable fields changed: %+v", got)
		}

		ok, err = s.UpdateFileMetadata(ctx, "missing", models.FileUpdate{Description: &desc})
		if err != nil || ok {
			t.Fatalf("update missing: ok=%v err=%v", ok, err)
		}

		bad := "payload.exe"
		_, err = s.UpdateFileMetadata(ctx, res.FileID, models.FileUpdate{OriginalName: &bad})
		if verr, isValidation := IsValidation(err); !isValidation || verr.Constraint != ConstraintExtension {
			t.Fatalf("expected extension validation error, got %v", err)
		}
	})
}

func TestVerifyReportsCorruptAndMissingBlobs(t *testing.T) {
	s := openTestStore(t, Config{DataDir: t.TempDir()})
	ctx := context.Background()

	healthy := mustUpload(t, s, textUpload("healthy", "h.txt", "u"))
	corrupt := mustUpload(t, s, textUpload("corrupt", "c.txt", "u"))
	missing := mustUpload(t, s, textUpload("missing", "m.txt", "u"))

	if err := os.WriteFile(corrupt.Path, []byte("tampered"), 0o644); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	if err := os.Remove(missing.Path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	res, err := s.Verify(ctx)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.OK() {
		t.Fatal("expected problems")
	}
	if res.BlobsChecked != 2 || res.RecordsChecked != 3 {
		t.Fatalf("unexpected counts %+v", res)
	}
	if len(res.Corrupt) != 1 || res.Corrupt[0] != corrupt.Hash {
		t.Fatalf("unexpected corrupt list %v", res.Corrupt)
	}
	if len(res.Missing) != 1 || res.Missing[0].FileID != missing.FileID {
		t.Fatalf("unexpected missing list %v", res.Missing)
	}
	if !fileExists(t, healthy.Path) {
		t.Fatal("verify must not modify the store")
	}
}

func TestIndexRebuiltOnReopen(t *testing.T) {
	for _, mode := range []string{"memory", "redis"} {
		t.Run(mode, func(t *testing.T) {
			cfg := Config{DataDir: t.TempDir(), IndexBackend: mode}
			if mode == "redis" {
				cfg = redisConfig(t, cfg)
			}
			ctx := context.Background()

			s, err := Open(ctx, cfg)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			a := mustUpload(t, s, textUpload("shared", "a.txt", "u"))
			mustUpload(t, s, textUpload("shared", "b.txt", "u"))
			if err := s.Close(); err != nil {
				t.Fatalf("close: %v", err)
			}

			reopened := openTestStore(t, cfg)
			if ok, err := reopened.DeleteFile(ctx, a.FileID); err != nil || !ok {
				t.Fatalf("delete: ok=%v err=%v", ok, err)
			}
			if !fileExists(t, a.Path) {
				t.Fatal("rebuilt index lost a reference")
			}
		})
	}
}

func TestOpenRejectsUnknownBackends(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, Config{DataDir: t.TempDir(), MetadataBackend: "postgres"}); err == nil {
		t.Fatal("expected metadata backend error")
	}
	if _, err := Open(ctx, Config{DataDir: t.TempDir(), IndexBackend: "etcd"}); err == nil {
		t.Fatal("expected index backend error")
	}
	if _, err := Open(ctx, Config{DataDir: t.TempDir(), IndexBackend: "redis"}); err == nil {
		t.Fatal("expected missing redis url error")
	}
}

func TestCorruptRecordBlocksSweep(t *testing.T) {
	cfg := Config{DataDir: t.TempDir()}
	s := openTestStore(t, cfg)
	ctx := context.Background()

	res := mustUpload(t, s, textUpload("keep me", "k.txt", "u"))
	if err := os.WriteFile(filepath.Join(cfg.DataDir, "metadata", "broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatalf("write corrupt record: %v", err)
	}

	if _, err := s.CleanupOrphanedFiles(ctx); err == nil {
		t.Fatal("expected sweep to fail on unreadable metadata")
	}
	if !fileExists(t, res.Path) {
		t.Fatal("blob removed despite unreadable metadata")
	}
	if _, err := s.Statistics(ctx); err == nil {
		t.Fatal("expected statistics to fail on unreadable metadata")
	}
}

func TestCanceledContext(t *testing.T) {
	s := openTestStore(t, Config{DataDir: t.TempDir()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.Upload(ctx, textUpload("x", "x.txt", "u")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := s.QueryFiles(ctx, models.FileFilter{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStoresSharingRedisKeepTheirBlobs(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
	}{
		{name: "derived prefix", prefix: ""},
		{name: "same prefix", prefix: "shared:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cfgA, mr := redisServerConfig(t, Config{DataDir: t.TempDir()})
			cfgA.RedisPrefix = tt.prefix
			cfgB := cfgA
			cfgB.DataDir = t.TempDir()

			a := openTestStore(t, cfgA)
			first := mustUpload(t, a, textUpload("exhibit", "a.txt", "u"))
			second := mustUpload(t, a, textUpload("exhibit", "b.txt", "u"))

			b := openTestStore(t, cfgB)
			mustUpload(t, b, textUpload("other", "c.txt", "u"))
			if tt.prefix == "" && len(mr.Keys()) != 2 {
				t.Fatalf("expected one index key per store, got %v", mr.Keys())
			}

			removed, err := a.CleanupOrphanedFiles(ctx)
			if err != nil {
				t.Fatalf("cleanup: %v", err)
			}
			if removed != 0 {
				t.Fatalf("cleanup removed %d referenced blobs", removed)
			}

			if ok, err := a.DeleteFile(ctx, first.FileID); err != nil || !ok {
				t.Fatalf("delete: ok=%v err=%v", ok, err)
			}
			content, err := a.GetFileContent(ctx, second.FileID)
			if err != nil {
				t.Fatalf("get content: %v", err)
			}
			if string(content) != "exhibit" {
				t.Fatalf("shared blob lost, got %q", content)
			}
		})
	}
}

func TestIndexFailures(t *testing.T) {
	ctx := context.Background()
	cfg, mr := redisServerConfig(t, Config{DataDir: t.TempDir()})
	s := openTestStore(t, cfg)

	kept := mustUpload(t, s, textUpload("kept", "kept.txt", "u"))
	mr.Close()

	failed := textUpload("never stored", "lost.txt", "u")
	if _, err := s.Upload(ctx, failed); err == nil {
		t.Fatal("expected upload to fail while the index is unreachable")
	}
	files, err := s.QueryFiles(ctx, models.FileFilter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if strings.Join(ids(files), ",") != kept.FileID {
		t.Fatalf("failed upload left records behind: %v", ids(files))
	}
	if got := countBlobs(t, s); got != 1 {
		t.Fatalf("failed upload left %d blobs, want 1", got)
	}

	ok, err := s.DeleteFile(ctx, kept.FileID)
	if err != nil || !ok {
		t.Fatalf("delete with unreachable index: ok=%v err=%v", ok, err)
	}
	if fileExists(t, kept.Path) {
		t.Fatal("unreferenced blob kept after delete")
	}

	res, err := s.Upload(ctx, textUpload("after", "after.txt", "u"))
	if err != nil {
		t.Fatalf("upload with stale index: %v", err)
	}
	found, err := s.GetFileByHash(ctx, res.Hash)
	if err != nil || found == nil || found.ID != res.FileID {
		t.Fatalf("lookup by hash: %+v err=%v", found, err)
	}
}

func TestUpdateMissingRecordWithBadName(t *testing.T) {
	s := openTestStore(t, Config{DataDir: t.TempDir()})
	bad := "payload.exe"
	ok, err := s.UpdateFileMetadata(context.Background(), "missing", models.FileUpdate{OriginalName: &bad})
	if err != nil || ok {
		t.Fatalf("expected not found, got ok=%v err=%v", ok, err)
	}
}
