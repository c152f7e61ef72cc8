package service

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"
)

func TestArchiveService_BuildBatchArchive(t *testing.T) {
	ctx := context.Background()
	fx := newHistoryFixture(t, 3)
	svc := NewArchiveService(fx.products, fx.masters)

	archive, err := svc.BuildBatchArchive(ctx, fx.batch.BatchID)
	if err != nil {
		t.Fatalf("BuildBatchArchive failed: %v", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("archive is not a valid zip: %v", err)
	}
	if got := len(reader.File); got != 4 {
		t.Fatalf("archive entries = %d, want 3 units + master", got)
	}

	var hasMaster bool
	for _, f := range reader.File {
		if f.Name == "master.png" {
			hasMaster = true
		}
		if f.UncompressedSize64 == 0 {
			t.Errorf("entry %s is empty", f.Name)
		}
	}
	if !hasMaster {
		t.Error("archive has no master.png")
	}
}

func TestArchiveService_BuildBatchArchive_UnknownBatch(t *testing.T) {
	fx := newHistoryFixture(t, 1)
	svc := NewArchiveService(fx.products, fx.masters)

	_, err := svc.BuildBatchArchive(context.Background(), "5c3e9d10-0000-0000-0000-000000000000")
	assertDomainCode(t, err, "NOT_FOUND")
}
