package s3blob

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ApexLeVraiJonathan/eve-money-making-sub005/internal/domain"
)

// objectPutter is the slice of Writer the archiver needs.
type objectPutter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// SnapshotArchiver implements domain.SnapshotArchiver by serializing a raw
// order snapshot to gzipped JSON and uploading it to object storage. The
// database keeps only the latest snapshot per structure; the archive keeps
// every changed one, which is what makes estimates auditable after the fact.
type SnapshotArchiver struct {
	writer objectPutter
}

// NewSnapshotArchiver creates a SnapshotArchiver backed by the given Writer.
func NewSnapshotArchiver(w *Writer) *SnapshotArchiver {
	return &SnapshotArchiver{writer: w}
}

// archiveKey builds the object key for one snapshot:
//
//	snapshots/{structureID}/{observedAt RFC3339}.json.gz
func archiveKey(snap domain.Snapshot) string {
	return fmt.Sprintf("snapshots/%d/%s.json.gz",
		snap.StructureID, snap.ObservedAt.UTC().Format(time.RFC3339))
}

// Archive uploads the snapshot. Callers treat failures as non-fatal; a pass
// never fails because cold storage was unreachable.
func (a *SnapshotArchiver) Archive(ctx context.Context, snap domain.Snapshot) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)

	enc := json.NewEncoder(gz)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("s3blob: encode snapshot %d: %w", snap.StructureID, err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("s3blob: compress snapshot %d: %w", snap.StructureID, err)
	}

	key := archiveKey(snap)
	if err := a.writer.Put(ctx, key, &buf, "application/gzip"); err != nil {
		return fmt.Errorf("s3blob: archive snapshot %d: %w", snap.StructureID, err)
	}
	return nil
}

var _ domain.SnapshotArchiver = (*SnapshotArchiver)(nil)
