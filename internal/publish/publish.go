// Package publish stores ledger snapshots where claimants and the next run can
// fetch them.
package publish

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Fetch when the named file does not exist.
var ErrNotFound = errors.New("snapshot not found")

// File is one named document to publish.
type File struct {
	Name    string
	Content []byte
}

// Publisher fetches and publishes named files.
type Publisher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
	Publish(ctx context.Context, message string, files []File) error
}

// SnapshotName is the path of the ledger snapshot for week on network.
func SnapshotName(network string, week uint64) string {
	return fmt.Sprintf("%s/rewards_%d.json", network, week)
}

// ProofsName is the path of the claim proofs published next to the snapshot.
func ProofsName(network string, week uint64) string {
	return fmt.Sprintf("%s/proofs_%d.json", network, week)
}
