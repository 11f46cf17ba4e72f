package publish

import (
	"context"
	"errors"
	"testing"
)

func TestDirPublisherRoundTrip(t *testing.T) {
	pub := NewDirPublisher(t.TempDir())
	ctx := context.Background()

	name := SnapshotName("mainnet", 2800)
	if name != "mainnet/rewards_2800.json" {
		t.Fatalf("unexpected snapshot name %q", name)
	}

	if _, err := pub.Fetch(ctx, name); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := pub.Publish(ctx, "week 2800", []File{{Name: name, Content: []byte(`{"a":1}`)}}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	data, err := pub.Fetch(ctx, name)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Fatalf("content mismatch: %s", data)
	}
}

func TestDirPublisherRejectsEscapingNames(t *testing.T) {
	pub := NewDirPublisher(t.TempDir())
	if err := pub.Publish(context.Background(), "", []File{{Name: "../outside.json"}}); err == nil {
		t.Fatalf("expected error for escaping name")
	}
}
