package blob

import (
	"context"
	"testing"

	"kittycore/internal/blob/core"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()
	mem, err := Open(ctx, Config{Driver: core.DriverMemory})
	if err != nil || mem.Driver() != core.DriverMemory {
		t.Fatalf("memory driver: %v", err)
	}
	fs, err := Open(ctx, Config{FSRoot: t.TempDir()})
	if err != nil || fs.Driver() != core.DriverFilesystem {
		t.Fatalf("default driver: %v", err)
	}
	if _, err := Open(ctx, Config{Driver: core.DriverS3}); err == nil {
		t.Fatalf("expected s3 driver without bucket to fail")
	}
	if _, err := Open(ctx, Config{Driver: "tape"}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
