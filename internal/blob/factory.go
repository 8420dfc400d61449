// Package blob opens the archive object store selected by configuration.
package blob

import (
	"context"
	"fmt"

	"kittycore/internal/blob/core"
	fsstore "kittycore/internal/infra/blob/fs"
	memorystore "kittycore/internal/infra/blob/memory"
	s3store "kittycore/internal/infra/blob/s3"
)

type (
	// Store is the interface for blob storage backends.
	Store = core.Store
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// S3Config configures the S3 driver.
	S3Config = s3store.Config
)

// Config selects and parameterises a blob backend.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open constructs the Store named by cfg.Driver. An empty driver selects the
// filesystem store.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = core.DriverFilesystem
	}
	switch driver {
	case core.DriverFilesystem:
		return fsstore.New(cfg.FSRoot)
	case core.DriverS3:
		return s3store.New(ctx, cfg.S3)
	case core.DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
