package blob

import (
	"context"
	"fmt"
	"os"

	"contrastcore/internal/infra/blob/fs"
	memorystore "contrastcore/internal/infra/blob/memory"
	s3store "contrastcore/internal/infra/blob/s3"
)

// NewFilesystem constructs a filesystem-backed Store rooted at the provided
// path. Returned as Store so call sites depend on the interface.
func NewFilesystem(root string) (Store, error) {
	return fs.New(root)
}

// NewMemory returns an in-memory Store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewS3 constructs an S3-backed Store from explicit configuration.
func NewS3(ctx context.Context, cfg s3store.Config) (Store, error) {
	return s3store.New(ctx, cfg)
}

// Open selects a backend using environment variables. Defaults to the
// filesystem driver when unset.
//
//	CONTRASTCORE_BLOB_DRIVER: fs|memory|s3 (default fs)
//	CONTRASTCORE_BLOB_FS_ROOT: filesystem root (default ./blobdata)
//	CONTRASTCORE_BLOB_S3_*: see the s3 driver for its variables
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("CONTRASTCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("CONTRASTCORE_BLOB_FS_ROOT"))
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return s3store.OpenFromEnv(ctx)
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
