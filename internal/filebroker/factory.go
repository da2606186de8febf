package filebroker

import (
	"context"
	"fmt"

	"github.com/cloudforge/jobbroker/internal/config"
)

// New selects the configured backend (§9's "closed variant, not open
// extension" — exactly two implementations chosen once at startup).
func New(ctx context.Context) (FileBroker, error) {
	switch config.ObjectStoreType {
	case "local":
		return NewLocalBroker(config.UserDataRootPath), nil
	case "s3":
		return NewS3Broker(ctx, config.S3Bucket, config.S3Region, config.S3Endpoint)
	default:
		return nil, fmt.Errorf("unsupported FILESYSTEM backend %q", config.ObjectStoreType)
	}
}
