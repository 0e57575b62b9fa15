// Package storage adapts object-storage providers behind a single uploader
// used for avatar, cover-image and video assets.
package storage

import (
	"errors"

	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/casdoor/oss"
	"github.com/casdoor/oss/filesystem"
	casdoors3 "github.com/casdoor/oss/s3"
)

type Config struct {
	Provider string
	ID       string
	Secret   string
	Region   string
	Bucket   string
	Endpoint string
	// BaseURL prefixes returned object paths to form the public URL for
	// providers that do not know their own public endpoint (filesystem).
	BaseURL string
}

// New builds the configured provider.
func New(c *Config) (oss.StorageInterface, error) {
	switch c.Provider {
	case "filesystem":
		return filesystem.New(c.Bucket), nil
	case "minio":
		if c.Endpoint == "" {
			return nil, errors.New("endpoint is required for minio")
		}
		region := c.Region
		if region == "" {
			region = "us-east-1"
		}
		return casdoors3.New(&casdoors3.Config{
			AccessID:         c.ID,
			AccessKey:        c.Secret,
			Region:           region,
			Bucket:           c.Bucket,
			Endpoint:         c.Endpoint,
			S3Endpoint:       c.Endpoint,
			ACL:              s3.BucketCannedACLPublicRead,
			S3ForcePathStyle: true,
		}), nil
	case "aws-s3":
		return casdoors3.New(&casdoors3.Config{
			AccessID:   c.ID,
			AccessKey:  c.Secret,
			Region:     c.Region,
			Bucket:     c.Bucket,
			Endpoint:   c.Endpoint,
			S3Endpoint: c.Endpoint,
			ACL:        s3.BucketCannedACLPublicRead,
		}), nil
	default:
		return nil, errors.New("unsupported storage provider: " + c.Provider)
	}
}
