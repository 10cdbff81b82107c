// Package s3check probes S3-flavoured backend endpoints for reachability.
//
// The ceph_s3, amazon_s3 and swift_s3 backend types point the pool at an
// S3-compatible object store the management API cannot inspect for us. The
// wizard runs this probe before confirming the pool so a typo in the
// endpoint or credentials surfaces immediately instead of during the first
// volume write.
package s3check

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/openvstorage/vpool-wizard/internal/config"
	"github.com/openvstorage/vpool-wizard/internal/http"
	"github.com/openvstorage/vpool-wizard/internal/logging"
)

// DefaultRegion is used when the endpoint does not care about regions,
// which is the case for most on-premise S3 implementations.
const DefaultRegion = "us-east-1"

// Params describes the endpoint to probe.
type Params struct {
	// Endpoint is the full URL of the S3 service, e.g. "https://ceph.local:7480".
	Endpoint string

	// Region is optional; DefaultRegion applies when empty.
	Region string

	AccessKey string
	SecretKey string

	// Bucket is optional. When set the probe issues a HeadBucket against it,
	// otherwise a ListBuckets.
	Bucket string
}

func (p Params) validate() error {
	if strings.TrimSpace(p.Endpoint) == "" {
		return fmt.Errorf("s3 endpoint is required")
	}
	if strings.TrimSpace(p.AccessKey) == "" || strings.TrimSpace(p.SecretKey) == "" {
		return fmt.Errorf("s3 access key and secret key are required")
	}
	return nil
}

// newClient builds an S3 client against a custom endpoint, going through the
// same proxied HTTP transport as the management API calls. Path-style
// addressing is forced: on-premise stores rarely resolve virtual-host bucket
// names.
func newClient(ctx context.Context, cfg *config.Config, p Params) (*s3.Client, error) {
	httpClient, err := http.ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	region := p.Region
	if region == "" {
		region = DefaultRegion
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithHTTPClient(httpClient),
		awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(strings.TrimSpace(p.AccessKey), strings.TrimSpace(p.SecretKey), ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(strings.TrimRight(p.Endpoint, "/"))
		o.UsePathStyle = true
	}), nil
}

// Probe checks that the endpoint answers authenticated S3 calls. It returns
// nil when the store is reachable with the given credentials.
func Probe(ctx context.Context, cfg *config.Config, p Params) error {
	if err := p.validate(); err != nil {
		return err
	}

	client, err := newClient(ctx, cfg, p)
	if err != nil {
		return err
	}

	if p.Bucket != "" {
		logging.Debugf("s3check: HeadBucket %s at %s", p.Bucket, p.Endpoint)
		_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(p.Bucket)})
		if err != nil {
			return fmt.Errorf("bucket %s not reachable at %s: %w", p.Bucket, p.Endpoint, err)
		}
		return nil
	}

	logging.Debugf("s3check: ListBuckets at %s", p.Endpoint)
	if _, err := client.ListBuckets(ctx, &s3.ListBucketsInput{}); err != nil {
		return fmt.Errorf("s3 endpoint %s not reachable: %w", p.Endpoint, err)
	}
	return nil
}

// AppliesTo reports whether a backend type stores its data on an external
// S3-compatible endpoint and therefore benefits from a probe.
func AppliesTo(backendType string) bool {
	switch backendType {
	case "ceph_s3", "amazon_s3", "swift_s3":
		return true
	}
	return false
}
