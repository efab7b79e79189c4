package livescan

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

const ServiceS3 = "s3"

type s3Collector struct {
	client *s3.Client
}

func NewS3Collector(cfg awssdk.Config) Collector {
	return &s3Collector{
		client: s3.NewFromConfig(cfg),
	}
}

func S3Factory(ctx context.Context, target domain.LiveAccountTarget) (Collector, error) {
	cfg, err := loadAWSConfig(ctx, target)
	if err != nil {
		return nil, err
	}
	return NewS3Collector(cfg), nil
}

func (c *s3Collector) Service() string {
	return ServiceS3
}

// Collect lists every bucket in the account; bucket listing is global, so
// the region scope is ignored. Per-bucket attribute lookups are best
// effort: a bucket we cannot inspect still appears, just with fewer
// properties.
func (c *s3Collector) Collect(ctx context.Context, _ []string) ([]Descriptor, error) {
	resp, err := c.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, &domain.TransientError{Op: "list S3 buckets", Err: err}
	}

	var descriptors []Descriptor
	for _, bucket := range resp.Buckets {
		name := aws.ToString(bucket.Name)
		props := map[string]any{}

		region := DefaultRegion
		locResp, err := c.client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{
			Bucket: bucket.Name,
		})
		if err == nil && string(locResp.LocationConstraint) != "" {
			region = string(locResp.LocationConstraint)
		}

		if encResp, err := c.client.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{
			Bucket: bucket.Name,
		}); err == nil && encResp.ServerSideEncryptionConfiguration != nil {
			for _, rule := range encResp.ServerSideEncryptionConfiguration.Rules {
				if rule.ApplyServerSideEncryptionByDefault == nil {
					continue
				}
				props["BucketEncryption"] = map[string]any{
					"Algorithm": string(rule.ApplyServerSideEncryptionByDefault.SSEAlgorithm),
				}
				break
			}
		}

		if verResp, err := c.client.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{
			Bucket: bucket.Name,
		}); err == nil && verResp.Status != "" {
			props["VersioningStatus"] = string(verResp.Status)
		}

		if pabResp, err := c.client.GetPublicAccessBlock(ctx, &s3.GetPublicAccessBlockInput{
			Bucket: bucket.Name,
		}); err == nil && pabResp.PublicAccessBlockConfiguration != nil {
			cfg := pabResp.PublicAccessBlockConfiguration
			props["PublicAccessBlock"] = map[string]any{
				"BlockPublicAcls":       aws.ToBool(cfg.BlockPublicAcls),
				"BlockPublicPolicy":     aws.ToBool(cfg.BlockPublicPolicy),
				"IgnorePublicAcls":      aws.ToBool(cfg.IgnorePublicAcls),
				"RestrictPublicBuckets": aws.ToBool(cfg.RestrictPublicBuckets),
			}
		}

		descriptors = append(descriptors, Descriptor{
			ResourceType: "AWS::S3::Bucket",
			Name:         name,
			ARN:          fmt.Sprintf("arn:aws:s3:::%s", name),
			Region:       region,
			Properties:   props,
		})
	}
	return descriptors, nil
}
