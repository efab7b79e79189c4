package livescan

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

const ServiceRDS = "rds"

type rdsCollector struct {
	cfg awssdk.Config
}

func NewRDSCollector(cfg awssdk.Config) Collector {
	return &rdsCollector{cfg: cfg}
}

func RDSFactory(ctx context.Context, target domain.LiveAccountTarget) (Collector, error) {
	cfg, err := loadAWSConfig(ctx, target)
	if err != nil {
		return nil, err
	}
	return NewRDSCollector(cfg), nil
}

func (c *rdsCollector) Service() string {
	return ServiceRDS
}

func (c *rdsCollector) Collect(ctx context.Context, regions []string) ([]Descriptor, error) {
	var descriptors []Descriptor
	for _, region := range regionsOrDefault(regions, c.cfg.Region) {
		regional, err := c.collectRegion(ctx, region)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, regional...)
	}
	return descriptors, nil
}

func (c *rdsCollector) collectRegion(ctx context.Context, region string) ([]Descriptor, error) {
	client := rds.NewFromConfig(c.cfg, func(o *rds.Options) {
		o.Region = region
	})

	var descriptors []Descriptor
	var marker *string
	for {
		resp, err := client.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
			Marker: marker,
		})
		if err != nil {
			return nil, &domain.TransientError{Op: "describe RDS instances", Err: err}
		}

		for _, instance := range resp.DBInstances {
			descriptors = append(descriptors, describeDBInstance(instance, region))
		}

		if resp.Marker == nil {
			break
		}
		marker = resp.Marker
	}
	return descriptors, nil
}

func describeDBInstance(instance types.DBInstance, region string) Descriptor {
	props := map[string]any{
		"Engine":                aws.ToString(instance.Engine),
		"EngineVersion":         aws.ToString(instance.EngineVersion),
		"DBInstanceClass":       aws.ToString(instance.DBInstanceClass),
		"StorageEncrypted":      aws.ToBool(instance.StorageEncrypted),
		"PubliclyAccessible":    aws.ToBool(instance.PubliclyAccessible),
		"MultiAZ":               aws.ToBool(instance.MultiAZ),
		"DeletionProtection":    aws.ToBool(instance.DeletionProtection),
		"BackupRetentionPeriod": aws.ToInt32(instance.BackupRetentionPeriod),
		"AllocatedStorage":      aws.ToInt32(instance.AllocatedStorage),
	}
	if instance.StorageType != nil {
		props["StorageType"] = aws.ToString(instance.StorageType)
	}

	return Descriptor{
		ResourceType: "AWS::RDS::DBInstance",
		Name:         aws.ToString(instance.DBInstanceIdentifier),
		ARN:          aws.ToString(instance.DBInstanceArn),
		Region:       region,
		Properties:   props,
	}
}
