package livescan

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
)

const ServiceEC2 = "ec2"

type ec2Collector struct {
	cfg awssdk.Config
}

func NewEC2Collector(cfg awssdk.Config) Collector {
	return &ec2Collector{cfg: cfg}
}

func EC2Factory(ctx context.Context, target domain.LiveAccountTarget) (Collector, error) {
	cfg, err := loadAWSConfig(ctx, target)
	if err != nil {
		return nil, err
	}
	return NewEC2Collector(cfg), nil
}

func (c *ec2Collector) Service() string {
	return ServiceEC2
}

func (c *ec2Collector) Collect(ctx context.Context, regions []string) ([]Descriptor, error) {
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

func (c *ec2Collector) collectRegion(ctx context.Context, region string) ([]Descriptor, error) {
	client := ec2.NewFromConfig(c.cfg, func(o *ec2.Options) {
		o.Region = region
	})

	var descriptors []Descriptor
	var nextToken *string
	for {
		resp, err := client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
			Filters: []types.Filter{
				{
					Name:   aws.String("instance-state-name"),
					Values: []string{"running", "stopped"},
				},
			},
			NextToken: nextToken,
		})
		if err != nil {
			return nil, &domain.TransientError{Op: "describe EC2 instances", Err: err}
		}

		for _, reservation := range resp.Reservations {
			for _, instance := range reservation.Instances {
				descriptors = append(descriptors, describeInstance(instance, region))
			}
		}

		if resp.NextToken == nil {
			break
		}
		nextToken = resp.NextToken
	}
	return descriptors, nil
}

func describeInstance(instance types.Instance, region string) Descriptor {
	instanceID := aws.ToString(instance.InstanceId)

	name := instanceID
	tags := map[string]any{}
	for _, tag := range instance.Tags {
		key := aws.ToString(tag.Key)
		tags[key] = aws.ToString(tag.Value)
		if key == "Name" {
			name = aws.ToString(tag.Value)
		}
	}

	props := map[string]any{
		"InstanceId":   instanceID,
		"InstanceType": string(instance.InstanceType),
		"Tags":         tags,
		"PublicIp":     aws.ToString(instance.PublicIpAddress),
	}
	if instance.State != nil {
		props["State"] = string(instance.State.Name)
	}
	if instance.RootDeviceType != "" {
		props["RootDeviceType"] = string(instance.RootDeviceType)
	}
	if instance.MetadataOptions != nil {
		props["MetadataOptions"] = map[string]any{
			"HttpTokens": string(instance.MetadataOptions.HttpTokens),
		}
	}
	props["IamInstanceProfileAttached"] = instance.IamInstanceProfile != nil
	if instance.Monitoring != nil {
		props["MonitoringState"] = string(instance.Monitoring.State)
	}

	groups := make([]any, 0, len(instance.SecurityGroups))
	for _, group := range instance.SecurityGroups {
		groups = append(groups, aws.ToString(group.GroupId))
	}
	props["SecurityGroups"] = groups

	return Descriptor{
		ResourceType: "AWS::EC2::Instance",
		Name:         name,
		ARN:          instanceID,
		Region:       region,
		Properties:   props,
	}
}
