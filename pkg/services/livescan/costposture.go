package livescan

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"golang.org/x/exp/maps"
)

const ServiceCost = "cost"

// costWindowDays is the trailing window used when collecting spend posture.
const costWindowDays = 30

type costPostureCollector struct {
	client *costexplorer.Client
	now    func() time.Time
}

func NewCostPostureCollector(cfg aws.Config) Collector {
	return &costPostureCollector{
		client: costexplorer.NewFromConfig(cfg),
		now:    time.Now,
	}
}

func CostPostureFactory(ctx context.Context, target domain.LiveAccountTarget) (Collector, error) {
	cfg, err := loadAWSConfig(ctx, target)
	if err != nil {
		return nil, err
	}
	return NewCostPostureCollector(cfg), nil
}

func (c *costPostureCollector) Service() string {
	return ServiceCost
}

// Collect reports per-service spend over the trailing window as synthetic
// resources. Cost Explorer is a global API, so the regions argument is ignored.
func (c *costPostureCollector) Collect(ctx context.Context, _ []string) ([]Descriptor, error) {
	end := c.now().UTC()
	start := end.AddDate(0, 0, -costWindowDays)

	resp, err := c.client.GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod: &types.DateInterval{
			Start: aws.String(start.Format("2006-01-02")),
			End:   aws.String(end.Format("2006-01-02")),
		},
		Granularity: types.GranularityMonthly,
		Metrics:     []string{"UnblendedCost"},
		GroupBy: []types.GroupDefinition{
			{
				Type: types.GroupDefinitionTypeDimension,
				Key:  aws.String("SERVICE"),
			},
		},
	})
	if err != nil {
		return nil, &domain.TransientError{Op: "query Cost Explorer", Err: err}
	}

	totals := map[string]float64{}
	currencies := map[string]string{}
	for _, result := range resp.ResultsByTime {
		for _, group := range result.Groups {
			if len(group.Keys) == 0 {
				continue
			}
			service := group.Keys[0]
			metric, ok := group.Metrics["UnblendedCost"]
			if !ok {
				continue
			}
			amount, err := strconv.ParseFloat(aws.ToString(metric.Amount), 64)
			if err != nil {
				continue
			}
			totals[service] += amount
			currencies[service] = aws.ToString(metric.Unit)
		}
	}

	services := maps.Keys(totals)
	sort.Strings(services)

	descriptors := make([]Descriptor, 0, len(services))
	for _, service := range services {
		descriptors = append(descriptors, Descriptor{
			ResourceType: "AWS::CostPosture::Service",
			Name:         service,
			Properties: map[string]any{
				"Service":     service,
				"Amount":      totals[service],
				"Currency":    currencies[service],
				"PeriodStart": start.Format("2006-01-02"),
				"PeriodEnd":   end.Format("2006-01-02"),
			},
		})
	}
	return descriptors, nil
}
