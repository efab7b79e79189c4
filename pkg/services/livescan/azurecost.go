package livescan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/costmanagement/armcostmanagement"
	"github.com/de-tools/compliance-atlas/pkg/models/domain"
	"golang.org/x/exp/maps"
	"gopkg.in/ini.v1"
)

// ServiceAzureCost is not part of DefaultRegistry; register it explicitly
// when scanning accounts that carry an Azure subscription alongside AWS.
const ServiceAzureCost = "azure-cost"

const azureDefaultProfile = "default"

type azureProfile struct {
	subscriptionID string
	tenantID       string
	region         string
}

type azureCostCollector struct {
	factory        *armcostmanagement.ClientFactory
	subscriptionID string
	now            func() time.Time
}

func NewAzureCostCollector(factory *armcostmanagement.ClientFactory, subscriptionID string) Collector {
	return &azureCostCollector{
		factory:        factory,
		subscriptionID: subscriptionID,
		now:            time.Now,
	}
}

// AzureCostFactory builds a collector from the local Azure CLI profile named
// by the target. Credentials stay inside the SDK client and are never
// surfaced on the emitted descriptors.
func AzureCostFactory(ctx context.Context, target domain.LiveAccountTarget) (Collector, error) {
	profile, err := loadAzureProfile(target.Profile)
	if err != nil {
		return nil, err
	}

	cred, err := azidentity.NewAzureCLICredential(&azidentity.AzureCLICredentialOptions{
		TenantID: profile.tenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure CLI credential: %w", err)
	}

	factory, err := armcostmanagement.NewClientFactory(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cost management client: %w", err)
	}
	return NewAzureCostCollector(factory, profile.subscriptionID), nil
}

func loadAzureProfile(name string) (azureProfile, error) {
	if name == "" {
		name = azureDefaultProfile
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return azureProfile{}, fmt.Errorf("unable to get home directory: %w", err)
	}

	cfg, err := ini.Load(filepath.Join(homeDir, ".azure", "config"))
	if err != nil {
		return azureProfile{}, fmt.Errorf("unable to load Azure config file: %w", err)
	}

	section, err := cfg.GetSection(name)
	if err != nil {
		return azureProfile{}, &domain.ConfigurationError{
			Field:  "profile",
			Reason: fmt.Sprintf("profile %q not found in Azure config", name),
		}
	}

	profile := azureProfile{
		subscriptionID: section.Key("subscription").String(),
		tenantID:       section.Key("tenant").String(),
		region:         section.Key("region").String(),
	}
	if profile.subscriptionID == "" {
		return azureProfile{}, &domain.ConfigurationError{
			Field:  "profile",
			Reason: fmt.Sprintf("subscription ID not set in Azure profile %q", name),
		}
	}
	return profile, nil
}

func (c *azureCostCollector) Service() string {
	return ServiceAzureCost
}

// Collect reports per-service subscription spend over the trailing window.
// Azure cost queries are scoped to the subscription, so regions are ignored.
func (c *azureCostCollector) Collect(ctx context.Context, _ []string) ([]Descriptor, error) {
	client := c.factory.NewQueryClient()
	scope := fmt.Sprintf("/subscriptions/%s", c.subscriptionID)

	timeTo := c.now().UTC()
	timeFrom := timeTo.AddDate(0, 0, -costWindowDays)

	exportType := armcostmanagement.ExportTypeActualCost
	timeframe := armcostmanagement.TimeframeTypeCustom
	dimension := armcostmanagement.QueryColumnTypeDimension

	params := armcostmanagement.QueryDefinition{
		Type:      &exportType,
		Timeframe: &timeframe,
		TimePeriod: &armcostmanagement.QueryTimePeriod{
			From: &timeFrom,
			To:   &timeTo,
		},
		Dataset: &armcostmanagement.QueryDataset{
			Aggregation: map[string]*armcostmanagement.QueryAggregation{
				"totalCost": {
					Name:     to.Ptr("Cost"),
					Function: to.Ptr(armcostmanagement.FunctionTypeSum),
				},
			},
			Grouping: []*armcostmanagement.QueryGrouping{
				{
					Name: to.Ptr("ServiceName"),
					Type: &dimension,
				},
			},
		},
	}

	result, err := client.Usage(ctx, scope, params, nil)
	if err != nil {
		return nil, &domain.TransientError{Op: "query Azure cost management", Err: err}
	}
	if result.Properties == nil {
		return nil, nil
	}

	costIdx, serviceIdx, currencyIdx := azureColumnIndexes(result.Properties.Columns)

	totals := map[string]float64{}
	currencies := map[string]string{}
	for _, row := range result.Properties.Rows {
		if len(row) <= costIdx || len(row) <= serviceIdx {
			continue
		}
		amount, ok := row[costIdx].(float64)
		if !ok {
			continue
		}
		service := fmt.Sprintf("%v", row[serviceIdx])
		totals[service] += amount
		if currencyIdx < len(row) {
			currencies[service] = fmt.Sprintf("%v", row[currencyIdx])
		}
	}

	services := maps.Keys(totals)
	sort.Strings(services)

	descriptors := make([]Descriptor, 0, len(services))
	for _, service := range services {
		descriptors = append(descriptors, Descriptor{
			ResourceType: "Azure::CostPosture::Service",
			Name:         service,
			Properties: map[string]any{
				"Service":        service,
				"Amount":         totals[service],
				"Currency":       currencies[service],
				"PeriodStart":    timeFrom.Format("2006-01-02"),
				"PeriodEnd":      timeTo.Format("2006-01-02"),
				"SubscriptionId": c.subscriptionID,
			},
		})
	}
	return descriptors, nil
}

// azureColumnIndexes locates the cost, service and currency columns in a
// query result, falling back to the documented positional layout.
func azureColumnIndexes(columns []*armcostmanagement.QueryColumn) (int, int, int) {
	costIdx, serviceIdx, currencyIdx := 0, 1, 2
	for i, column := range columns {
		if column == nil || column.Name == nil {
			continue
		}
		switch *column.Name {
		case "Cost", "totalCost":
			costIdx = i
		case "ServiceName":
			serviceIdx = i
		case "Currency":
			currencyIdx = i
		}
	}
	return costIdx, serviceIdx, currencyIdx
}
