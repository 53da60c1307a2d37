// Package awsce implements the cost provider against the AWS Cost
// Explorer API using aws-sdk-go-v2.
//
// Each GetCostAndUsage call is metered (~$0.01), which is why the
// pipeline in front of this client rate-limits and caches aggressively.
package awsce

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/smithy-go"

	"costwatch-hq/saturn/pkg/costdata"
	"costwatch-hq/saturn/pkg/provider"
)

// costExplorerAPI is the subset of the Cost Explorer client we use.
type costExplorerAPI interface {
	GetCostAndUsage(ctx context.Context, params *costexplorer.GetCostAndUsageInput, optFns ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error)
}

// Client fetches cost data from AWS Cost Explorer.
//
// One Client serves all profiles; the per-profile AWS config is resolved
// through the injected config loader so that switching profiles does not
// rebuild the client.
type Client struct {
	loader ConfigLoader
	metric string

	// newAPI builds the Cost Explorer API for a resolved config.
	// Injectable for testing.
	newAPI func(aws.Config) costExplorerAPI
}

// ConfigLoader resolves an AWS config for a named shared-config profile.
type ConfigLoader func(ctx context.Context, profile string) (aws.Config, error)

// Option configures a Client.
type Option func(*Client)

// WithMetric overrides the cost metric (default "UnblendedCost").
func WithMetric(metric string) Option {
	return func(c *Client) { c.metric = metric }
}

// WithAPIFactory overrides API construction, for testing.
func WithAPIFactory(f func(aws.Config) costExplorerAPI) Option {
	return func(c *Client) { c.newAPI = f }
}

// NewClient creates a Cost Explorer backed provider.
func NewClient(loader ConfigLoader, opts ...Option) *Client {
	c := &Client{
		loader: loader,
		metric: "UnblendedCost",
		newAPI: func(cfg aws.Config) costExplorerAPI {
			return costexplorer.NewFromConfig(cfg)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchDaily returns per-day per-service cost rows for [start, end).
func (c *Client) FetchDaily(ctx context.Context, profile costdata.Profile, start, end time.Time) ([]costdata.DailyServiceCost, error) {
	cfg, err := c.loader(ctx, string(profile))
	if err != nil {
		return nil, &provider.Error{Profile: profile, Op: "load config", Err: fmt.Errorf("%w: %v", provider.ErrCredentialsMissing, err)}
	}

	out, err := c.newAPI(cfg).GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod: &cetypes.DateInterval{
			Start: aws.String(start.Format("2006-01-02")),
			End:   aws.String(end.Format("2006-01-02")),
		},
		Granularity: cetypes.GranularityDaily,
		Metrics:     []string{c.metric},
		GroupBy: []cetypes.GroupDefinition{
			{Type: cetypes.GroupDefinitionTypeDimension, Key: aws.String("SERVICE")},
		},
	})
	if err != nil {
		return nil, &provider.Error{Profile: profile, Op: "GetCostAndUsage", Err: classify(err)}
	}

	rows := c.flatten(out)
	if len(rows) == 0 {
		return nil, &provider.Error{Profile: profile, Op: "GetCostAndUsage", Err: provider.ErrNoData}
	}
	return rows, nil
}

// flatten converts the grouped API response into flat cost rows.
func (c *Client) flatten(out *costexplorer.GetCostAndUsageOutput) []costdata.DailyServiceCost {
	var rows []costdata.DailyServiceCost
	for _, result := range out.ResultsByTime {
		date, err := time.ParseInLocation("2006-01-02", aws.ToString(result.TimePeriod.Start), time.UTC)
		if err != nil {
			continue
		}
		for _, group := range result.Groups {
			if len(group.Keys) == 0 {
				continue
			}
			metric, ok := group.Metrics[c.metric]
			if !ok {
				continue
			}
			amount, err := strconv.ParseFloat(aws.ToString(metric.Amount), 64)
			if err != nil {
				continue
			}
			rows = append(rows, costdata.DailyServiceCost{
				Date:     date,
				Service:  group.Keys[0],
				Amount:   amount,
				Currency: aws.ToString(metric.Unit),
			})
		}
	}
	return rows
}

// classify maps AWS SDK errors onto the provider error sentinels.
func classify(err error) error {
	var limitErr *cetypes.LimitExceededException
	if errors.As(err, &limitErr) {
		return fmt.Errorf("%w: %v", provider.ErrThrottled, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "TooManyRequestsException", "RequestLimitExceeded":
			return fmt.Errorf("%w: %v", provider.ErrThrottled, err)
		case "UnrecognizedClientException", "InvalidClientTokenId", "AccessDeniedException", "ExpiredTokenException":
			return fmt.Errorf("%w: %v", provider.ErrAuthFailure, err)
		}
	}
	return err
}
