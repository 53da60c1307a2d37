package awsce

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	cetypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/smithy-go"

	"costwatch-hq/saturn/pkg/provider"
)

// fakeAPI returns a scripted response or error.
type fakeAPI struct {
	out   *costexplorer.GetCostAndUsageOutput
	err   error
	input *costexplorer.GetCostAndUsageInput
}

func (f *fakeAPI) GetCostAndUsage(_ context.Context, params *costexplorer.GetCostAndUsageInput, _ ...func(*costexplorer.Options)) (*costexplorer.GetCostAndUsageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func clientWith(api *fakeAPI) *Client {
	loader := func(_ context.Context, _ string) (aws.Config, error) {
		return aws.Config{}, nil
	}
	return NewClient(loader, WithAPIFactory(func(aws.Config) costExplorerAPI { return api }))
}

func resultDay(day string, groups ...cetypes.Group) cetypes.ResultByTime {
	return cetypes.ResultByTime{
		TimePeriod: &cetypes.DateInterval{Start: aws.String(day)},
		Groups:     groups,
	}
}

func group(service, amount, unit string) cetypes.Group {
	return cetypes.Group{
		Keys: []string{service},
		Metrics: map[string]cetypes.MetricValue{
			"UnblendedCost": {Amount: aws.String(amount), Unit: aws.String(unit)},
		},
	}
}

// apiError is a minimal smithy.APIError for classification tests.
type apiError struct {
	code string
}

func (e *apiError) Error() string                 { return e.code }
func (e *apiError) ErrorCode() string             { return e.code }
func (e *apiError) ErrorMessage() string          { return e.code }
func (e *apiError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

var (
	augStart = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	augMid   = time.Date(2026, 8, 16, 0, 0, 0, 0, time.UTC)
)

// ============================================================================
// Response Flattening Tests
// ============================================================================

func TestClient_FlattensGroupedResponse(t *testing.T) {
	api := &fakeAPI{out: &costexplorer.GetCostAndUsageOutput{
		ResultsByTime: []cetypes.ResultByTime{
			resultDay("2026-08-01",
				group("Amazon EC2", "12.34", "USD"),
				group("Amazon S3", "1.50", "USD"),
			),
			resultDay("2026-08-02",
				group("Amazon EC2", "11.00", "USD"),
			),
		},
	}}

	rows, err := clientWith(api).FetchDaily(context.Background(), "prod", augStart, augMid)
	if err != nil {
		t.Fatalf("FetchDaily() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Row count = %d, want 3", len(rows))
	}
	first := rows[0]
	if first.Service != "Amazon EC2" || first.Amount != 12.34 || first.Currency != "USD" {
		t.Errorf("First row = %+v", first)
	}
	if !first.Date.Equal(augStart) {
		t.Errorf("First row date = %v, want %v", first.Date, augStart)
	}
}

func TestClient_RequestShape(t *testing.T) {
	api := &fakeAPI{out: &costexplorer.GetCostAndUsageOutput{
		ResultsByTime: []cetypes.ResultByTime{
			resultDay("2026-08-01", group("Amazon EC2", "1.00", "USD")),
		},
	}}

	_, err := clientWith(api).FetchDaily(context.Background(), "prod", augStart, augMid)
	if err != nil {
		t.Fatalf("FetchDaily() error = %v", err)
	}

	in := api.input
	if aws.ToString(in.TimePeriod.Start) != "2026-08-01" || aws.ToString(in.TimePeriod.End) != "2026-08-16" {
		t.Errorf("TimePeriod = %s..%s", aws.ToString(in.TimePeriod.Start), aws.ToString(in.TimePeriod.End))
	}
	if in.Granularity != cetypes.GranularityDaily {
		t.Errorf("Granularity = %s, want DAILY", in.Granularity)
	}
	if len(in.Metrics) != 1 || in.Metrics[0] != "UnblendedCost" {
		t.Errorf("Metrics = %v, want [UnblendedCost]", in.Metrics)
	}
	if len(in.GroupBy) != 1 || aws.ToString(in.GroupBy[0].Key) != "SERVICE" {
		t.Errorf("GroupBy = %+v, want SERVICE dimension", in.GroupBy)
	}
}

func TestClient_CustomMetric(t *testing.T) {
	api := &fakeAPI{out: &costexplorer.GetCostAndUsageOutput{
		ResultsByTime: []cetypes.ResultByTime{
			{
				TimePeriod: &cetypes.DateInterval{Start: aws.String("2026-08-01")},
				Groups: []cetypes.Group{{
					Keys: []string{"Amazon EC2"},
					Metrics: map[string]cetypes.MetricValue{
						"AmortizedCost": {Amount: aws.String("9.99"), Unit: aws.String("USD")},
					},
				}},
			},
		},
	}}
	loader := func(_ context.Context, _ string) (aws.Config, error) { return aws.Config{}, nil }
	c := NewClient(loader,
		WithMetric("AmortizedCost"),
		WithAPIFactory(func(aws.Config) costExplorerAPI { return api }),
	)

	rows, err := c.FetchDaily(context.Background(), "prod", augStart, augMid)
	if err != nil {
		t.Fatalf("FetchDaily() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Amount != 9.99 {
		t.Errorf("Rows = %+v, want one AmortizedCost row", rows)
	}
	if api.input.Metrics[0] != "AmortizedCost" {
		t.Errorf("Requested metric = %s, want AmortizedCost", api.input.Metrics[0])
	}
}

func TestClient_SkipsMalformedGroups(t *testing.T) {
	api := &fakeAPI{out: &costexplorer.GetCostAndUsageOutput{
		ResultsByTime: []cetypes.ResultByTime{
			resultDay("2026-08-01",
				cetypes.Group{}, // no keys
				group("Amazon EC2", "not-a-number", "USD"),
				group("Amazon S3", "2.00", "USD"),
			),
		},
	}}

	rows, err := clientWith(api).FetchDaily(context.Background(), "prod", augStart, augMid)
	if err != nil {
		t.Fatalf("FetchDaily() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Service != "Amazon S3" {
		t.Errorf("Rows = %+v, want only the well-formed S3 row", rows)
	}
}

// ============================================================================
// Error Classification Tests
// ============================================================================

func TestClient_EmptyResponseIsNoData(t *testing.T) {
	api := &fakeAPI{out: &costexplorer.GetCostAndUsageOutput{}}
	_, err := clientWith(api).FetchDaily(context.Background(), "prod", augStart, augMid)
	if !errors.Is(err, provider.ErrNoData) {
		t.Errorf("FetchDaily() error = %v, want ErrNoData", err)
	}
}

func TestClient_LoaderFailureIsConfigError(t *testing.T) {
	loader := func(_ context.Context, _ string) (aws.Config, error) {
		return aws.Config{}, errors.New("shared config profile not found")
	}
	c := NewClient(loader, WithAPIFactory(func(aws.Config) costExplorerAPI { return &fakeAPI{} }))

	_, err := c.FetchDaily(context.Background(), "missing", augStart, augMid)
	if !errors.Is(err, provider.ErrCredentialsMissing) {
		t.Errorf("FetchDaily() error = %v, want ErrCredentialsMissing", err)
	}
	if !provider.IsConfigError(err) {
		t.Error("Expected a config error classification")
	}
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"throttling exception", &apiError{code: "ThrottlingException"}, provider.ErrThrottled},
		{"too many requests", &apiError{code: "TooManyRequestsException"}, provider.ErrThrottled},
		{"limit exceeded type", &cetypes.LimitExceededException{Message: aws.String("rate")}, provider.ErrThrottled},
		{"unrecognized client", &apiError{code: "UnrecognizedClientException"}, provider.ErrAuthFailure},
		{"access denied", &apiError{code: "AccessDeniedException"}, provider.ErrAuthFailure},
		{"expired token", &apiError{code: "ExpiredTokenException"}, provider.ErrAuthFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{err: tt.err}
			_, err := clientWith(api).FetchDaily(context.Background(), "prod", augStart, augMid)
			if !errors.Is(err, tt.want) {
				t.Errorf("FetchDaily() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClient_UnknownErrorPassesThrough(t *testing.T) {
	boom := errors.New("connection reset")
	api := &fakeAPI{err: boom}

	_, err := clientWith(api).FetchDaily(context.Background(), "prod", augStart, augMid)
	if !errors.Is(err, boom) {
		t.Errorf("FetchDaily() error = %v, want the raw error wrapped", err)
	}
	var perr *provider.Error
	if !errors.As(err, &perr) || perr.Profile != "prod" {
		t.Errorf("Expected a provider.Error carrying the profile, got %v", err)
	}
}
