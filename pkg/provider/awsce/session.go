package awsce

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// DefaultLoader resolves AWS configs from the shared config/credentials
// files, optionally pinning a region for all profiles.
func DefaultLoader(region string) ConfigLoader {
	return func(ctx context.Context, profile string) (aws.Config, error) {
		opts := []func(*config.LoadOptions) error{}
		if profile != "" {
			opts = append(opts, config.WithSharedConfigProfile(profile))
		}
		if region != "" {
			opts = append(opts, config.WithRegion(region))
		}

		cfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
		}
		return cfg, nil
	}
}

// stsAPI is the slice of the STS client the account lookup needs.
type stsAPI interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

var newSTS = func(cfg aws.Config) stsAPI { return sts.NewFromConfig(cfg) }

// AccountID returns the AWS account ID for the given config.
// Returns empty string on error (non-fatal, used for display only).
func AccountID(ctx context.Context, cfg aws.Config) string {
	out, err := newSTS(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return ""
	}
	return aws.ToString(out.Account)
}
