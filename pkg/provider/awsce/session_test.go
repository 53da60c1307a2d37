package awsce

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

type fakeSTS struct {
	account string
	err     error
}

func (f *fakeSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{Account: aws.String(f.account)}, nil
}

func TestAccountID_ReturnsCallerAccount(t *testing.T) {
	prev := newSTS
	newSTS = func(aws.Config) stsAPI { return &fakeSTS{account: "123456789012"} }
	defer func() { newSTS = prev }()

	if got := AccountID(context.Background(), aws.Config{}); got != "123456789012" {
		t.Errorf("AccountID() = %q, want %q", got, "123456789012")
	}
}

func TestAccountID_LookupFailureIsEmpty(t *testing.T) {
	prev := newSTS
	newSTS = func(aws.Config) stsAPI { return &fakeSTS{err: errors.New("sts unreachable")} }
	defer func() { newSTS = prev }()

	if got := AccountID(context.Background(), aws.Config{}); got != "" {
		t.Errorf("AccountID() = %q, want empty string on lookup failure", got)
	}
}
