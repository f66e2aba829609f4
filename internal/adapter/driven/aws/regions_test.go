package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2Types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
	"github.com/diillson/aws-pillar-scanner-go/internal/shared/retry"
)

// noSleep devolve uma política de retry sem espera real, para os testes.
func noSleep(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		Sleep:       func(time.Duration) {},
	}
}

type fakeEC2Regions struct {
	out *ec2.DescribeRegionsOutput
	err error
}

func (f *fakeEC2Regions) DescribeRegions(context.Context, *ec2.DescribeRegionsInput, ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	return f.out, f.err
}

func regionsOutput(names ...string) *ec2.DescribeRegionsOutput {
	out := &ec2.DescribeRegionsOutput{}
	for _, name := range names {
		out.Regions = append(out.Regions, ec2Types.Region{RegionName: awssdk.String(name)})
	}
	return out
}

func TestResolveRegionsIntersectsAllowList(t *testing.T) {
	repo := NewRegionRepository([]string{"us-east-1"}).
		WithClientFactory(func(entity.Credentials) DescribeRegionsAPI {
			return &fakeEC2Regions{out: regionsOutput("a", "b", "c")}
		})

	regions, err := repo.ResolveRegions(context.Background(), entity.Credentials{}, []string{"b", "c", "d"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, regions)
}

func TestResolveRegionsEmptyAllowListKeepsAll(t *testing.T) {
	repo := NewRegionRepository(nil).
		WithClientFactory(func(entity.Credentials) DescribeRegionsAPI {
			return &fakeEC2Regions{out: regionsOutput("eu-west-1", "us-east-1")}
		})

	regions, err := repo.ResolveRegions(context.Background(), entity.Credentials{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"eu-west-1", "us-east-1"}, regions)
}

func TestResolveRegionsFallsBackToDefaults(t *testing.T) {
	defaults := []string{"us-east-1", "eu-west-1"}
	repo := NewRegionRepository(defaults).
		WithClientFactory(func(entity.Credentials) DescribeRegionsAPI {
			return &fakeEC2Regions{err: errors.New("request timed out")}
		})

	regions, err := repo.ResolveRegions(context.Background(), entity.Credentials{}, nil)
	require.NoError(t, err, "region listing failure must not abort the scan")
	assert.Equal(t, defaults, regions)
}

func TestResolveRegionsFallbackStillHonorsAllowList(t *testing.T) {
	repo := NewRegionRepository([]string{"us-east-1", "eu-west-1", "us-west-2"}).
		WithClientFactory(func(entity.Credentials) DescribeRegionsAPI {
			return &fakeEC2Regions{err: errors.New("throttled")}
		})

	regions, err := repo.ResolveRegions(context.Background(), entity.Credentials{}, []string{"eu-west-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"eu-west-1"}, regions)
}
