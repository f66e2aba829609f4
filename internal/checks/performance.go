package checks

import (
	"context"
	"fmt"
	"strings"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwTypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2Types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
)

const (
	cpuLookback      = 14 * 24 * time.Hour
	errorLookback    = 7 * 24 * time.Hour
	ec2HighCPU       = 85.0
	rdsHighCPU       = 80.0
	lambdaErrorRate  = 0.05
	lambdaMinInvokes = 100.0
)

// Gerações anteriores com substituto direto mais eficiente.
var previousGenPrefixes = map[string]string{
	"t2.": "t3", "m3.": "m5", "m4.": "m5", "c3.": "c5", "c4.": "c5", "r3.": "r5", "r4.": "r5", "i2.": "i3",
}

func performanceChecks() []Check {
	return []Check{
		{ID: "Performance#EC2HighCPU", Name: "Instances sustaining high CPU", Pillar: entity.PillarPerformance, Scope: ScopeRegional, Run: checkEC2HighCPU},
		{ID: "Performance#RDSHighCPU", Name: "DB instances sustaining high CPU", Pillar: entity.PillarPerformance, Scope: ScopeRegional, Run: checkRDSHighCPU},
		{ID: "Performance#GP2Volumes", Name: "gp2 volumes eligible for gp3", Pillar: entity.PillarPerformance, Scope: ScopeRegional, Run: checkGP2Volumes},
		{ID: "Performance#PreviousGenerationInstances", Name: "Previous generation instance types", Pillar: entity.PillarPerformance, Scope: ScopeRegional, Run: checkPreviousGenerationInstances},
		{ID: "Performance#LambdaHighErrorRate", Name: "Functions with elevated error rates", Pillar: entity.PillarPerformance, Scope: ScopeRegional, Run: checkLambdaHighErrorRate},
	}
}

// metricAverage retorna a média dos datapoints de uma métrica na janela.
// ok=false quando não há datapoint algum (recurso recém-criado ou parado).
func metricAverage(ctx context.Context, client *cloudwatch.Client, namespace, metric, dimName, dimValue string, lookback time.Duration) (float64, bool, error) {
	now := time.Now().UTC()
	out, err := client.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  awssdk.String(namespace),
		MetricName: awssdk.String(metric),
		Dimensions: []cwTypes.Dimension{{Name: awssdk.String(dimName), Value: awssdk.String(dimValue)}},
		StartTime:  awssdk.Time(now.Add(-lookback)),
		EndTime:    awssdk.Time(now),
		Period:     awssdk.Int32(3600),
		Statistics: []cwTypes.Statistic{cwTypes.StatisticAverage},
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to read %s/%s for %s: %w", namespace, metric, dimValue, err)
	}
	if len(out.Datapoints) == 0 {
		return 0, false, nil
	}

	var total float64
	for _, point := range out.Datapoints {
		if point.Average != nil {
			total += *point.Average
		}
	}
	return total / float64(len(out.Datapoints)), true, nil
}

// metricSum soma os datapoints Sum de uma métrica na janela.
func metricSum(ctx context.Context, client *cloudwatch.Client, namespace, metric, dimName, dimValue string, lookback time.Duration) (float64, error) {
	now := time.Now().UTC()
	out, err := client.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  awssdk.String(namespace),
		MetricName: awssdk.String(metric),
		Dimensions: []cwTypes.Dimension{{Name: awssdk.String(dimName), Value: awssdk.String(dimValue)}},
		StartTime:  awssdk.Time(now.Add(-lookback)),
		EndTime:    awssdk.Time(now),
		Period:     awssdk.Int32(3600),
		Statistics: []cwTypes.Statistic{cwTypes.StatisticSum},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read %s/%s for %s: %w", namespace, metric, dimValue, err)
	}

	var total float64
	for _, point := range out.Datapoints {
		if point.Sum != nil {
			total += *point.Sum
		}
	}
	return total, nil
}

func checkEC2HighCPU(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	cw := c.CloudWatch(region)

	var instances []ec2Types.Instance
	if err := forEachInstance(ctx, c.EC2(region), "running", func(instance ec2Types.Instance) {
		instances = append(instances, instance)
	}); err != nil {
		return nil, err
	}

	var findings []entity.Finding
	for _, instance := range instances {
		id := deref(instance.InstanceId)
		avg, ok, err := metricAverage(ctx, cw, "AWS/EC2", "CPUUtilization", "InstanceId", id, cpuLookback)
		if err != nil {
			return nil, err
		}
		if ok && avg > ec2HighCPU {
			findings = append(findings, entity.Finding{
				IsHighRisk:   true,
				Evidence:     fmt.Sprintf("instance %s (%s) averaged %.1f%% CPU over 14 days", id, instance.InstanceType, avg),
				ResourceTags: tagMap(instance.Tags),
			})
		}
	}
	return findings, nil
}

func checkRDSHighCPU(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	cw := c.CloudWatch(region)
	client := c.RDS(region)

	var findings []entity.Finding
	paginator := rds.NewDescribeDBInstancesPaginator(client, &rds.DescribeDBInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe DB instances: %w", err)
		}
		for _, db := range page.DBInstances {
			id := deref(db.DBInstanceIdentifier)
			avg, ok, err := metricAverage(ctx, cw, "AWS/RDS", "CPUUtilization", "DBInstanceIdentifier", id, cpuLookback)
			if err != nil {
				return nil, err
			}
			if ok && avg > rdsHighCPU {
				findings = append(findings, entity.Finding{
					IsHighRisk: true,
					Evidence:   fmt.Sprintf("DB instance %s averaged %.1f%% CPU over 14 days", id, avg),
				})
			}
		}
	}
	return findings, nil
}

func checkGP2Volumes(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	client := c.EC2(region)

	var findings []entity.Finding
	paginator := ec2.NewDescribeVolumesPaginator(client, &ec2.DescribeVolumesInput{
		Filters: []ec2Types.Filter{{Name: strPtr("volume-type"), Values: []string{"gp2"}}},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe volumes: %w", err)
		}
		for _, volume := range page.Volumes {
			size := derefInt32(volume.Size)
			saving := float64(size) * (gp2MonthlyUSDPerGiB - gp3MonthlyUSDPerGiB)
			findings = append(findings, entity.Finding{
				Evidence:     fmt.Sprintf("volume %s (%d GiB gp2) can migrate to gp3", deref(volume.VolumeId), size),
				CostImpact:   float64Ptr(saving),
				ResourceTags: tagMap(volume.Tags),
			})
		}
	}
	return findings, nil
}

func checkPreviousGenerationInstances(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	var findings []entity.Finding
	err := forEachInstance(ctx, c.EC2(region), "running", func(instance ec2Types.Instance) {
		instanceType := string(instance.InstanceType)
		for prefix, successor := range previousGenPrefixes {
			if strings.HasPrefix(instanceType, prefix) {
				findings = append(findings, entity.Finding{
					Evidence:     fmt.Sprintf("instance %s runs previous generation %s, consider %s", deref(instance.InstanceId), instanceType, successor),
					ResourceTags: tagMap(instance.Tags),
				})
				return
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return findings, nil
}

func checkLambdaHighErrorRate(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	cw := c.CloudWatch(region)
	client := c.Lambda(region)

	var findings []entity.Finding
	paginator := lambda.NewListFunctionsPaginator(client, &lambda.ListFunctionsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list functions: %w", err)
		}
		for _, fn := range page.Functions {
			name := deref(fn.FunctionName)
			invocations, err := metricSum(ctx, cw, "AWS/Lambda", "Invocations", "FunctionName", name, errorLookback)
			if err != nil {
				return nil, err
			}
			if invocations < lambdaMinInvokes {
				continue
			}
			errs, err := metricSum(ctx, cw, "AWS/Lambda", "Errors", "FunctionName", name, errorLookback)
			if err != nil {
				return nil, err
			}
			if rate := errs / invocations; rate > lambdaErrorRate {
				findings = append(findings, entity.Finding{
					IsHighRisk: true,
					Evidence:   fmt.Sprintf("function %s failed %.1f%% of %.0f invocations over 7 days", name, rate*100, invocations),
				})
			}
		}
	}
	return findings, nil
}
