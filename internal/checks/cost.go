package checks

import (
	"context"
	"fmt"
	"strconv"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/budgets"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	ceTypes "github.com/aws/aws-sdk-go-v2/service/costexplorer/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2Types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
)

const (
	idleCPUThreshold      = 3.0
	natTransferUSDMinimum = 50.0
	logRetentionMinBytes  = int64(1 << 30)
)

func costChecks() []Check {
	return []Check{
		{ID: "Cost#StoppedEC2Instances", Name: "Stopped instances still holding storage", Pillar: entity.PillarCost, Scope: ScopeRegional, Run: checkStoppedEC2Instances},
		{ID: "Cost#UnattachedEBSVolumes", Name: "Unattached EBS volumes", Pillar: entity.PillarCost, Scope: ScopeRegional, Run: checkUnattachedEBSVolumes},
		{ID: "Cost#UnassociatedEIPs", Name: "Unassociated Elastic IPs", Pillar: entity.PillarCost, Scope: ScopeRegional, Run: checkUnassociatedEIPs},
		{ID: "Cost#IdleLoadBalancers", Name: "Load balancers without registered targets", Pillar: entity.PillarCost, Scope: ScopeRegional, Run: checkIdleLoadBalancers},
		{ID: "Cost#UnusedVpcEndpoints", Name: "Interface VPC endpoints without network interfaces", Pillar: entity.PillarCost, Scope: ScopeRegional, Run: checkUnusedVpcEndpoints},
		{ID: "Cost#IdleEC2Instances", Name: "Running instances with near-zero CPU", Pillar: entity.PillarCost, Scope: ScopeRegional, Run: checkIdleEC2Instances},
		{ID: "Cost#UntaggedResources", Name: "Resources without any tags", Pillar: entity.PillarCost, Scope: ScopeRegional, Run: checkUntaggedResources},
		{ID: "Cost#LogGroupsWithoutRetention", Name: "Log groups retaining data forever", Pillar: entity.PillarCost, Scope: ScopeRegional, Run: checkLogGroupsWithoutRetention},
		{ID: "Cost#BudgetExceeded", Name: "Budgets over their limit", Pillar: entity.PillarCost, Scope: ScopeGlobal, Run: checkBudgetExceeded},
		{ID: "Cost#NATGatewayDataTransfer", Name: "Heavy NAT gateway data processing", Pillar: entity.PillarCost, Scope: ScopeGlobal, Run: checkNATGatewayDataTransfer},
	}
}

func checkStoppedEC2Instances(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	var findings []entity.Finding
	err := forEachInstance(ctx, c.EC2(region), "stopped", func(instance ec2Types.Instance) {
		findings = append(findings, entity.Finding{
			Evidence:     fmt.Sprintf("instance %s (%s) is stopped but still billed for attached storage", deref(instance.InstanceId), instance.InstanceType),
			ResourceTags: tagMap(instance.Tags),
		})
	})
	if err != nil {
		return nil, err
	}
	return findings, nil
}

func checkUnattachedEBSVolumes(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	client := c.EC2(region)

	var findings []entity.Finding
	paginator := ec2.NewDescribeVolumesPaginator(client, &ec2.DescribeVolumesInput{
		Filters: []ec2Types.Filter{{Name: strPtr("status"), Values: []string{"available"}}},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe volumes: %w", err)
		}
		for _, volume := range page.Volumes {
			size := derefInt32(volume.Size)
			perGiB := gp3MonthlyUSDPerGiB
			if volume.VolumeType == ec2Types.VolumeTypeGp2 {
				perGiB = gp2MonthlyUSDPerGiB
			}
			findings = append(findings, entity.Finding{
				Evidence:     fmt.Sprintf("volume %s (%d GiB %s) is not attached to anything", deref(volume.VolumeId), size, volume.VolumeType),
				CostImpact:   float64Ptr(float64(size) * perGiB),
				ResourceTags: tagMap(volume.Tags),
			})
		}
	}
	return findings, nil
}

func checkUnassociatedEIPs(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	out, err := c.EC2(region).DescribeAddresses(ctx, &ec2.DescribeAddressesInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to describe addresses: %w", err)
	}

	var findings []entity.Finding
	for _, address := range out.Addresses {
		if address.AssociationId != nil {
			continue
		}
		findings = append(findings, entity.Finding{
			Evidence:     fmt.Sprintf("Elastic IP %s is allocated but not associated", deref(address.PublicIp)),
			CostImpact:   float64Ptr(eipIdleMonthlyUSD),
			ResourceTags: tagMap(address.Tags),
		})
	}
	return findings, nil
}

func checkIdleLoadBalancers(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	client := c.ELBV2(region)

	var findings []entity.Finding
	lbs := elbv2.NewDescribeLoadBalancersPaginator(client, &elbv2.DescribeLoadBalancersInput{})
	for lbs.HasMorePages() {
		page, err := lbs.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe load balancers: %w", err)
		}

		for _, lb := range page.LoadBalancers {
			groups, err := client.DescribeTargetGroups(ctx, &elbv2.DescribeTargetGroupsInput{
				LoadBalancerArn: lb.LoadBalancerArn,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to describe target groups for %s: %w", deref(lb.LoadBalancerName), err)
			}

			registered := 0
			for _, group := range groups.TargetGroups {
				health, err := client.DescribeTargetHealth(ctx, &elbv2.DescribeTargetHealthInput{
					TargetGroupArn: group.TargetGroupArn,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to describe target health for %s: %w", deref(group.TargetGroupName), err)
				}
				registered += len(health.TargetHealthDescriptions)
			}
			if registered == 0 {
				findings = append(findings, entity.Finding{
					Evidence:   fmt.Sprintf("load balancer %s has no registered targets", deref(lb.LoadBalancerName)),
					CostImpact: float64Ptr(albMonthlyUSD),
				})
			}
		}
	}
	return findings, nil
}

func checkUnusedVpcEndpoints(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	client := c.EC2(region)

	var findings []entity.Finding
	paginator := ec2.NewDescribeVpcEndpointsPaginator(client, &ec2.DescribeVpcEndpointsInput{
		Filters: []ec2Types.Filter{
			{Name: strPtr("vpc-endpoint-type"), Values: []string{"Interface"}},
			{Name: strPtr("vpc-endpoint-state"), Values: []string{"available"}},
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe VPC endpoints: %w", err)
		}
		for _, endpoint := range page.VpcEndpoints {
			if len(endpoint.NetworkInterfaceIds) > 0 {
				continue
			}
			findings = append(findings, entity.Finding{
				Evidence:     fmt.Sprintf("interface endpoint %s (%s) has no network interfaces", deref(endpoint.VpcEndpointId), deref(endpoint.ServiceName)),
				CostImpact:   float64Ptr(vpcEndpointMonthlyUSD),
				ResourceTags: tagMap(endpoint.Tags),
			})
		}
	}
	return findings, nil
}

func checkIdleEC2Instances(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
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
		avg, ok, err := metricAverage(ctx, cw, "AWS/EC2", "CPUUtilization", "InstanceId", id, errorLookback)
		if err != nil {
			return nil, err
		}
		if !ok || avg >= idleCPUThreshold {
			continue
		}
		instanceType := string(instance.InstanceType)
		findings = append(findings, entity.Finding{
			Evidence:     fmt.Sprintf("instance %s (%s) averaged %.1f%% CPU over 7 days", id, instanceType, avg),
			CostImpact:   float64Ptr(instanceMonthlyUSD(instanceType)),
			ResourceTags: tagMap(instance.Tags),
		})
	}
	return findings, nil
}

func checkUntaggedResources(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	client := c.EC2(region)

	var findings []entity.Finding
	err := forEachInstance(ctx, client, "running", func(instance ec2Types.Instance) {
		if len(instance.Tags) > 0 {
			return
		}
		findings = append(findings, entity.Finding{
			Evidence: fmt.Sprintf("instance %s has no tags, cost cannot be attributed", deref(instance.InstanceId)),
		})
	})
	if err != nil {
		return nil, err
	}

	volumes := ec2.NewDescribeVolumesPaginator(client, &ec2.DescribeVolumesInput{})
	for volumes.HasMorePages() {
		page, err := volumes.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe volumes: %w", err)
		}
		for _, volume := range page.Volumes {
			if len(volume.Tags) > 0 {
				continue
			}
			findings = append(findings, entity.Finding{
				Evidence: fmt.Sprintf("volume %s has no tags, cost cannot be attributed", deref(volume.VolumeId)),
			})
		}
	}

	databases := rds.NewDescribeDBInstancesPaginator(c.RDS(region), &rds.DescribeDBInstancesInput{})
	for databases.HasMorePages() {
		page, err := databases.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe DB instances: %w", err)
		}
		for _, db := range page.DBInstances {
			if len(db.TagList) > 0 {
				continue
			}
			findings = append(findings, entity.Finding{
				Evidence: fmt.Sprintf("DB instance %s has no tags, cost cannot be attributed", deref(db.DBInstanceIdentifier)),
			})
		}
	}

	lambdaClient := c.Lambda(region)
	functions := lambda.NewListFunctionsPaginator(lambdaClient, &lambda.ListFunctionsInput{})
	for functions.HasMorePages() {
		page, err := functions.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list functions: %w", err)
		}
		for _, function := range page.Functions {
			tags, err := lambdaClient.ListTags(ctx, &lambda.ListTagsInput{Resource: function.FunctionArn})
			if err != nil {
				return nil, fmt.Errorf("failed to list tags for %s: %w", deref(function.FunctionName), err)
			}
			if len(tags.Tags) > 0 {
				continue
			}
			findings = append(findings, entity.Finding{
				Evidence: fmt.Sprintf("function %s has no tags, cost cannot be attributed", deref(function.FunctionName)),
			})
		}
	}
	return findings, nil
}

func checkLogGroupsWithoutRetention(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	client := c.CloudWatchLogs(region)

	var findings []entity.Finding
	paginator := cloudwatchlogs.NewDescribeLogGroupsPaginator(client, &cloudwatchlogs.DescribeLogGroupsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe log groups: %w", err)
		}
		for _, group := range page.LogGroups {
			if group.RetentionInDays != nil {
				continue
			}
			stored := derefInt64(group.StoredBytes)
			if stored < logRetentionMinBytes {
				continue
			}
			storedGiB := float64(stored) / float64(1<<30)
			findings = append(findings, entity.Finding{
				Evidence:   fmt.Sprintf("log group %s retains %.1f GiB forever", deref(group.LogGroupName), storedGiB),
				CostImpact: float64Ptr(storedGiB * logIngestedUSDPerGiB),
			})
		}
	}
	return findings, nil
}

func checkBudgetExceeded(ctx context.Context, c *Clients, _ string) ([]entity.Finding, error) {
	client := c.Budgets()

	var findings []entity.Finding
	paginator := budgets.NewDescribeBudgetsPaginator(client, &budgets.DescribeBudgetsInput{
		AccountId: awssdk.String(c.AccountID()),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe budgets: %w", err)
		}

		for _, budget := range page.Budgets {
			if budget.BudgetLimit == nil || budget.CalculatedSpend == nil || budget.CalculatedSpend.ActualSpend == nil {
				continue
			}
			limit, err := strconv.ParseFloat(deref(budget.BudgetLimit.Amount), 64)
			if err != nil || limit <= 0 {
				continue
			}
			actual, err := strconv.ParseFloat(deref(budget.CalculatedSpend.ActualSpend.Amount), 64)
			if err != nil {
				continue
			}
			if actual > limit {
				findings = append(findings, entity.Finding{
					IsHighRisk: true,
					Evidence:   fmt.Sprintf("budget %s spent %.2f of a %.2f limit", deref(budget.BudgetName), actual, limit),
					CostImpact: float64Ptr(actual - limit),
				})
			}
		}
	}
	return findings, nil
}

func checkNATGatewayDataTransfer(ctx context.Context, c *Clients, _ string) ([]entity.Finding, error) {
	now := time.Now().UTC()
	out, err := c.CostExplorer().GetCostAndUsage(ctx, &costexplorer.GetCostAndUsageInput{
		TimePeriod: &ceTypes.DateInterval{
			Start: awssdk.String(now.AddDate(0, 0, -30).Format("2006-01-02")),
			End:   awssdk.String(now.Format("2006-01-02")),
		},
		Granularity: ceTypes.GranularityMonthly,
		Metrics:     []string{"UnblendedCost"},
		Filter: &ceTypes.Expression{
			Dimensions: &ceTypes.DimensionValues{
				Key:    ceTypes.DimensionUsageTypeGroup,
				Values: []string{"EC2: NAT Gateway - Data Processed"},
			},
		},
		GroupBy: []ceTypes.GroupDefinition{
			{Type: ceTypes.GroupDefinitionTypeDimension, Key: awssdk.String("REGION")},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query NAT gateway cost: %w", err)
	}

	var findings []entity.Finding
	for _, result := range out.ResultsByTime {
		for _, group := range result.Groups {
			metric, ok := group.Metrics["UnblendedCost"]
			if !ok {
				continue
			}
			amount, err := strconv.ParseFloat(deref(metric.Amount), 64)
			if err != nil || amount < natTransferUSDMinimum {
				continue
			}
			groupRegion := "unknown"
			if len(group.Keys) > 0 {
				groupRegion = group.Keys[0]
			}
			findings = append(findings, entity.Finding{
				Evidence:   fmt.Sprintf("NAT gateways in %s processed %.2f USD of data in 30 days, consider VPC endpoints", groupRegion, amount),
				CostImpact: float64Ptr(amount),
			})
		}
	}
	return findings, nil
}
