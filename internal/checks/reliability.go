package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2Types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2Types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
)

const snapshotMaxAge = 35 * 24 * time.Hour

func reliabilityChecks() []Check {
	return []Check{
		{ID: "Reliability#EBSSnapshotFreshness", Name: "In-use volumes without recent snapshots", Pillar: entity.PillarReliability, Scope: ScopeRegional, Run: checkEBSSnapshotFreshness},
		{ID: "Reliability#RDSBackupRetention", Name: "RDS instances with backups disabled", Pillar: entity.PillarReliability, Scope: ScopeRegional, Run: checkRDSBackupRetention},
		{ID: "Reliability#RDSSingleAZ", Name: "RDS instances without Multi-AZ", Pillar: entity.PillarReliability, Scope: ScopeRegional, Run: checkRDSSingleAZ},
		{ID: "Reliability#UnhealthyTargets", Name: "Load balancers with no healthy targets", Pillar: entity.PillarReliability, Scope: ScopeRegional, Run: checkUnhealthyTargets},
		{ID: "Reliability#LambdaWithoutDLQ", Name: "Lambda functions without dead letter queues", Pillar: entity.PillarReliability, Scope: ScopeRegional, Run: checkLambdaWithoutDLQ},
		{ID: "Reliability#EC2DetailedMonitoring", Name: "Instances without detailed monitoring", Pillar: entity.PillarReliability, Scope: ScopeRegional, Run: checkEC2DetailedMonitoring},
	}
}

func checkEBSSnapshotFreshness(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	client := c.EC2(region)
	cutoff := time.Now().Add(-snapshotMaxAge)

	// Último snapshot por volume, só dos snapshots da própria conta.
	latest := make(map[string]time.Time)
	snapshots := ec2.NewDescribeSnapshotsPaginator(client, &ec2.DescribeSnapshotsInput{
		OwnerIds: []string{"self"},
	})
	for snapshots.HasMorePages() {
		page, err := snapshots.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe snapshots: %w", err)
		}
		for _, snap := range page.Snapshots {
			if snap.VolumeId == nil || snap.StartTime == nil {
				continue
			}
			if snap.StartTime.After(latest[*snap.VolumeId]) {
				latest[*snap.VolumeId] = *snap.StartTime
			}
		}
	}

	var findings []entity.Finding
	volumes := ec2.NewDescribeVolumesPaginator(client, &ec2.DescribeVolumesInput{
		Filters: []ec2Types.Filter{{Name: strPtr("status"), Values: []string{"in-use"}}},
	})
	for volumes.HasMorePages() {
		page, err := volumes.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe volumes: %w", err)
		}
		for _, volume := range page.Volumes {
			id := deref(volume.VolumeId)
			last, ok := latest[id]
			switch {
			case !ok:
				findings = append(findings, entity.Finding{
					Evidence:     fmt.Sprintf("volume %s has no snapshots", id),
					ResourceTags: tagMap(volume.Tags),
				})
			case last.Before(cutoff):
				findings = append(findings, entity.Finding{
					Evidence:     fmt.Sprintf("volume %s last snapshot was %s", id, last.Format("2006-01-02")),
					ResourceTags: tagMap(volume.Tags),
				})
			}
		}
	}
	return findings, nil
}

func checkRDSBackupRetention(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	client := c.RDS(region)

	var findings []entity.Finding
	paginator := rds.NewDescribeDBInstancesPaginator(client, &rds.DescribeDBInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe DB instances: %w", err)
		}
		for _, db := range page.DBInstances {
			if derefInt32(db.BackupRetentionPeriod) > 0 {
				continue
			}
			findings = append(findings, entity.Finding{
				IsHighRisk: true,
				Evidence:   fmt.Sprintf("DB instance %s has automated backups disabled", deref(db.DBInstanceIdentifier)),
			})
		}
	}
	return findings, nil
}

func checkRDSSingleAZ(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	client := c.RDS(region)

	var findings []entity.Finding
	paginator := rds.NewDescribeDBInstancesPaginator(client, &rds.DescribeDBInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe DB instances: %w", err)
		}
		for _, db := range page.DBInstances {
			if derefBool(db.MultiAZ) {
				continue
			}
			findings = append(findings, entity.Finding{
				Evidence: fmt.Sprintf("DB instance %s runs in a single availability zone", deref(db.DBInstanceIdentifier)),
			})
		}
	}
	return findings, nil
}

func checkUnhealthyTargets(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
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

			for _, group := range groups.TargetGroups {
				health, err := client.DescribeTargetHealth(ctx, &elbv2.DescribeTargetHealthInput{
					TargetGroupArn: group.TargetGroupArn,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to describe target health for %s: %w", deref(group.TargetGroupName), err)
				}

				// Grupo sem alvo algum é caso do check de custo, não daqui.
				if len(health.TargetHealthDescriptions) == 0 {
					continue
				}
				healthy := 0
				for _, target := range health.TargetHealthDescriptions {
					if target.TargetHealth != nil && target.TargetHealth.State == elbv2Types.TargetHealthStateEnumHealthy {
						healthy++
					}
				}
				if healthy == 0 {
					findings = append(findings, entity.Finding{
						IsHighRisk: true,
						Evidence:   fmt.Sprintf("load balancer %s target group %s has 0 healthy of %d targets", deref(lb.LoadBalancerName), deref(group.TargetGroupName), len(health.TargetHealthDescriptions)),
					})
				}
			}
		}
	}
	return findings, nil
}

func checkLambdaWithoutDLQ(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	client := c.Lambda(region)

	var findings []entity.Finding
	paginator := lambda.NewListFunctionsPaginator(client, &lambda.ListFunctionsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list functions: %w", err)
		}
		for _, fn := range page.Functions {
			if fn.DeadLetterConfig != nil && fn.DeadLetterConfig.TargetArn != nil {
				continue
			}
			findings = append(findings, entity.Finding{
				Evidence: fmt.Sprintf("function %s has no dead letter queue", deref(fn.FunctionName)),
			})
		}
	}
	return findings, nil
}

func checkEC2DetailedMonitoring(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	var findings []entity.Finding
	err := forEachInstance(ctx, c.EC2(region), "running", func(instance ec2Types.Instance) {
		if instance.Monitoring != nil && instance.Monitoring.State == ec2Types.MonitoringStateEnabled {
			return
		}
		findings = append(findings, entity.Finding{
			Evidence:     fmt.Sprintf("instance %s has detailed monitoring disabled", deref(instance.InstanceId)),
			ResourceTags: tagMap(instance.Tags),
		})
	})
	if err != nil {
		return nil, err
	}
	return findings, nil
}

// forEachInstance itera as instâncias num dado estado, página a página.
func forEachInstance(ctx context.Context, client *ec2.Client, state string, visit func(ec2Types.Instance)) error {
	paginator := ec2.NewDescribeInstancesPaginator(client, &ec2.DescribeInstancesInput{
		Filters: []ec2Types.Filter{{Name: strPtr("instance-state-name"), Values: []string{state}}},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to describe instances: %w", err)
		}
		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				visit(instance)
			}
		}
	}
	return nil
}

func strPtr(s string) *string {
	return &s
}
