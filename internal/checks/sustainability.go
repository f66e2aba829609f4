package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2Types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
)

const (
	snapshotStaleAge = 180 * 24 * time.Hour
	amiStaleAge      = 365 * 24 * time.Hour
	oversizedMinGiB  = int32(500)
)

func sustainabilityChecks() []Check {
	return []Check{
		{ID: "Sustainability#StaleSnapshots", Name: "Snapshots older than six months", Pillar: entity.PillarSustainability, Scope: ScopeRegional, Run: checkStaleSnapshots},
		{ID: "Sustainability#StaleAMIs", Name: "Images older than one year", Pillar: entity.PillarSustainability, Scope: ScopeRegional, Run: checkStaleAMIs},
		{ID: "Sustainability#OversizedIdleVolumes", Name: "Large detached volumes holding capacity", Pillar: entity.PillarSustainability, Scope: ScopeRegional, Run: checkOversizedIdleVolumes},
	}
}

func checkStaleSnapshots(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	client := c.EC2(region)
	cutoff := time.Now().Add(-snapshotStaleAge)

	var findings []entity.Finding
	paginator := ec2.NewDescribeSnapshotsPaginator(client, &ec2.DescribeSnapshotsInput{
		OwnerIds: []string{"self"},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe snapshots: %w", err)
		}
		for _, snap := range page.Snapshots {
			if snap.StartTime == nil || snap.StartTime.After(cutoff) {
				continue
			}
			size := derefInt32(snap.VolumeSize)
			findings = append(findings, entity.Finding{
				Evidence:     fmt.Sprintf("snapshot %s (%d GiB) created %s", deref(snap.SnapshotId), size, snap.StartTime.Format("2006-01-02")),
				CostImpact:   float64Ptr(float64(size) * snapshotMonthlyUSDPerGiB),
				ResourceTags: tagMap(snap.Tags),
			})
		}
	}
	return findings, nil
}

func checkStaleAMIs(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	out, err := c.EC2(region).DescribeImages(ctx, &ec2.DescribeImagesInput{
		Owners: []string{"self"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe images: %w", err)
	}

	cutoff := time.Now().Add(-amiStaleAge)
	var findings []entity.Finding
	for _, image := range out.Images {
		created, err := time.Parse(time.RFC3339, deref(image.CreationDate))
		if err != nil || created.After(cutoff) {
			continue
		}
		findings = append(findings, entity.Finding{
			Evidence:     fmt.Sprintf("image %s (%s) created %s", deref(image.ImageId), deref(image.Name), created.Format("2006-01-02")),
			ResourceTags: tagMap(image.Tags),
		})
	}
	return findings, nil
}

func checkOversizedIdleVolumes(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
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
			if size < oversizedMinGiB {
				continue
			}
			findings = append(findings, entity.Finding{
				Evidence:     fmt.Sprintf("detached volume %s holds %d GiB of provisioned capacity", deref(volume.VolumeId), size),
				ResourceTags: tagMap(volume.Tags),
			})
		}
	}
	return findings, nil
}
