package checks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2Types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamTypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
)

const (
	accessKeyMaxAge   = 90 * 24 * time.Hour
	minPasswordLength = 14
)

func securityChecks() []Check {
	return []Check{
		{ID: "Security#IAMAccessKeyAge", Name: "IAM access keys older than 90 days", Pillar: entity.PillarSecurity, Scope: ScopeGlobal, Run: checkIAMAccessKeyAge},
		{ID: "Security#IAMUsersWithoutMFA", Name: "Console users without MFA", Pillar: entity.PillarSecurity, Scope: ScopeGlobal, Run: checkIAMUsersWithoutMFA},
		{ID: "Security#WeakPasswordPolicy", Name: "Weak or missing account password policy", Pillar: entity.PillarSecurity, Scope: ScopeGlobal, Run: checkPasswordPolicy},
		{ID: "Security#InlineWildcardPolicies", Name: "Inline user policies granting wildcard access", Pillar: entity.PillarSecurity, Scope: ScopeGlobal, Run: checkInlineWildcardPolicies},
		{ID: "Security#RootAccessKeys", Name: "Root account has active access keys", Pillar: entity.PillarSecurity, Scope: ScopeGlobal, Run: checkRootAccessKeys},
		{ID: "Security#S3PublicAccessBlock", Name: "Buckets without public access block", Pillar: entity.PillarSecurity, Scope: ScopeGlobal, Run: checkS3PublicAccessBlock},
		{ID: "Security#S3DefaultEncryption", Name: "Buckets without default encryption", Pillar: entity.PillarSecurity, Scope: ScopeGlobal, Run: checkS3DefaultEncryption},
		{ID: "Security#OpenSecurityGroups", Name: "Security groups open to the world", Pillar: entity.PillarSecurity, Scope: ScopeRegional, Run: checkOpenSecurityGroups},
		{ID: "Security#UnencryptedEBSVolumes", Name: "Unencrypted EBS volumes", Pillar: entity.PillarSecurity, Scope: ScopeRegional, Run: checkUnencryptedEBSVolumes},
		{ID: "Security#RDSPubliclyAccessible", Name: "Publicly accessible RDS instances", Pillar: entity.PillarSecurity, Scope: ScopeRegional, Run: checkRDSPubliclyAccessible},
		{ID: "Security#RDSStorageUnencrypted", Name: "RDS instances without storage encryption", Pillar: entity.PillarSecurity, Scope: ScopeRegional, Run: checkRDSStorageUnencrypted},
	}
}

// apiErrorCode extrai o código de erro da API, ou "" quando não for um erro
// de API.
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

func checkIAMAccessKeyAge(ctx context.Context, c *Clients, _ string) ([]entity.Finding, error) {
	client := c.IAM()
	cutoff := time.Now().Add(-accessKeyMaxAge)

	var findings []entity.Finding
	users := iam.NewListUsersPaginator(client, &iam.ListUsersInput{})
	for users.HasMorePages() {
		page, err := users.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list IAM users: %w", err)
		}

		for _, user := range page.Users {
			keys := iam.NewListAccessKeysPaginator(client, &iam.ListAccessKeysInput{UserName: user.UserName})
			for keys.HasMorePages() {
				keyPage, err := keys.NextPage(ctx)
				if err != nil {
					return nil, fmt.Errorf("failed to list access keys for %s: %w", deref(user.UserName), err)
				}

				for _, key := range keyPage.AccessKeyMetadata {
					if key.Status != iamTypes.StatusTypeActive || key.CreateDate == nil {
						continue
					}
					if key.CreateDate.Before(cutoff) {
						age := int(time.Since(*key.CreateDate).Hours() / 24)
						findings = append(findings, entity.Finding{
							IsHighRisk: true,
							Evidence:   fmt.Sprintf("user %s key %s active for %d days", deref(user.UserName), deref(key.AccessKeyId), age),
						})
					}
				}
			}
		}
	}
	return findings, nil
}

func checkIAMUsersWithoutMFA(ctx context.Context, c *Clients, _ string) ([]entity.Finding, error) {
	client := c.IAM()

	var findings []entity.Finding
	users := iam.NewListUsersPaginator(client, &iam.ListUsersInput{})
	for users.HasMorePages() {
		page, err := users.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list IAM users: %w", err)
		}

		for _, user := range page.Users {
			// Sem login profile não há senha de console; MFA é irrelevante.
			_, err := client.GetLoginProfile(ctx, &iam.GetLoginProfileInput{UserName: user.UserName})
			if err != nil {
				if apiErrorCode(err) == "NoSuchEntity" {
					continue
				}
				return nil, fmt.Errorf("failed to read login profile for %s: %w", deref(user.UserName), err)
			}

			devices, err := client.ListMFADevices(ctx, &iam.ListMFADevicesInput{UserName: user.UserName})
			if err != nil {
				return nil, fmt.Errorf("failed to list MFA devices for %s: %w", deref(user.UserName), err)
			}
			if len(devices.MFADevices) == 0 {
				findings = append(findings, entity.Finding{
					IsHighRisk: true,
					Evidence:   fmt.Sprintf("user %s has console access without MFA", deref(user.UserName)),
				})
			}
		}
	}
	return findings, nil
}

func checkPasswordPolicy(ctx context.Context, c *Clients, _ string) ([]entity.Finding, error) {
	out, err := c.IAM().GetAccountPasswordPolicy(ctx, &iam.GetAccountPasswordPolicyInput{})
	if err != nil {
		if apiErrorCode(err) == "NoSuchEntity" {
			return []entity.Finding{{
				IsHighRisk: true,
				Evidence:   "no account password policy configured",
			}}, nil
		}
		return nil, fmt.Errorf("failed to read account password policy: %w", err)
	}

	policy := out.PasswordPolicy
	if policy == nil {
		return nil, nil
	}

	var findings []entity.Finding
	if derefInt32(policy.MinimumPasswordLength) < minPasswordLength {
		findings = append(findings, entity.Finding{
			Evidence: fmt.Sprintf("minimum password length is %d, below %d", derefInt32(policy.MinimumPasswordLength), minPasswordLength),
		})
	}
	if !policy.RequireSymbols || !policy.RequireNumbers {
		findings = append(findings, entity.Finding{
			Evidence: "password policy does not require both symbols and numbers",
		})
	}
	return findings, nil
}

func checkInlineWildcardPolicies(ctx context.Context, c *Clients, _ string) ([]entity.Finding, error) {
	client := c.IAM()

	var findings []entity.Finding
	users := iam.NewListUsersPaginator(client, &iam.ListUsersInput{})
	for users.HasMorePages() {
		page, err := users.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list IAM users: %w", err)
		}

		for _, user := range page.Users {
			policies := iam.NewListUserPoliciesPaginator(client, &iam.ListUserPoliciesInput{UserName: user.UserName})
			for policies.HasMorePages() {
				policyPage, err := policies.NextPage(ctx)
				if err != nil {
					return nil, fmt.Errorf("failed to list inline policies for %s: %w", deref(user.UserName), err)
				}

				for _, policyName := range policyPage.PolicyNames {
					out, err := client.GetUserPolicy(ctx, &iam.GetUserPolicyInput{
						UserName:   user.UserName,
						PolicyName: &policyName,
					})
					if err != nil {
						return nil, fmt.Errorf("failed to read inline policy %s of %s: %w", policyName, deref(user.UserName), err)
					}
					if policyGrantsWildcard(deref(out.PolicyDocument)) {
						findings = append(findings, entity.Finding{
							IsHighRisk: true,
							Evidence:   fmt.Sprintf("user %s inline policy %s grants wildcard action and resource", deref(user.UserName), policyName),
						})
					}
				}
			}
		}
	}
	return findings, nil
}

// policyGrantsWildcard detecta statements Allow com Action e Resource "*".
// O documento chega URL-encoded na API do IAM.
func policyGrantsWildcard(document string) bool {
	decoded, err := url.QueryUnescape(document)
	if err != nil {
		decoded = document
	}

	var policy struct {
		Statement []struct {
			Effect   string `json:"Effect"`
			Action   any    `json:"Action"`
			Resource any    `json:"Resource"`
		} `json:"Statement"`
	}
	if err := json.Unmarshal([]byte(decoded), &policy); err != nil {
		return false
	}

	for _, statement := range policy.Statement {
		if statement.Effect == "Allow" && hasWildcard(statement.Action) && hasWildcard(statement.Resource) {
			return true
		}
	}
	return false
}

func hasWildcard(value any) bool {
	switch v := value.(type) {
	case string:
		return v == "*"
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "*" {
				return true
			}
		}
	}
	return false
}

func checkRootAccessKeys(ctx context.Context, c *Clients, _ string) ([]entity.Finding, error) {
	out, err := c.IAM().GetAccountSummary(ctx, &iam.GetAccountSummaryInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to read account summary: %w", err)
	}

	if out.SummaryMap[string(iamTypes.SummaryKeyTypeAccountAccessKeysPresent)] > 0 {
		return []entity.Finding{{
			IsHighRisk: true,
			Evidence:   "root account has active access keys",
		}}, nil
	}
	return nil, nil
}

func checkS3PublicAccessBlock(ctx context.Context, c *Clients, _ string) ([]entity.Finding, error) {
	client := c.S3()
	buckets, err := client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	var findings []entity.Finding
	for _, bucket := range buckets.Buckets {
		out, err := client.GetPublicAccessBlock(ctx, &s3.GetPublicAccessBlockInput{Bucket: bucket.Name})
		if err != nil {
			if apiErrorCode(err) == "NoSuchPublicAccessBlockConfiguration" {
				findings = append(findings, entity.Finding{
					IsHighRisk: true,
					Evidence:   fmt.Sprintf("bucket %s has no public access block", deref(bucket.Name)),
				})
				continue
			}
			return nil, fmt.Errorf("failed to read public access block for %s: %w", deref(bucket.Name), err)
		}

		cfg := out.PublicAccessBlockConfiguration
		if cfg == nil {
			continue
		}
		if !derefBool(cfg.BlockPublicAcls) || !derefBool(cfg.BlockPublicPolicy) ||
			!derefBool(cfg.IgnorePublicAcls) || !derefBool(cfg.RestrictPublicBuckets) {
			findings = append(findings, entity.Finding{
				IsHighRisk: true,
				Evidence:   fmt.Sprintf("bucket %s has a partial public access block", deref(bucket.Name)),
			})
		}
	}
	return findings, nil
}

func checkS3DefaultEncryption(ctx context.Context, c *Clients, _ string) ([]entity.Finding, error) {
	client := c.S3()
	buckets, err := client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}

	var findings []entity.Finding
	for _, bucket := range buckets.Buckets {
		_, err := client.GetBucketEncryption(ctx, &s3.GetBucketEncryptionInput{Bucket: bucket.Name})
		if err != nil {
			if apiErrorCode(err) == "ServerSideEncryptionConfigurationNotFoundError" {
				findings = append(findings, entity.Finding{
					Evidence: fmt.Sprintf("bucket %s has no default encryption", deref(bucket.Name)),
				})
				continue
			}
			return nil, fmt.Errorf("failed to read encryption config for %s: %w", deref(bucket.Name), err)
		}
	}
	return findings, nil
}

func checkOpenSecurityGroups(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	client := c.EC2(region)

	var findings []entity.Finding
	paginator := ec2.NewDescribeSecurityGroupsPaginator(client, &ec2.DescribeSecurityGroupsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe security groups: %w", err)
		}

		for _, group := range page.SecurityGroups {
			for _, perm := range group.IpPermissions {
				if !permOpenToWorld(perm) {
					continue
				}
				findings = append(findings, entity.Finding{
					IsHighRisk:   true,
					Evidence:     fmt.Sprintf("%s (%s) allows %s from anywhere", deref(group.GroupId), deref(group.GroupName), portRange(perm)),
					ResourceTags: tagMap(group.Tags),
				})
				break
			}
		}
	}
	return findings, nil
}

// permOpenToWorld sinaliza regras 0.0.0.0/0 ou ::/0 em portas de
// administração (SSH/RDP) ou sem restrição de porta.
func permOpenToWorld(perm ec2Types.IpPermission) bool {
	open := false
	for _, r := range perm.IpRanges {
		if deref(r.CidrIp) == "0.0.0.0/0" {
			open = true
		}
	}
	for _, r := range perm.Ipv6Ranges {
		if deref(r.CidrIpv6) == "::/0" {
			open = true
		}
	}
	if !open {
		return false
	}

	if perm.FromPort == nil || perm.ToPort == nil {
		return true
	}
	from, to := *perm.FromPort, *perm.ToPort
	for _, port := range []int32{22, 3389} {
		if from <= port && port <= to {
			return true
		}
	}
	return false
}

func portRange(perm ec2Types.IpPermission) string {
	if perm.FromPort == nil || perm.ToPort == nil {
		return "all ports"
	}
	if *perm.FromPort == *perm.ToPort {
		return fmt.Sprintf("port %d", *perm.FromPort)
	}
	return fmt.Sprintf("ports %d-%d", *perm.FromPort, *perm.ToPort)
}

func checkUnencryptedEBSVolumes(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	client := c.EC2(region)

	var findings []entity.Finding
	paginator := ec2.NewDescribeVolumesPaginator(client, &ec2.DescribeVolumesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe volumes: %w", err)
		}

		for _, volume := range page.Volumes {
			if derefBool(volume.Encrypted) {
				continue
			}
			findings = append(findings, entity.Finding{
				IsHighRisk:   true,
				Evidence:     fmt.Sprintf("volume %s (%d GiB) is not encrypted", deref(volume.VolumeId), derefInt32(volume.Size)),
				ResourceTags: tagMap(volume.Tags),
			})
		}
	}
	return findings, nil
}

func checkRDSPubliclyAccessible(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	client := c.RDS(region)

	var findings []entity.Finding
	paginator := rds.NewDescribeDBInstancesPaginator(client, &rds.DescribeDBInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe DB instances: %w", err)
		}

		for _, db := range page.DBInstances {
			if !derefBool(db.PubliclyAccessible) {
				continue
			}
			findings = append(findings, entity.Finding{
				IsHighRisk: true,
				Evidence:   fmt.Sprintf("DB instance %s is publicly accessible", deref(db.DBInstanceIdentifier)),
			})
		}
	}
	return findings, nil
}

func checkRDSStorageUnencrypted(ctx context.Context, c *Clients, region string) ([]entity.Finding, error) {
	client := c.RDS(region)

	var findings []entity.Finding
	paginator := rds.NewDescribeDBInstancesPaginator(client, &rds.DescribeDBInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to describe DB instances: %w", err)
		}

		for _, db := range page.DBInstances {
			if derefBool(db.StorageEncrypted) {
				continue
			}
			findings = append(findings, entity.Finding{
				IsHighRisk: true,
				Evidence:   fmt.Sprintf("DB instance %s has unencrypted storage", deref(db.DBInstanceIdentifier)),
			})
		}
	}
	return findings, nil
}
