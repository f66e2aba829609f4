package aws

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
	"github.com/diillson/aws-pillar-scanner-go/internal/domain/repository"
	"github.com/diillson/aws-pillar-scanner-go/internal/shared/retry"
	"github.com/diillson/aws-pillar-scanner-go/internal/shared/types"
)

// AssumeRoleAPI is the subset of the STS client the repository uses.
type AssumeRoleAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

var accountIDPattern = regexp.MustCompile(`^\d{12}$`)

// CredentialRepositoryImpl implementa o CredentialRepository via STS
// AssumeRole com external id.
type CredentialRepositoryImpl struct {
	client AssumeRoleAPI
	cfg    types.ScannerConfig
	policy retry.Policy
}

// NewCredentialRepository cria uma nova implementação do CredentialRepository.
func NewCredentialRepository(client AssumeRoleAPI, cfg types.ScannerConfig) repository.CredentialRepository {
	policy := retry.DefaultPolicy()
	if cfg.MaxRetries > 0 {
		policy.MaxAttempts = cfg.MaxRetries
	}
	return &CredentialRepositoryImpl{client: client, cfg: cfg, policy: policy}
}

// Assume troca a identidade do scanner por credenciais temporárias na conta
// alvo. Throttling é a única classe de erro re-tentada; qualquer outra falha
// vira um *types.AuthError terminal para a conta.
func (r *CredentialRepositoryImpl) Assume(ctx context.Context, accountID string) (entity.Credentials, error) {
	if !accountIDPattern.MatchString(accountID) {
		return entity.Credentials{}, fmt.Errorf("%w: %q", types.ErrInvalidAccountID, accountID)
	}

	input := &sts.AssumeRoleInput{
		RoleArn:         awssdk.String(fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, r.cfg.RoleName)),
		RoleSessionName: awssdk.String(fmt.Sprintf("pillar-scan-%s", accountID)),
		DurationSeconds: awssdk.Int32(int32(r.cfg.SessionDuration.Seconds())),
	}
	if r.cfg.ExternalID != "" {
		input.ExternalId = awssdk.String(r.cfg.ExternalID)
	}

	var out *sts.AssumeRoleOutput
	err := r.policy.Do(ctx, func() error {
		var callErr error
		out, callErr = r.client.AssumeRole(ctx, input)
		return callErr
	}, retry.Throttling)
	if err != nil {
		return entity.Credentials{}, &types.AuthError{
			AccountID: accountID,
			Code:      errorCode(err),
			Err:       err,
		}
	}

	creds := out.Credentials
	result := entity.Credentials{
		AccountID:       accountID,
		AccessKeyID:     awssdk.ToString(creds.AccessKeyId),
		SecretAccessKey: awssdk.ToString(creds.SecretAccessKey),
		SessionToken:    awssdk.ToString(creds.SessionToken),
	}
	if creds.Expiration != nil {
		result.Expiry = *creds.Expiration
	}
	return result, nil
}

// errorCode extrai o código de erro do provedor, quando houver.
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return "Unknown"
}
