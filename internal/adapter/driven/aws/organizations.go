package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/organizations"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
	"github.com/diillson/aws-pillar-scanner-go/internal/domain/repository"
	"github.com/diillson/aws-pillar-scanner-go/internal/shared/retry"
)

// AccountRepositoryImpl implementa o AccountRepository via Organizations
// ListAccounts.
type AccountRepositoryImpl struct {
	client organizations.ListAccountsAPIClient
	policy retry.Policy
}

// NewAccountRepository cria uma nova implementação do AccountRepository.
func NewAccountRepository(client organizations.ListAccountsAPIClient, maxRetries int) repository.AccountRepository {
	policy := retry.DefaultPolicy()
	if maxRetries > 0 {
		policy.MaxAttempts = maxRetries
	}
	return &AccountRepositoryImpl{client: client, policy: policy}
}

// Discover pagina a listagem de contas da organização até o fim, re-tentando
// cada página individualmente em caso de throttling. O filtro por status fica
// com o chamador, que precisa contabilizar descobertas vs ativas.
func (r *AccountRepositoryImpl) Discover(ctx context.Context) ([]entity.AccountMetadata, error) {
	paginator := organizations.NewListAccountsPaginator(r.client, &organizations.ListAccountsInput{})

	var accounts []entity.AccountMetadata
	for paginator.HasMorePages() {
		var page *organizations.ListAccountsOutput
		err := r.policy.Do(ctx, func() error {
			var pageErr error
			page, pageErr = paginator.NextPage(ctx)
			return pageErr
		}, retry.Retryable)
		if err != nil {
			return nil, fmt.Errorf("failed to list organization accounts: %w", err)
		}

		for _, acct := range page.Accounts {
			accounts = append(accounts, entity.AccountMetadata{
				ID:     deref(acct.Id),
				Name:   deref(acct.Name),
				Email:  deref(acct.Email),
				Status: string(acct.Status),
			})
		}
	}

	return accounts, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
