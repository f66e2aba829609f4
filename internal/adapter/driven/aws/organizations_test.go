package aws

import (
	"context"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	orgTypes "github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrganizations struct {
	pages []*organizations.ListAccountsOutput
	errs  []error
	calls int
}

func (f *fakeOrganizations) ListAccounts(_ context.Context, in *organizations.ListAccountsInput, _ ...func(*organizations.Options)) (*organizations.ListAccountsOutput, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		f.calls-- // a página falhou, a próxima chamada repete o mesmo índice
		err := f.errs[idx]
		f.errs[idx] = nil
		return nil, err
	}
	return f.pages[idx], nil
}

func orgAccount(id, name string, status orgTypes.AccountStatus) orgTypes.Account {
	return orgTypes.Account{
		Id:     awssdk.String(id),
		Name:   awssdk.String(name),
		Email:  awssdk.String(name + "@example.com"),
		Status: status,
	}
}

func TestDiscoverPaginatesToExhaustion(t *testing.T) {
	client := &fakeOrganizations{
		pages: []*organizations.ListAccountsOutput{
			{
				Accounts:  []orgTypes.Account{orgAccount("111111111111", "alpha", orgTypes.AccountStatusActive)},
				NextToken: awssdk.String("page-2"),
			},
			{
				Accounts: []orgTypes.Account{
					orgAccount("222222222222", "beta", orgTypes.AccountStatusSuspended),
					orgAccount("333333333333", "gamma", orgTypes.AccountStatusActive),
				},
			},
		},
	}

	repo := NewAccountRepository(client, 3)
	accounts, err := repo.Discover(context.Background())
	require.NoError(t, err)

	require.Len(t, accounts, 3)
	assert.Equal(t, "111111111111", accounts[0].ID)
	assert.Equal(t, "alpha", accounts[0].Name)
	assert.True(t, accounts[0].Active())
	assert.False(t, accounts[1].Active())
	assert.Equal(t, 2, client.calls)
}

func TestDiscoverRetriesThrottledPage(t *testing.T) {
	client := &fakeOrganizations{
		pages: []*organizations.ListAccountsOutput{
			{Accounts: []orgTypes.Account{orgAccount("111111111111", "alpha", orgTypes.AccountStatusActive)}},
		},
		errs: []error{&smithy.GenericAPIError{Code: "TooManyRequestsException"}},
	}

	repo := &AccountRepositoryImpl{client: client, policy: noSleep(3)}
	accounts, err := repo.Discover(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestDiscoverSurfacesFatalError(t *testing.T) {
	client := &fakeOrganizations{
		pages: []*organizations.ListAccountsOutput{nil},
		errs:  []error{&smithy.GenericAPIError{Code: "AccessDeniedException"}},
	}

	repo := &AccountRepositoryImpl{client: client, policy: noSleep(3)}
	_, err := repo.Discover(context.Background())
	assert.Error(t, err)
}
