package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
	"github.com/diillson/aws-pillar-scanner-go/internal/domain/repository"
)

// DescribeRegionsAPI is the subset of the EC2 client used to list enabled
// regions.
type DescribeRegionsAPI interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// RegionRepositoryImpl implementa o RegionRepository.
type RegionRepositoryImpl struct {
	defaultRegions []string
	queryRegion    string
	// newClient permite injetar um cliente fake nos testes; em produção
	// cada conta ganha seu próprio cliente a partir das credenciais.
	newClient func(entity.Credentials) DescribeRegionsAPI
}

// NewRegionRepository cria uma nova implementação do RegionRepository.
func NewRegionRepository(defaultRegions []string) *RegionRepositoryImpl {
	r := &RegionRepositoryImpl{
		defaultRegions: defaultRegions,
		queryRegion:    "us-east-1",
	}
	r.newClient = func(creds entity.Credentials) DescribeRegionsAPI {
		return ec2.NewFromConfig(ConfigForCredentials(creds, r.queryRegion))
	}
	return r
}

// WithClientFactory troca a fábrica de clientes (usado em testes).
func (r *RegionRepositoryImpl) WithClientFactory(f func(entity.Credentials) DescribeRegionsAPI) *RegionRepositoryImpl {
	r.newClient = f
	return r
}

// ResolveRegions retorna as regiões habilitadas da conta autenticada. Se a
// chamada falhar, cai para a lista padrão configurada: cobertura parcial é
// preferível a abortar o scan inteiro.
func (r *RegionRepositoryImpl) ResolveRegions(ctx context.Context, creds entity.Credentials, allowList []string) ([]string, error) {
	client := r.newClient(creds)

	enabled := r.defaultRegions
	out, err := client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: awssdk.Bool(false),
	})
	if err == nil {
		enabled = make([]string, 0, len(out.Regions))
		for _, region := range out.Regions {
			enabled = append(enabled, awssdk.ToString(region.RegionName))
		}
	}

	return intersectRegions(enabled, allowList), nil
}

// intersectRegions devolve enabled ∩ allowList preservando a ordem de
// enabled. Allow-list vazia significa "todas as habilitadas".
func intersectRegions(enabled, allowList []string) []string {
	if len(allowList) == 0 {
		return enabled
	}

	allowed := make(map[string]struct{}, len(allowList))
	for _, region := range allowList {
		allowed[region] = struct{}{}
	}

	result := make([]string, 0, len(enabled))
	for _, region := range enabled {
		if _, ok := allowed[region]; ok {
			result = append(result, region)
		}
	}
	return result
}

var _ repository.RegionRepository = (*RegionRepositoryImpl)(nil)
