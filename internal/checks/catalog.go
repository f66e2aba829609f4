package checks

import (
	"context"

	ec2Types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
)

// Scope diz se um check roda uma vez por conta ou uma vez por região.
type Scope string

const (
	// ScopeGlobal roda uma única vez por conta, com region = entity.GlobalRegion.
	ScopeGlobal Scope = "global"
	// ScopeRegional roda uma vez para cada região habilitada da conta.
	ScopeRegional Scope = "regional"
)

// CheckFunc inspeciona um serviço e devolve zero ou mais findings. Cada
// finding retornado preenche apenas Evidence, IsHighRisk, CostImpact e
// ResourceTags; o engine carimba identidade (conta, check, região, run).
type CheckFunc func(ctx context.Context, c *Clients, region string) ([]entity.Finding, error)

// Check é uma entrada do catálogo fixo de verificações.
type Check struct {
	ID     string
	Name   string
	Pillar entity.Pillar
	Scope  Scope
	Run    CheckFunc
}

// Catalog retorna o catálogo completo de checks, em ordem de pilar. A lista
// é fixa por versão do binário: toda conta num run vê exatamente o mesmo
// conjunto.
func Catalog() []Check {
	var catalog []Check
	catalog = append(catalog, securityChecks()...)
	catalog = append(catalog, reliabilityChecks()...)
	catalog = append(catalog, performanceChecks()...)
	catalog = append(catalog, costChecks()...)
	catalog = append(catalog, sustainabilityChecks()...)
	return catalog
}

// tagMap converte as tags EC2 para o formato do finding.
func tagMap(tags []ec2Types.Tag) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(tags))
	for _, tag := range tags {
		if tag.Key != nil {
			out[*tag.Key] = deref(tag.Value)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool) bool {
	return b != nil && *b
}

func derefInt32(n *int32) int32 {
	if n == nil {
		return 0
	}
	return *n
}

func derefInt64(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}

func float64Ptr(v float64) *float64 {
	return &v
}
