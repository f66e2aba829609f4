package dynamodb

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
	"github.com/diillson/aws-pillar-scanner-go/internal/domain/repository"
	"github.com/diillson/aws-pillar-scanner-go/internal/shared/retry"
)

// Índices secundários usados pelas consultas por pilar e por run.
const (
	pillarTimeIndex = "pillar-timestamp-index"
	runTimeIndex    = "run-timestamp-index"
)

// API is the subset of the DynamoDB client the repository uses.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// FindingsRepositoryImpl implementa o FindingsRepository sobre uma tabela
// com chave (account_id, check_id).
//
// A chave primária omite run_id de propósito: cada run sobrescreve a linha
// do mesmo check na mesma conta, mantendo o armazenamento limitado
// independente do número de runs. Histórico por run só existe no que o
// índice run-timestamp ainda enxerga como "última escrita".
type FindingsRepositoryImpl struct {
	client API
	table  string
	policy retry.Policy
}

// NewFindingsRepository cria uma nova implementação do FindingsRepository.
func NewFindingsRepository(client API, table string, maxRetries int) repository.FindingsRepository {
	policy := retry.DefaultPolicy()
	if maxRetries > 0 {
		policy.MaxAttempts = maxRetries
	}
	return &FindingsRepositoryImpl{client: client, table: table, policy: policy}
}

// Upsert grava um finding com semântica last-writer-wins: um PutItem com a
// mesma chave substitui a linha inteira, sem merge.
func (r *FindingsRepositoryImpl) Upsert(ctx context.Context, finding entity.Finding) error {
	item, err := attributevalue.MarshalMap(finding)
	if err != nil {
		return fmt.Errorf("failed to marshal finding %s/%s: %w", finding.AccountID, finding.CheckID, err)
	}

	err = r.policy.Do(ctx, func() error {
		_, putErr := r.client.PutItem(ctx, &dynamodb.PutItemInput{
			TableName: awssdk.String(r.table),
			Item:      item,
		})
		return putErr
	}, retry.Retryable)
	if err != nil {
		return fmt.Errorf("failed to upsert finding %s/%s: %w", finding.AccountID, finding.CheckID, err)
	}
	return nil
}

// QueryByPillarAndTime retorna os findings correntes de um pilar dentro da
// janela de tempo.
func (r *FindingsRepositoryImpl) QueryByPillarAndTime(ctx context.Context, pillar entity.Pillar, from, to time.Time) ([]entity.Finding, error) {
	keyCond := expression.Key("pillar").Equal(expression.Value(string(pillar))).
		And(expression.Key("timestamp").Between(expression.Value(from.Unix()), expression.Value(to.Unix())))
	return r.queryIndex(ctx, pillarTimeIndex, keyCond)
}

// QueryByRunAndTime retorna o que um run específico produziu — apenas os
// findings que ainda são a última escrita das suas chaves (ver invariante
// de sobrescrita no tipo).
func (r *FindingsRepositoryImpl) QueryByRunAndTime(ctx context.Context, runID string, from, to time.Time) ([]entity.Finding, error) {
	keyCond := expression.Key("run_id").Equal(expression.Value(runID)).
		And(expression.Key("timestamp").Between(expression.Value(from.Unix()), expression.Value(to.Unix())))
	return r.queryIndex(ctx, runTimeIndex, keyCond)
}

func (r *FindingsRepositoryImpl) queryIndex(ctx context.Context, index string, keyCond expression.KeyConditionBuilder) ([]entity.Finding, error) {
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query expression for %s: %w", index, err)
	}

	paginator := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:                 awssdk.String(r.table),
		IndexName:                 awssdk.String(index),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var findings []entity.Finding
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", index, err)
		}

		var pageFindings []entity.Finding
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &pageFindings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal findings from %s: %w", index, err)
		}
		findings = append(findings, pageFindings...)
	}

	return findings, nil
}
