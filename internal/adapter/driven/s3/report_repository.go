package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3Types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
	"github.com/diillson/aws-pillar-scanner-go/internal/domain/repository"
	"github.com/diillson/aws-pillar-scanner-go/internal/shared/retry"
)

// PutObjectAPI is the subset of the S3 client used for report upload.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ReportRepositoryImpl implementa o ReportRepository sobre object storage
// com criptografia em repouso.
type ReportRepositoryImpl struct {
	client PutObjectAPI
	bucket string
	policy retry.Policy
	// now é injetável para fixar o sufixo de timestamp nos testes.
	now func() time.Time
}

// NewReportRepository cria uma nova implementação do ReportRepository.
func NewReportRepository(client PutObjectAPI, bucket string, maxRetries int) *ReportRepositoryImpl {
	policy := retry.DefaultPolicy()
	if maxRetries > 0 {
		policy.MaxAttempts = maxRetries
	}
	return &ReportRepositoryImpl{
		client: client,
		bucket: bucket,
		policy: policy,
		now:    time.Now,
	}
}

// ExportReport agrega os findings da conta num documento imutável e o envia
// para o bucket sob uma chave determinística com sufixo de timestamp — cada
// export repetido produz uma chave nova, nunca sobrescreve.
func (r *ReportRepositoryImpl) ExportReport(ctx context.Context, accountID, accountName string, findings []entity.Finding, runID string) (string, error) {
	now := r.now().UTC()
	report := entity.NewReport(accountID, accountName, runID, findings, now)

	body, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report for account %s: %w", accountID, err)
	}

	key := fmt.Sprintf("reports/%s/%s/%s.json", runID, accountID, now.Format("20060102T150405Z"))

	err = r.policy.Do(ctx, func() error {
		_, putErr := r.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:               awssdk.String(r.bucket),
			Key:                  awssdk.String(key),
			Body:                 bytes.NewReader(body),
			ContentType:          awssdk.String("application/json"),
			ServerSideEncryption: s3Types.ServerSideEncryptionAes256,
		})
		return putErr
	}, retry.Retryable)
	if err != nil {
		return "", fmt.Errorf("failed to upload report for account %s: %w", accountID, err)
	}

	return key, nil
}

var _ repository.ReportRepository = (*ReportRepositoryImpl)(nil)
