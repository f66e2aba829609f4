package aws

import (
	"context"
	"encoding/json"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdaTypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
	"github.com/diillson/aws-pillar-scanner-go/internal/domain/repository"
	"github.com/diillson/aws-pillar-scanner-go/internal/shared/types"
)

// InvokeAPI is the subset of the Lambda client used for dispatch.
type InvokeAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// LambdaDispatcher implementa o Dispatcher com invocação assíncrona
// ("Event"): dispara e não espera. O aceite (202) vem do mecanismo de
// invocação, nunca do resultado do scan despachado.
type LambdaDispatcher struct {
	client       InvokeAPI
	functionName string
	dryRun       bool
	console      types.ConsoleInterface
}

// NewLambdaDispatcher cria um novo LambdaDispatcher.
func NewLambdaDispatcher(client InvokeAPI, functionName string, dryRun bool, console types.ConsoleInterface) repository.Dispatcher {
	return &LambdaDispatcher{
		client:       client,
		functionName: functionName,
		dryRun:       dryRun,
		console:      console,
	}
}

// Dispatch enfileira um scan unit para a conta informada.
func (d *LambdaDispatcher) Dispatch(ctx context.Context, account entity.AccountMetadata, runID string) error {
	payload, err := json.Marshal(entity.ScanRequest{
		AccountID:   account.ID,
		AccountName: account.Name,
		RunID:       runID,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal scan request for account %s: %w", account.ID, err)
	}

	if d.dryRun {
		d.console.LogInfo("[dry-run] would dispatch scan for account %s (%s)", account.ID, account.Name)
		return nil
	}

	out, err := d.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   awssdk.String(d.functionName),
		InvocationType: lambdaTypes.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		return fmt.Errorf("dispatch rejected for account %s: %w", account.ID, err)
	}

	// Invocação assíncrona aceita responde 202; qualquer outra coisa é
	// rejeição do mecanismo de despacho.
	if out.StatusCode != 202 {
		return fmt.Errorf("dispatch for account %s not accepted (status %d)", account.ID, out.StatusCode)
	}

	return nil
}
