package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/repository"
	"github.com/diillson/aws-pillar-scanner-go/internal/shared/types"
)

// PublishAPI is the subset of the SNS client used for escalation.
type PublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSNotifier implementa o Notifier com publicação best-effort: alertar
// nunca pode virar um segundo ponto de falha do scan.
type SNSNotifier struct {
	client   PublishAPI
	topicARN string
	console  types.ConsoleInterface
}

// NewSNSNotifier cria um novo SNSNotifier.
func NewSNSNotifier(client PublishAPI, topicARN string, console types.ConsoleInterface) repository.Notifier {
	return &SNSNotifier{client: client, topicARN: topicARN, console: console}
}

type notification struct {
	Severity  string    `json:"severity"`
	Scope     string    `json:"scope"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Notify publica uma notificação estruturada no tópico de alertas. Falha de
// publicação é registrada localmente e engolida.
func (n *SNSNotifier) Notify(ctx context.Context, severity, scope, message string) {
	if n.topicARN == "" {
		n.console.LogWarning("no alert topic configured, dropping %s notification for %s", severity, scope)
		return
	}

	body, err := json.Marshal(notification{
		Severity:  severity,
		Scope:     scope,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		n.console.LogWarning("failed to encode notification for %s: %s", scope, err)
		return
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(n.topicARN),
		Subject:  awssdk.String(fmt.Sprintf("[pillar-scanner] %s: %s", severity, scope)),
		Message:  awssdk.String(string(body)),
	})
	if err != nil {
		n.console.LogWarning("failed to publish %s notification for %s: %s", severity, scope, err)
	}
}
