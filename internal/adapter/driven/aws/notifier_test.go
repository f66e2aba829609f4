package aws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/repository"
	"github.com/diillson/aws-pillar-scanner-go/pkg/console"
)

type fakeSNS struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, in)
	return &sns.PublishOutput{}, f.err
}

func TestNotifyPublishesStructuredMessage(t *testing.T) {
	client := &fakeSNS{}
	n := NewSNSNotifier(client, "arn:aws:sns:us-east-1:123456789012:alerts", console.NewConsole())

	n.Notify(context.Background(), repository.SeverityCritical, "discovery", "cannot list accounts")

	require.Len(t, client.inputs, 1)
	in := client.inputs[0]
	assert.Contains(t, awssdk.ToString(in.Subject), "CRITICAL")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(awssdk.ToString(in.Message)), &body))
	assert.Equal(t, "discovery", body["scope"])
	assert.Equal(t, "cannot list accounts", body["message"])
}

func TestNotifySwallowsPublishFailure(t *testing.T) {
	client := &fakeSNS{err: errors.New("topic gone")}
	n := NewSNSNotifier(client, "arn:aws:sns:us-east-1:123456789012:alerts", console.NewConsole())

	assert.NotPanics(t, func() {
		n.Notify(context.Background(), repository.SeverityError, "account 123456789012", "export failed")
	})
}

func TestNotifyWithoutTopicIsNoop(t *testing.T) {
	client := &fakeSNS{}
	n := NewSNSNotifier(client, "", console.NewConsole())

	n.Notify(context.Background(), repository.SeverityError, "x", "y")
	assert.Empty(t, client.inputs)
}
