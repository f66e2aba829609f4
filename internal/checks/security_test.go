package checks

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicyGrantsWildcard(t *testing.T) {
	adminPolicy := `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":"*","Resource":"*"}]}`
	listPolicy := `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":["s3:GetObject","*"],"Resource":["*"]}]}`
	scopedPolicy := `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":"s3:GetObject","Resource":"arn:aws:s3:::reports/*"}]}`
	denyPolicy := `{"Version":"2012-10-17","Statement":[{"Effect":"Deny","Action":"*","Resource":"*"}]}`

	assert.True(t, policyGrantsWildcard(adminPolicy))
	assert.True(t, policyGrantsWildcard(listPolicy))
	assert.False(t, policyGrantsWildcard(scopedPolicy))
	assert.False(t, policyGrantsWildcard(denyPolicy))
	assert.False(t, policyGrantsWildcard("not json"))
}

func TestPolicyGrantsWildcardDecodesURLEncodedDocuments(t *testing.T) {
	// GetUserPolicy devolve o documento URL-encoded.
	encoded := url.QueryEscape(`{"Statement":[{"Effect":"Allow","Action":"*","Resource":"*"}]}`)
	assert.True(t, policyGrantsWildcard(encoded))
}
