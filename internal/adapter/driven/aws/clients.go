package aws

import (
	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
)

// ConfigForCredentials monta uma aws.Config regional a partir das
// credenciais de curta duração de um scan unit. Cada unidade constrói seus
// próprios clientes a partir daqui; nada é compartilhado entre contas.
func ConfigForCredentials(creds entity.Credentials, region string) awssdk.Config {
	return awssdk.Config{
		Region: region,
		Credentials: credentials.NewStaticCredentialsProvider(
			creds.AccessKeyID,
			creds.SecretAccessKey,
			creds.SessionToken,
		),
	}
}
