package checks

import (
	"sync"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/budgets"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	awsadapter "github.com/diillson/aws-pillar-scanner-go/internal/adapter/driven/aws"
	"github.com/diillson/aws-pillar-scanner-go/internal/domain/entity"
)

// homeRegion atende clientes de serviços globais (IAM, Budgets, Cost
// Explorer) e chamadas sem região explícita.
const homeRegion = "us-east-1"

// Clients agrupa os clientes AWS de um único scan unit, construídos sob
// demanda a partir das credenciais assumidas daquela conta. Nada aqui é
// compartilhado entre contas: cada unidade cria o seu bundle e o descarta
// no fim.
type Clients struct {
	creds entity.Credentials

	mu      sync.Mutex
	ec2     map[string]*ec2.Client
	rds     map[string]*rds.Client
	lambda  map[string]*lambda.Client
	elbv2   map[string]*elasticloadbalancingv2.Client
	cwlogs  map[string]*cloudwatchlogs.Client
	cw      map[string]*cloudwatch.Client
	iam     *iam.Client
	s3      *s3.Client
	budgets *budgets.Client
	ce      *costexplorer.Client
}

// NewClients cria um bundle de clientes para as credenciais informadas.
func NewClients(creds entity.Credentials) *Clients {
	return &Clients{
		creds:  creds,
		ec2:    make(map[string]*ec2.Client),
		rds:    make(map[string]*rds.Client),
		lambda: make(map[string]*lambda.Client),
		elbv2:  make(map[string]*elasticloadbalancingv2.Client),
		cwlogs: make(map[string]*cloudwatchlogs.Client),
		cw:     make(map[string]*cloudwatch.Client),
	}
}

// AccountID retorna a conta dona das credenciais do bundle.
func (c *Clients) AccountID() string {
	return c.creds.AccountID
}

func (c *Clients) config(region string) awssdk.Config {
	if region == "" || region == entity.GlobalRegion {
		region = homeRegion
	}
	return awsadapter.ConfigForCredentials(c.creds, region)
}

// EC2 retorna o cliente EC2 da região, criando-o na primeira chamada.
func (c *Clients) EC2(region string) *ec2.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.ec2[region]; ok {
		return client
	}
	client := ec2.NewFromConfig(c.config(region))
	c.ec2[region] = client
	return client
}

// RDS retorna o cliente RDS da região.
func (c *Clients) RDS(region string) *rds.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.rds[region]; ok {
		return client
	}
	client := rds.NewFromConfig(c.config(region))
	c.rds[region] = client
	return client
}

// Lambda retorna o cliente Lambda da região.
func (c *Clients) Lambda(region string) *lambda.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.lambda[region]; ok {
		return client
	}
	client := lambda.NewFromConfig(c.config(region))
	c.lambda[region] = client
	return client
}

// ELBV2 retorna o cliente Elastic Load Balancing v2 da região.
func (c *Clients) ELBV2(region string) *elasticloadbalancingv2.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.elbv2[region]; ok {
		return client
	}
	client := elasticloadbalancingv2.NewFromConfig(c.config(region))
	c.elbv2[region] = client
	return client
}

// CloudWatchLogs retorna o cliente CloudWatch Logs da região.
func (c *Clients) CloudWatchLogs(region string) *cloudwatchlogs.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.cwlogs[region]; ok {
		return client
	}
	client := cloudwatchlogs.NewFromConfig(c.config(region))
	c.cwlogs[region] = client
	return client
}

// CloudWatch retorna o cliente CloudWatch da região.
func (c *Clients) CloudWatch(region string) *cloudwatch.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.cw[region]; ok {
		return client
	}
	client := cloudwatch.NewFromConfig(c.config(region))
	c.cw[region] = client
	return client
}

// IAM retorna o cliente IAM (serviço global).
func (c *Clients) IAM() *iam.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.iam == nil {
		c.iam = iam.NewFromConfig(c.config(homeRegion))
	}
	return c.iam
}

// S3 retorna o cliente S3 (listagem de buckets é account-wide).
func (c *Clients) S3() *s3.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.s3 == nil {
		c.s3 = s3.NewFromConfig(c.config(homeRegion))
	}
	return c.s3
}

// Budgets retorna o cliente Budgets (serviço global em us-east-1).
func (c *Clients) Budgets() *budgets.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.budgets == nil {
		c.budgets = budgets.NewFromConfig(c.config(homeRegion))
	}
	return c.budgets
}

// CostExplorer retorna o cliente Cost Explorer (serviço global em us-east-1).
func (c *Clients) CostExplorer() *costexplorer.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ce == nil {
		c.ce = costexplorer.NewFromConfig(c.config(homeRegion))
	}
	return c.ce
}
