package checks

// Tabela estática de preços on-demand (us-east-1, USD/hora) usada só para
// estimar ordem de grandeza de CostImpact. Não substitui a Pricing API.
var instanceHourlyUSD = map[string]float64{
	"t2.micro":    0.0116,
	"t2.small":    0.023,
	"t2.medium":   0.0464,
	"t3.micro":    0.0104,
	"t3.small":    0.0208,
	"t3.medium":   0.0416,
	"t3.large":    0.0832,
	"m5.large":    0.096,
	"m5.xlarge":   0.192,
	"m5.2xlarge":  0.384,
	"m6i.large":   0.096,
	"m6i.xlarge":  0.192,
	"c5.large":    0.085,
	"c5.xlarge":   0.17,
	"c6i.large":   0.085,
	"r5.large":    0.126,
	"r5.xlarge":   0.252,
	"r6i.large":   0.126,
}

const (
	defaultInstanceHourlyUSD = 0.10
	hoursPerMonth            = 730

	gp2MonthlyUSDPerGiB      = 0.10
	gp3MonthlyUSDPerGiB      = 0.08
	snapshotMonthlyUSDPerGiB = 0.05
	eipIdleMonthlyUSD        = 3.6
	albMonthlyUSD            = 16.43
	vpcEndpointMonthlyUSD    = 7.30
	logIngestedUSDPerGiB     = 0.03
)

// instanceMonthlyUSD estima o custo mensal on-demand de um tipo de instância.
func instanceMonthlyUSD(instanceType string) float64 {
	hourly, ok := instanceHourlyUSD[instanceType]
	if !ok {
		hourly = defaultInstanceHourlyUSD
	}
	return hourly * hoursPerMonth
}
