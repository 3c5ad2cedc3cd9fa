package dataset

// Column names as published in the dataset.
const (
	ColBillingNPI    = "BILLING_PROVIDER_NPI_NUM"
	ColServicingNPI  = "SERVICING_PROVIDER_NPI_NUM"
	ColHCPCS         = "HCPCS_CODE"
	ColMonth         = "CLAIM_FROM_MONTH"
	ColBeneficiaries = "TOTAL_UNIQUE_BENEFICIARIES"
	ColClaims        = "TOTAL_CLAIMS"
	ColPaid          = "TOTAL_PAID"
)

// Claim is one aggregated spending row: one billing provider, servicing
// provider, procedure code, and month.
type Claim struct {
	BillingNPI    string
	ServicingNPI  string
	HCPCS         string
	Month         string // YYYY-MM
	Beneficiaries int64
	Claims        int64
	Paid          float64
}
