package entity

// AccountMetadata describes one organization member account as returned by
// account discovery.
type AccountMetadata struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Status string `json:"status"`
}

// Active reporta se a conta está num estado escaneável.
func (a AccountMetadata) Active() bool {
	return a.Status == "ACTIVE"
}

// DiscoverySummary is the outcome of one discovery-triggered fan-out.
type DiscoverySummary struct {
	RunID          string `json:"run_id"`
	Discovered     int    `json:"accounts_discovered"`
	Active         int    `json:"accounts_active"`
	Dispatched     int    `json:"accounts_dispatched"`
	DispatchFailed int    `json:"accounts_dispatch_failed"`
}
