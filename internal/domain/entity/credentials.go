package entity

import "time"

// Credentials are short-lived, account-scoped credentials obtained through
// cross-account role assumption. They are owned by a single scan unit and
// discarded when it ends; two concurrent units never share one value.
type Credentials struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Expiry          time.Time
}

// Expired reporta se as credenciais já passaram do prazo de validade.
func (c Credentials) Expired(now time.Time) bool {
	return !c.Expiry.IsZero() && now.After(c.Expiry)
}
