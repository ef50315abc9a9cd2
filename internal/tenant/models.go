package tenant

import "time"

// Record is a registered subscriber tenant. Secret is only set for tenants
// whose webhook deliveries carry the shared-secret or signature headers.
type Record struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	EndpointURL string    `json:"endpoint_url" db:"endpoint_url"`
	Secret      string    `json:"secret,omitempty" db:"secret"`
	Enabled     bool      `json:"enabled" db:"enabled"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
