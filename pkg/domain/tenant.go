package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Tenant represents one customer organization and its data partition.
// Tenants are never hard-deleted; Deactivate flips IsActive.
type Tenant struct {
	ID           uuid.UUID      `db:"id"`
	Slug         string         `db:"slug"`
	Name         string         `db:"name"`
	ContactEmail string         `db:"contact_email"`
	IsActive     bool           `db:"is_active"`
	IsTrial      bool           `db:"is_trial"`
	Settings     TenantSettings `db:"settings"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// IsGuest reports whether the tenant is the provisioned demo tenant.
func (t *Tenant) IsGuest() bool {
	return t.Settings.IsGuestTenant
}

// TenantSettings holds the typed per-tenant feature flags.
// Extra carries tenant-specific flags that have no schema.
type TenantSettings struct {
	IsGuestTenant  bool              `json:"is_guest_tenant,omitempty"`
	MaxRecords     *int              `json:"max_records,omitempty"`
	ModelQuotas    map[string]int    `json:"model_quotas,omitempty"`
	AllowDataReset bool              `json:"allow_data_reset,omitempty"`
	Extra          map[string]string `json:"extra,omitempty"`
}

// QuotaFor returns the record cap for model, if any.
// A ModelQuotas entry wins over the tenant-wide MaxRecords.
func (s TenantSettings) QuotaFor(model string) (int, bool) {
	if q, ok := s.ModelQuotas[model]; ok {
		return q, true
	}
	if s.MaxRecords != nil {
		return *s.MaxRecords, true
	}
	return 0, false
}

// Value implements driver.Valuer so settings persist as a JSON document.
func (s TenantSettings) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (s *TenantSettings) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = TenantSettings{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("tenant settings: unsupported type %T", src)
	}
	if len(raw) == 0 {
		*s = TenantSettings{}
		return nil
	}
	var out TenantSettings
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("tenant settings: %w", err)
	}
	*s = out
	return nil
}
