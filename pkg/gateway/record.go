package gateway

import (
	"time"

	"github.com/google/uuid"
)

// Base carries the columns every tenant-scoped table shares. Domain records
// embed it; that embedding is the only way to satisfy Record, so tenant
// scoped types cannot be persisted around the gateway by accident.
type Base struct {
	ID        uuid.UUID     `db:"id" json:"id"`
	TenantID  uuid.NullUUID `db:"tenant_id" json:"tenant_id"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

func (b *Base) base() *Base { return b }

// Record is a tenant-scoped row.
type Record interface {
	base() *Base
	// Table names the backing table.
	Table() string
	// Fields returns the writable columns other than the Base ones.
	Fields() map[string]any
}

// RecordPtr constrains PT to *T implementing Record so the gateway can
// allocate T for scanning and still call pointer methods.
type RecordPtr[T any] interface {
	*T
	Record
}

// BaseOf returns the shared columns of r.
func BaseOf(r Record) *Base {
	return r.base()
}
