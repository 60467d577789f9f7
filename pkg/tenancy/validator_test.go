package tenancy

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-tenant/pkg/domain"
)

func TestValidator_Authorize(t *testing.T) {
	f := newFixture()
	v := NewValidator(f.store)
	ctx := context.Background()

	staff := activeUser("staff")
	staff.IsStaff = true
	disabled := activeUser("disabled")
	disabled.IsActive = false
	f.store.join(disabled, f.acme, domain.RoleOwner, false, time.Now())

	tests := []struct {
		name    string
		user    *domain.User
		tenant  uuid.UUID
		want    Decision
		wantErr error
	}{
		{"superuser without rows", f.root, f.zeta.ID, Decision{domain.AuthoritySystem, domain.RoleOwner}, nil},
		{"member", f.alice, f.beta.ID, Decision{domain.AuthorityTenant, domain.RoleUser}, nil},
		{"non member", f.alice, f.zeta.ID, Decision{}, domain.ErrForbidden},
		{"staff alone grants nothing", staff, f.acme.ID, Decision{}, domain.ErrForbidden},
		{"inactive user", disabled, f.acme.ID, Decision{}, domain.ErrForbidden},
		{"no identity", nil, f.acme.ID, Decision{}, domain.ErrForbidden},
		{"no tenant", f.alice, uuid.Nil, Decision{}, domain.ErrNoTenant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := v.Authorize(ctx, tt.user, tt.tenant)
			if err != tt.wantErr {
				t.Fatalf("Authorize() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Authorize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestPermissions_Check(t *testing.T) {
	f := newFixture()
	p := NewPermissions(f.store)
	ctx := context.Background()

	guest := activeUser("guest")
	guest.IsStaff = true
	f.store.join(guest, f.zeta, domain.RoleAdmin, true, time.Now())
	f.store.grants[grantKey(f.zeta.ID, guest.ID, domain.ModelCustomer, domain.ActionAdd)] = true

	inZeta := domain.TenantContext{TenantID: f.zeta.ID, Role: domain.RoleAdmin, UserID: guest.ID, Source: domain.SourceDefault}
	inAcme := domain.TenantContext{TenantID: f.acme.ID, Role: domain.RoleAdmin, UserID: guest.ID, Source: domain.SourceSelector}

	if err := p.Check(ctx, inZeta, guest, domain.ModelCustomer, domain.ActionAdd); err != nil {
		t.Errorf("granted action denied: %v", err)
	}
	if err := p.Check(ctx, inZeta, guest, domain.ModelCustomer, domain.ActionDelete); err != domain.ErrForbidden {
		t.Errorf("ungranted action error = %v, want ErrForbidden", err)
	}
	if err := p.Check(ctx, inAcme, guest, domain.ModelCustomer, domain.ActionAdd); err != domain.ErrForbidden {
		t.Errorf("grant leaked across tenants: %v", err)
	}

	nonStaff := *guest
	nonStaff.IsStaff = false
	if err := p.Check(ctx, inZeta, &nonStaff, domain.ModelCustomer, domain.ActionAdd); err != domain.ErrForbidden {
		t.Errorf("non-staff error = %v, want ErrForbidden", err)
	}
	if err := p.Check(ctx, domain.NoTenant(guest.ID, false), guest, domain.ModelCustomer, domain.ActionAdd); err != domain.ErrNoTenant {
		t.Errorf("no tenant error = %v, want ErrNoTenant", err)
	}
	if err := p.Check(ctx, domain.NoTenant(f.root.ID, true), f.root, domain.ModelInvoice, domain.ActionDelete); err != nil {
		t.Errorf("system authority denied: %v", err)
	}
}

func TestRequire(t *testing.T) {
	tenantID := uuid.New()
	if err := Require(domain.TenantContext{TenantID: tenantID, Role: domain.RoleReadonly}, domain.CapView); err != nil {
		t.Errorf("readonly view: %v", err)
	}
	if err := Require(domain.TenantContext{TenantID: tenantID, Role: domain.RoleReadonly}, domain.CapAdd); err != domain.ErrForbidden {
		t.Errorf("readonly add error = %v", err)
	}
	if err := Require(domain.TenantContext{}, domain.CapView); err != domain.ErrNoTenant {
		t.Errorf("no tenant error = %v", err)
	}
	if err := Require(domain.NoTenant(uuid.New(), true), domain.CapDelete); err != nil {
		t.Errorf("system delete: %v", err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	tc := domain.TenantContext{TenantID: uuid.New(), Role: domain.RoleUser, Source: domain.SourceHost}
	ctx := WithTenantContext(context.Background(), tc)
	got, ok := FromContext(ctx)
	if !ok || got != tc {
		t.Errorf("FromContext() = %+v, %v", got, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Error("FromContext on empty context should be false")
	}
	if MustFromContext(context.Background()).HasTenant() {
		t.Error("MustFromContext on empty context should carry no tenant")
	}
}
