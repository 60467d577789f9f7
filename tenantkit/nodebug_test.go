//go:build !tenantdebug

package tenantkit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tendant/simple-tenant/internal/testdb"
	"github.com/tendant/simple-tenant/pkg/domain"
	"github.com/tendant/simple-tenant/tenantkit"
)

func TestNew_RefusesUnscopedDebug(t *testing.T) {
	_, err := tenantkit.New(tenantkit.Config{
		DB:            testdb.New(t),
		JWTSecret:     secret,
		UnscopedDebug: true,
		Logger:        quiet,
	})
	assert.ErrorIs(t, err, domain.ErrDebugUnavailable)
}
