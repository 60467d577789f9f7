package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/tendant/simple-tenant/pkg/auth"
	"github.com/tendant/simple-tenant/pkg/domain"
)

// DefaultScope prefixes the bootstrap credential variables.
const DefaultScope = "APP"

// Lenient-environment fallbacks. They are logged whenever used.
const (
	defaultSuperuserUsername = "admin"
	defaultSuperuserEmail    = "admin@example.com"
	defaultSuperuserPassword = "admin-dev-password"
	defaultGuestUsername     = "guest"
	defaultGuestEmail        = "guest@example.com"
	defaultGuestPassword     = "guest-dev-password"
)

// Identity is the credential triple for one bootstrap account.
type Identity struct {
	Username string `env:"USERNAME"`
	Email    string `env:"EMAIL"`
	Password string `env:"PASSWORD"`
}

// Plan is the input of one reconciler run. LoadPlan reads it from
// {SCOPE}_-prefixed variables, e.g. APP_SUPERUSER_USERNAME.
type Plan struct {
	Environment string `env:"ENVIRONMENT_NAME"`

	Superuser      Identity `envPrefix:"SUPERUSER_"`
	RootTenantSlug string   `env:"ROOT_TENANT_SLUG" envDefault:"root"`
	RootTenantName string   `env:"ROOT_TENANT_NAME" envDefault:"Root"`

	GuestEnabled    bool     `env:"GUEST_ENABLED"`
	Guest           Identity `envPrefix:"GUEST_"`
	GuestTenantSlug string   `env:"GUEST_TENANT_SLUG" envDefault:"guest"`
	GuestTenantName string   `env:"GUEST_TENANT_NAME" envDefault:"Guest"`
	GuestMaxRecords int      `env:"GUEST_MAX_RECORDS" envDefault:"100"`
}

// LoadPlan parses a Plan from environ (os.Environ when nil). The
// environment name is read without the scope prefix since it is shared
// with the rest of the process.
func LoadPlan(scope string, environ map[string]string) (Plan, error) {
	if scope == "" {
		scope = DefaultScope
	}
	if environ == nil {
		environ = env.ToMap(os.Environ())
	}

	plan, err := env.ParseAsWithOptions[Plan](env.Options{
		Prefix:      strings.ToUpper(scope) + "_",
		Environment: environ,
	})
	if err != nil {
		return Plan{}, fmt.Errorf("bootstrap plan: %w", err)
	}
	if name, ok := environ["ENVIRONMENT_NAME"]; ok && name != "" {
		plan.Environment = name
	}
	return plan, nil
}

// Strict reports whether missing credentials are fatal. Only an explicit
// development, local or test environment is lenient.
func (p Plan) Strict() bool {
	switch strings.ToLower(p.Environment) {
	case "development", "local", "test":
		return false
	default:
		// production, staging, unset and anything unrecognized
		return true
	}
}

// PasswordPolicy returns the policy applied to this plan's passwords.
func (p Plan) PasswordPolicy() *auth.PasswordPolicy {
	if p.Strict() {
		return auth.StrictPolicy
	}
	return nil
}

// complete fills missing credentials with defaults in lenient environments
// and fails in strict ones.
func (p Plan) complete(logger *slog.Logger) (Plan, error) {
	var err error
	p.Superuser, err = p.fill("superuser", p.Superuser, Identity{defaultSuperuserUsername, defaultSuperuserEmail, defaultSuperuserPassword}, logger)
	if err != nil {
		return Plan{}, err
	}
	if p.GuestEnabled {
		p.Guest, err = p.fill("guest", p.Guest, Identity{defaultGuestUsername, defaultGuestEmail, defaultGuestPassword}, logger)
		if err != nil {
			return Plan{}, err
		}
	}
	return p, nil
}

func (p Plan) fill(role string, id, def Identity, logger *slog.Logger) (Identity, error) {
	var missing []string
	if id.Username == "" {
		missing = append(missing, "USERNAME")
		id.Username = def.Username
	}
	if id.Email == "" {
		missing = append(missing, "EMAIL")
		id.Email = def.Email
	}
	if id.Password == "" {
		missing = append(missing, "PASSWORD")
		id.Password = def.Password
	}
	if len(missing) == 0 {
		return id, nil
	}
	if p.Strict() {
		return Identity{}, fmt.Errorf("%w: %s %s in %s", domain.ErrMissingCredential, role, strings.Join(missing, ", "), p.Environment)
	}
	logger.Warn("bootstrap credentials missing, using development defaults",
		"identity", role,
		"missing", missing,
		"username", id.Username,
		"environment", p.Environment,
	)
	return id, nil
}
