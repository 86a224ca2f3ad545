package delegation

import (
	"github.com/brightpath/casehub/pkg/storage/postgres"
)

// MigrationsTable tracks applied delegation schema versions.
const MigrationsTable = "delegation_migrations"

// Migrations returns the delegation schema migrations.
func Migrations() []postgres.Migration {
	return []postgres.Migration{
		{
			Version:     1,
			Description: "Create settings_delegations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS settings_delegations (
					org_id UUID NOT NULL,
					user_id UUID NOT NULL,
					can_manage_billing BOOLEAN NOT NULL DEFAULT FALSE,
					can_manage_team BOOLEAN NOT NULL DEFAULT FALSE,
					can_manage_integrations BOOLEAN NOT NULL DEFAULT FALSE,
					can_manage_branding BOOLEAN NOT NULL DEFAULT FALSE,
					delegated_by_id UUID NOT NULL,
					delegated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					expires_at TIMESTAMP,
					PRIMARY KEY (org_id, user_id)
				);

				CREATE INDEX idx_settings_delegations_org_id ON settings_delegations(org_id);
				CREATE INDEX idx_settings_delegations_expires_at ON settings_delegations(expires_at);
			`,
		},
	}
}
