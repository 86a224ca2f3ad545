package directory

import (
	"github.com/brightpath/casehub/pkg/storage/postgres"
)

// MigrationsTable tracks applied directory schema versions.
const MigrationsTable = "directory_migrations"

// Migrations returns the directory schema migrations.
func Migrations() []postgres.Migration {
	return []postgres.Migration{
		{
			Version:     1,
			Description: "Create program membership and enrollment tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS program_members (
					program_id UUID NOT NULL,
					user_id UUID NOT NULL,
					added_at TIMESTAMP NOT NULL DEFAULT NOW(),
					PRIMARY KEY (program_id, user_id)
				);

				CREATE INDEX idx_program_members_user_id ON program_members(user_id);

				CREATE TABLE IF NOT EXISTS client_enrollments (
					client_id UUID NOT NULL,
					program_id UUID NOT NULL,
					status VARCHAR(20) NOT NULL DEFAULT 'ENROLLED',
					enrolled_at TIMESTAMP NOT NULL DEFAULT NOW(),
					PRIMARY KEY (client_id, program_id)
				);

				CREATE INDEX idx_client_enrollments_client_id ON client_enrollments(client_id);
				CREATE INDEX idx_client_enrollments_status ON client_enrollments(status);
			`,
		},
		{
			Version:     2,
			Description: "Create assignment, share and session tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS client_assignments (
					client_id UUID NOT NULL,
					user_id UUID NOT NULL,
					assigned_at TIMESTAMP NOT NULL DEFAULT NOW(),
					PRIMARY KEY (client_id, user_id)
				);

				CREATE INDEX idx_client_assignments_user_id ON client_assignments(user_id);

				CREATE TABLE IF NOT EXISTS client_shares (
					id BIGSERIAL PRIMARY KEY,
					client_id UUID NOT NULL,
					user_id UUID NOT NULL,
					shared_by UUID NOT NULL,
					shared_at TIMESTAMP NOT NULL DEFAULT NOW(),
					expires_at TIMESTAMP,
					revoked_at TIMESTAMP
				);

				CREATE INDEX idx_client_shares_client_user ON client_shares(client_id, user_id);

				CREATE TABLE IF NOT EXISTS sessions (
					id UUID PRIMARY KEY,
					program_id UUID NOT NULL,
					status VARCHAR(20) NOT NULL DEFAULT 'SCHEDULED',
					starts_at TIMESTAMP,
					ends_at TIMESTAMP
				);

				CREATE INDEX idx_sessions_status ON sessions(status);
			`,
		},
		{
			Version:     3,
			Description: "Create org admin contacts table",
			SQL: `
				CREATE TABLE IF NOT EXISTS org_admin_contacts (
					org_id UUID PRIMARY KEY,
					contact_name VARCHAR(255) NOT NULL,
					contact_email VARCHAR(255) NOT NULL,
					updated_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
			`,
		},
	}
}
