package audit

import (
	"github.com/brightpath/casehub/pkg/storage/postgres"
)

// MigrationsTable tracks applied audit schema versions.
const MigrationsTable = "audit_migrations"

// Migrations returns the denial log schema migrations.
func Migrations() []postgres.Migration {
	return []postgres.Migration{
		{
			Version:     1,
			Description: "Create denial_logs table",
			SQL: `
				CREATE TABLE IF NOT EXISTS denial_logs (
					id BIGSERIAL PRIMARY KEY,
					org_id UUID NOT NULL,
					user_id UUID NOT NULL,
					role VARCHAR(50) NOT NULL,
					resource VARCHAR(50) NOT NULL,
					action VARCHAR(50) NOT NULL,
					resource_id UUID,
					reason VARCHAR(50) NOT NULL,
					denial_count BIGINT NOT NULL,
					ip_address VARCHAR(45),
					user_agent TEXT,
					request_id VARCHAR(64),
					occurred_at TIMESTAMP NOT NULL
				);

				CREATE INDEX idx_denial_logs_org_id ON denial_logs(org_id);
				CREATE INDEX idx_denial_logs_user_id ON denial_logs(user_id);
				CREATE INDEX idx_denial_logs_occurred_at ON denial_logs(occurred_at);
				CREATE INDEX idx_denial_logs_resource ON denial_logs(resource);
			`,
		},
	}
}
