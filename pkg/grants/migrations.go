package grants

import "github.com/mediacms-io/mediacms-go/pkg/storage"

// GetMigrations returns the grant schema. Versions 20-29 are reserved for
// this package.
func GetMigrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     20,
			Description: "Create permission_grants table",
			SQL: `
				CREATE TABLE IF NOT EXISTS permission_grants (
					id BIGSERIAL PRIMARY KEY,
					object_id BIGINT NOT NULL,
					object_kind VARCHAR(16) NOT NULL,
					grantee_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					granted_by BIGINT NOT NULL REFERENCES users(id),
					level VARCHAR(8) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE (object_id, object_kind, grantee_id)
				);

				CREATE INDEX idx_permission_grants_grantee ON permission_grants(grantee_id, object_kind);
				CREATE INDEX idx_permission_grants_object ON permission_grants(object_id, object_kind);
			`,
		},
	}
}
