package identity

import "github.com/mediacms-io/mediacms-go/pkg/storage"

// GetMigrations returns the identity schema: users with role flags,
// session tokens, and the federated group-to-category membership tables.
// Versions 1-9 are reserved for this package.
func GetMigrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     1,
			Description: "Create users and sessions tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					id BIGSERIAL PRIMARY KEY,
					username VARCHAR(255) NOT NULL UNIQUE,
					email VARCHAR(255),
					is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
					is_editor BOOLEAN NOT NULL DEFAULT FALSE,
					is_manager BOOLEAN NOT NULL DEFAULT FALSE,
					is_contributor BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS sessions (
					token VARCHAR(128) PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					expires_at TIMESTAMP
				);

				CREATE INDEX idx_sessions_user_id ON sessions(user_id);
			`,
		},
		{
			Version:     2,
			Description: "Create federated group mapping tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS user_groups (
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					group_id VARCHAR(255) NOT NULL,
					PRIMARY KEY (user_id, group_id)
				);

				CREATE TABLE IF NOT EXISTS group_mappings (
					group_id VARCHAR(255) NOT NULL,
					category_id BIGINT NOT NULL,
					role VARCHAR(16) NOT NULL DEFAULT 'member',
					PRIMARY KEY (group_id, category_id)
				);
			`,
		},
		{
			Version:     3,
			Description: "Create category_memberships table",
			SQL: `
				CREATE TABLE IF NOT EXISTS category_memberships (
					category_id BIGINT NOT NULL,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					role VARCHAR(16) NOT NULL DEFAULT 'member',
					synced_at TIMESTAMP NOT NULL DEFAULT NOW(),
					PRIMARY KEY (category_id, user_id)
				);

				CREATE INDEX idx_category_memberships_user ON category_memberships(user_id);
			`,
		},
	}
}
