package media

import "github.com/mediacms-io/mediacms-go/pkg/storage"

// GetMigrations returns the media and playlist schema. Versions 10-19 are
// reserved for this package; identity owns 1-9 and grants 20-29.
func GetMigrations() []storage.Migration {
	return []storage.Migration{
		{
			Version:     10,
			Description: "Create media table",
			SQL: `
				CREATE TABLE IF NOT EXISTS media (
					id BIGSERIAL PRIMARY KEY,
					owner_id BIGINT NOT NULL REFERENCES users(id),
					title VARCHAR(512) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					media_type VARCHAR(16) NOT NULL DEFAULT 'video',
					state VARCHAR(16) NOT NULL DEFAULT 'private',
					encoding_status VARCHAR(16) NOT NULL DEFAULT 'pending',
					is_reviewed BOOLEAN NOT NULL DEFAULT FALSE,
					listable BOOLEAN NOT NULL DEFAULT FALSE,
					enable_comments BOOLEAN NOT NULL DEFAULT TRUE,
					allow_download BOOLEAN NOT NULL DEFAULT FALSE,
					featured BOOLEAN NOT NULL DEFAULT FALSE,
					views BIGINT NOT NULL DEFAULT 0,
					likes BIGINT NOT NULL DEFAULT 0,
					file_key VARCHAR(1024) NOT NULL DEFAULT '',
					add_date TIMESTAMP NOT NULL DEFAULT NOW(),
					edit_date TIMESTAMP NOT NULL DEFAULT NOW(),
					search_vector tsvector
				);

				CREATE INDEX idx_media_listable_add_date ON media(listable, add_date DESC);
				CREATE INDEX idx_media_owner_id ON media(owner_id);
				CREATE INDEX idx_media_featured ON media(featured) WHERE featured;
				CREATE INDEX idx_media_search_vector ON media USING GIN(search_vector);
			`,
		},
		{
			Version:     11,
			Description: "Create categories and media_categories tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS categories (
					id BIGSERIAL PRIMARY KEY,
					title VARCHAR(255) NOT NULL UNIQUE,
					is_rbac_category BOOLEAN NOT NULL DEFAULT FALSE
				);

				CREATE TABLE IF NOT EXISTS media_categories (
					media_id BIGINT NOT NULL REFERENCES media(id) ON DELETE CASCADE,
					category_id BIGINT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
					PRIMARY KEY (media_id, category_id)
				);

				CREATE INDEX idx_media_categories_category ON media_categories(category_id);
			`,
		},
		{
			Version:     12,
			Description: "Create media_tags and media_actions tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS media_tags (
					media_id BIGINT NOT NULL REFERENCES media(id) ON DELETE CASCADE,
					tag VARCHAR(128) NOT NULL,
					PRIMARY KEY (media_id, tag)
				);

				CREATE INDEX idx_media_tags_tag ON media_tags(tag);

				CREATE TABLE IF NOT EXISTS media_actions (
					id BIGSERIAL PRIMARY KEY,
					media_id BIGINT NOT NULL REFERENCES media(id) ON DELETE CASCADE,
					user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
					action VARCHAR(16) NOT NULL,
					created_at TIMESTAMP NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     13,
			Description: "Create playlists, playlist_media and playlist_shares tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS playlists (
					id BIGSERIAL PRIMARY KEY,
					owner_id BIGINT NOT NULL REFERENCES users(id),
					title VARCHAR(512) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					add_date TIMESTAMP NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS playlist_media (
					playlist_id BIGINT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
					media_id BIGINT NOT NULL REFERENCES media(id) ON DELETE CASCADE,
					position INT NOT NULL,
					added_at TIMESTAMP NOT NULL DEFAULT NOW(),
					PRIMARY KEY (playlist_id, media_id)
				);

				CREATE INDEX idx_playlist_media_position ON playlist_media(playlist_id, position);

				CREATE TABLE IF NOT EXISTS playlist_shares (
					playlist_id BIGINT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
					user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					role VARCHAR(16) NOT NULL,
					PRIMARY KEY (playlist_id, user_id)
				);
			`,
		},
		{
			Version:     14,
			Description: "Maintain media search_vector from title, description and tags",
			SQL: `
				CREATE OR REPLACE FUNCTION media_search_vector_update() RETURNS trigger AS $$
				BEGIN
					NEW.search_vector :=
						setweight(to_tsvector('simple', coalesce(NEW.title, '')), 'A') ||
						setweight(to_tsvector('simple', coalesce(NEW.description, '')), 'B');
					RETURN NEW;
				END
				$$ LANGUAGE plpgsql;

				DROP TRIGGER IF EXISTS media_search_vector_trigger ON media;
				CREATE TRIGGER media_search_vector_trigger
					BEFORE INSERT OR UPDATE OF title, description ON media
					FOR EACH ROW EXECUTE FUNCTION media_search_vector_update();
			`,
		},
	}
}
