package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmuslimabdulj/campus-realtime/internal/domain"
)

// UpsertProfile stores or replaces a user profile
func (d *DB) UpsertProfile(ctx context.Context, p domain.Profile) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, display_name, avatar_url, university)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			display_name = excluded.display_name,
			avatar_url = excluded.avatar_url,
			university = excluded.university`,
		p.UserID, p.DisplayName, p.AvatarURL, p.University)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// LookupProfiles returns the known profiles for userIDs, keyed by user id.
// Unknown ids are simply absent from the result.
func (d *DB) LookupProfiles(ctx context.Context, userIDs []string) (map[string]domain.Profile, error) {
	result := make(map[string]domain.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT user_id, display_name, avatar_url, university FROM profiles WHERE user_id IN (`+placeholders+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.UserID, &p.DisplayName, &p.AvatarURL, &p.University); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		result[p.UserID] = p
	}
	return result, rows.Err()
}
