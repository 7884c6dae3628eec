package domain

// Profile is the presence-enriched view of a user supplied by the profile store.
// It is never consulted for signaling decisions.
type Profile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	University  string `json:"university,omitempty"`
}

// PresenceEntry pairs an online user with its profile, if one is known
type PresenceEntry struct {
	UserID  string   `json:"user_id"`
	Profile *Profile `json:"profile,omitempty"`
}
