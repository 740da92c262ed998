package models

import "time"

// FreeAIStyleLimit is the number of AI banner generations included in the
// free tier.
const FreeAIStyleLimit = 1

// Profile represents a user profile row in the users table. The ID is the
// auth provider's subject ID, so there is exactly one profile per identity.
type Profile struct {
	ID                string    `json:"id" db:"id"`
	DisplayName       string    `json:"display_name" db:"display_name"`
	ShortBio          string    `json:"short_bio" db:"short_bio"`
	ProfilePictureURL string    `json:"profile_picture_url" db:"profile_picture_url"`
	WritingPortfolio  string    `json:"writing_portfolio" db:"writing_portfolio"`
	SparksInfluences  string    `json:"sparks_influences" db:"sparks_influences"`
	Email             string    `json:"email" db:"email"`
	FreeAIStylesUsed  int       `json:"free_ai_styles_used" db:"free_ai_styles_used"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

// ProfileUpdate carries the mutable profile fields for a partial update.
// Nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName       *string `json:"display_name,omitempty"`
	ShortBio          *string `json:"short_bio,omitempty"`
	ProfilePictureURL *string `json:"profile_picture_url,omitempty"`
	WritingPortfolio  *string `json:"writing_portfolio,omitempty"`
	SparksInfluences  *string `json:"sparks_influences,omitempty"`
}

// IsEmpty reports whether the update carries no fields at all.
func (u ProfileUpdate) IsEmpty() bool {
	return u.DisplayName == nil && u.ShortBio == nil && u.ProfilePictureURL == nil &&
		u.WritingPortfolio == nil && u.SparksInfluences == nil
}
