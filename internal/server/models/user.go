package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Profile carries extra user fields that the service stores and returns
// without interpreting them.
type Profile map[string]any

// User is the stored representation of a user.
type User struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"`
	Name      string  `gorm:"size:255;not null;index"`
	Email     string  `gorm:"size:255;not null;uniqueIndex"`
	Profile   Profile `gorm:"type:text;serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (User) TableName() string {
	return "users"
}

// UserView is the wire-facing representation of a user.
type UserView struct {
	ID      uint    `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Profile Profile `json:"profile"`
}

// Normalize converts a stored user into its wire form. Timestamps stay
// internal.
func (u *User) Normalize() UserView {
	profile := u.Profile
	if profile == nil {
		profile = Profile{}
	}
	return UserView{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Profile: profile,
	}
}

// NormalizeViews maps Normalize over a slice, never returning nil so that an
// empty result encodes as [].
func NormalizeViews(users []User) []UserView {
	out := make([]UserView, 0, len(users))
	for i := range users {
		out = append(out, users[i].Normalize())
	}
	return out
}

// UserInput is the candidate user carried by a creation request.
type UserInput struct {
	Name    string  `json:"name" binding:"required,max=255"`
	Email   string  `json:"email" binding:"required,email,max=255"`
	Profile Profile `json:"profile"`
}

// UnmarshalJSON accepts extra fields next to name and email and keeps them
// in Profile. A key present in both places takes the nested profile value.
// "id" is assigned by storage and is ignored.
func (in *UserInput) UnmarshalJSON(b []byte) error {
	type plain UserInput
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	for k, v := range raw {
		switch k {
		case "id", "name", "email", "profile":
			continue
		}
		if p.Profile == nil {
			p.Profile = Profile{}
		}
		if _, ok := p.Profile[k]; !ok {
			p.Profile[k] = v
		}
	}

	*in = UserInput(p)
	return nil
}

// ChallengeSchema is the creation envelope: {"user": {...}}.
type ChallengeSchema struct {
	User *UserInput `json:"user" binding:"required"`
}

// ToUser builds the record to insert. The email is stored normalized.
func (in *UserInput) ToUser() *User {
	return &User{
		Name:    in.Name,
		Email:   NormalizeEmail(in.Email),
		Profile: in.Profile,
	}
}

// UserPatch is a partial update. Nil fields are left as they are.
type UserPatch struct {
	Name    *string `json:"name" binding:"omitnil,min=1,max=255"`
	Email   *string `json:"email" binding:"omitnil,email,max=255"`
	Profile Profile `json:"profile"`
}

// Apply copies the supplied fields onto u and returns the columns it
// touched.
func (p UserPatch) Apply(u *User) []string {
	var columns []string
	if p.Name != nil {
		u.Name = *p.Name
		columns = append(columns, "name")
	}
	if p.Email != nil {
		u.Email = NormalizeEmail(*p.Email)
		columns = append(columns, "email")
	}
	if p.Profile != nil {
		u.Profile = p.Profile
		columns = append(columns, "profile")
	}
	return columns
}

// NormalizeEmail is the canonical form used for storage and uniqueness
// checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
