package domain

import (
	"strings"
	"time"
)

type AuthOrigin string

const (
	OriginLocal    AuthOrigin = "local"
	OriginGoogle   AuthOrigin = "google"
	OriginGitHub   AuthOrigin = "github"
	OriginFacebook AuthOrigin = "facebook"
)

// WithLocal marks a social origin as also having a local password ("google+local").
func (o AuthOrigin) WithLocal() AuthOrigin {
	switch {
	case o == "":
		return OriginLocal
	case o == OriginLocal, strings.HasSuffix(string(o), "+local"):
		return o
	}
	return o + "+local"
}

type User struct {
	ID              int64      `bson:"_id"                         json:"id"`
	Name            string     `bson:"name"                        json:"name"`
	Email           string     `bson:"email,omitempty"             json:"email"`
	PasswordHash    string     `bson:"password_hash,omitempty"     json:"-"`
	PasswordSet     bool       `bson:"password_set"                json:"passwordSet"`
	AuthType        AuthOrigin `bson:"auth_type"                   json:"authType"`
	ProfilePic      string     `bson:"profile_pic,omitempty"       json:"profilePic"`
	GoogleID        string     `bson:"google_id,omitempty"         json:"-"`
	GitHubID        string     `bson:"github_id,omitempty"         json:"-"`
	FacebookID      string     `bson:"facebook_id,omitempty"       json:"-"`
	ResetCode       string     `bson:"reset_code,omitempty"        json:"-"`
	ResetCodeExpiry *time.Time `bson:"reset_code_expiry,omitempty" json:"-"`
	CreatedAt       time.Time  `bson:"created_at"                  json:"createdAt"`
	UpdatedAt       time.Time  `bson:"updated_at"                  json:"updatedAt"`
}

// CanPasswordLogin reports whether the account has a usable local password.
func (u *User) CanPasswordLogin() bool {
	return u.PasswordSet && u.PasswordHash != ""
}

func (u *User) ExternalID(provider AuthOrigin) string {
	switch provider {
	case OriginGoogle:
		return u.GoogleID
	case OriginGitHub:
		return u.GitHubID
	case OriginFacebook:
		return u.FacebookID
	}
	return ""
}

func (u *User) SetExternalID(provider AuthOrigin, id string) {
	switch provider {
	case OriginGoogle:
		u.GoogleID = id
	case OriginGitHub:
		u.GitHubID = id
	case OriginFacebook:
		u.FacebookID = id
	}
}

// ExternalIDField is the stored field holding the provider subject id.
func ExternalIDField(provider AuthOrigin) string {
	switch provider {
	case OriginGoogle:
		return "google_id"
	case OriginGitHub:
		return "github_id"
	case OriginFacebook:
		return "facebook_id"
	}
	return ""
}

func (u *User) ClearResetCode() {
	u.ResetCode = ""
	u.ResetCodeExpiry = nil
}
