package model

import "time"

// Subscription is the account tier
type Subscription string

const (
	SubscriptionStarter  Subscription = "starter"
	SubscriptionPro      Subscription = "pro"
	SubscriptionBusiness Subscription = "business"
)

// Subscriptions lists the allowed tiers in display order
var Subscriptions = []Subscription{SubscriptionStarter, SubscriptionPro, SubscriptionBusiness}

// Valid reports whether s is one of the known tiers
func (s Subscription) Valid() bool {
	for _, known := range Subscriptions {
		if s == known {
			return true
		}
	}
	return false
}

// User is an account. Token holds the only session token currently accepted
// for the account; nil means logged out.
type User struct {
	ID                string       `json:"id"`
	Email             string       `json:"email"`
	PasswordHash      string       `json:"-"`
	Subscription      Subscription `json:"subscription"`
	Token             *string      `json:"-"`
	AvatarURL         string       `json:"avatarURL"`
	Verified          bool         `json:"verified"`
	VerificationToken *string      `json:"-"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

// HasToken reports whether token is the user's current session token
func (u *User) HasToken(token string) bool {
	return u.Token != nil && *u.Token == token
}

// UserSummary is the public projection returned by the user endpoints
type UserSummary struct {
	Email        string       `json:"email"`
	Subscription Subscription `json:"subscription"`
	AvatarURL    string       `json:"avatarURL,omitempty"`
}

// Summary returns the public projection of u
func (u *User) Summary() UserSummary {
	return UserSummary{
		Email:        u.Email,
		Subscription: u.Subscription,
		AvatarURL:    u.AvatarURL,
	}
}
