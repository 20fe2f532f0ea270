package validation

import "contacts-service/internal/model"

// ContactRequest is the full contact schema used by create and replace.
type ContactRequest struct {
	Name     *string `json:"name" validate:"required,min=3"`
	Email    *string `json:"email" validate:"required,email"`
	Phone    *string `json:"phone" validate:"required,phone"`
	Favorite *bool   `json:"favorite"`
}

// ContactPatchRequest is the patch variant: every field optional, at least one present.
type ContactPatchRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=3"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone" validate:"omitempty,phone"`
	Favorite *bool   `json:"favorite"`
}

// Patch converts the request into a model patch
func (r ContactPatchRequest) Patch() model.ContactPatch {
	return model.ContactPatch{
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
		Favorite: r.Favorite,
	}
}

// FavoriteRequest carries the body of the favorite toggle.
type FavoriteRequest struct {
	Favorite *bool `json:"favorite"`
}

// SignupRequest is the account creation schema.
type SignupRequest struct {
	Email    *string `json:"email" validate:"required,email"`
	Password *string `json:"password" validate:"required,min=6"`
}

// LoginRequest is the login schema.
type LoginRequest struct {
	Email    *string `json:"email" validate:"required,email"`
	Password *string `json:"password" validate:"required,min=1"`
}

// SubscriptionRequest is the subscription change schema.
type SubscriptionRequest struct {
	Subscription *model.Subscription `json:"subscription" validate:"required,oneof=starter pro business"`
}

// EmailRequest is the body of the resend-verification call.
type EmailRequest struct {
	Email *string `json:"email" validate:"omitempty,email"`
}

// Schema options per request kind
var (
	StrictObject = DecodeOptions{}
	PatchObject  = DecodeOptions{MinKeys: 1}
	LooseObject  = DecodeOptions{AllowUnknown: true}
)
