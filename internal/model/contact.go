package model

import "time"

// Contact is an address book entry. Owner is the ID of the user the entry belongs to.
type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Favorite  bool      `json:"favorite"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ContactPatch carries the fields of a partial update. Nil fields are left unchanged.
type ContactPatch struct {
	Name     *string
	Email    *string
	Phone    *string
	Favorite *bool
}

// Empty reports whether the patch changes nothing
func (p ContactPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Favorite == nil
}

// ContactFilter selects a page of an owner's contacts
type ContactFilter struct {
	Page     int
	Limit    int
	Favorite *bool
}

// Offset returns the number of records to skip
func (f ContactFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
