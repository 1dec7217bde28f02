package models

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z]+$`)
	phonePattern    = regexp.MustCompile(`^\d{10}$`)
	emailPattern    = regexp.MustCompile(`^\S+@\S+\.\S+$`)
)

// ErrInvalidUser is returned by Validate when a record breaks a field rule.
var ErrInvalidUser = errors.New("invalid user record")

// User is a single directory entry. ID is assigned by storage on insert.
type User struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// Validate checks the shape of every field except ID.
func (u User) Validate() error {
	if !usernamePattern.MatchString(u.Username) {
		return fmt.Errorf("%w: username %q must be alphabetic", ErrInvalidUser, u.Username)
	}
	if !phonePattern.MatchString(u.Phone) {
		return fmt.Errorf("%w: phone %q must be 10 digits", ErrInvalidUser, u.Phone)
	}
	if !emailPattern.MatchString(u.Email) {
		return fmt.Errorf("%w: email %q is malformed", ErrInvalidUser, u.Email)
	}
	return nil
}

// SearchFilter selects users whose fields contain the given substrings.
// Empty fields match everything; non-empty fields are combined with AND.
type SearchFilter struct {
	Username string
	Email    string
	Phone    string
}

// IsEmpty reports whether the filter matches every record.
func (f SearchFilter) IsEmpty() bool {
	return f.Username == "" && f.Email == "" && f.Phone == ""
}

// Page is one slice of an ordered listing.
type Page struct {
	Users      []User `json:"users"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Total      int64  `json:"total"`
	TotalPages int    `json:"totalPages"`
}

// NewPage builds a Page and derives TotalPages from total and limit.
func NewPage(users []User, page, limit int, total int64) Page {
	if users == nil {
		users = []User{}
	}
	totalPages := 0
	if limit > 0 && total > 0 {
		totalPages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Page{
		Users:      users,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}
}

// Stats is the payload of the internal stats endpoint.
type Stats struct {
	Users int64 `json:"users"`
}
