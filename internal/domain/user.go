// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"
)

const (
	MaxPhoneNumberLen = 32
	MaxUsernameLen    = 64
)

var (
	ErrPhoneEmpty      = errors.New("phone number empty")
	ErrPhoneTooLong    = errors.New("phone number too long")
	ErrUsernameEmpty   = errors.New("username empty")
	ErrUsernameTooLong = errors.New("username too long")
)

// UserID is the connection identifier a user record is keyed by.
type UserID string

type UserStatus string

const (
	StatusAvailable UserStatus = "available"
	StatusCalling   UserStatus = "calling"
	StatusRinging   UserStatus = "ringing"
	StatusInCall    UserStatus = "in-call"
)

type User struct {
	ID          UserID     `json:"id"`
	PhoneNumber string     `json:"phoneNumber"`
	UserName    string     `json:"userName"`
	Status      UserStatus `json:"status"`
}

// NewUser validates the caller-supplied fields and returns an available user.
func NewUser(id UserID, phone, username string) (*User, error) {
	if len(phone) == 0 {
		return nil, ErrPhoneEmpty
	}
	if len(phone) > MaxPhoneNumberLen {
		return nil, ErrPhoneTooLong
	}
	if len(username) == 0 {
		return nil, ErrUsernameEmpty
	}
	if len(username) > MaxUsernameLen {
		return nil, ErrUsernameTooLong
	}
	return &User{
		ID:          id,
		PhoneNumber: phone,
		UserName:    username,
		Status:      StatusAvailable,
	}, nil
}

func (u *User) Available() bool { return u.Status == StatusAvailable }
