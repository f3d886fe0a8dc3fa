package models

import (
	"strings"
	"time"
)

// RoleAdmin marks users who may moderate all products, users and orders.
const RoleAdmin = "Admin"

// User is a marketplace account. Authentication is handled upstream; this
// service only reads profile fields and the role claim.
type User struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Email            string    `json:"email"`
	Role             string    `json:"role"`
	PhoneNumber      string    `json:"phone_number,omitempty"`
	Address          string    `json:"address,omitempty"`
	City             string    `json:"city,omitempty"`
	Country          string    `json:"country,omitempty"`
	RegistrationDate time.Time `json:"registration_date"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ShippingAddress concatenates the profile address fields into the string
// snapshot stored on an order at purchase time.
func (u *User) ShippingAddress() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{u.Address, u.City, u.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
