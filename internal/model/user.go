package model

import "time"

// User roles.  Guests book, hosts and admins manage listings.
const (
	RoleGuest = "GUEST"
	RoleHost  = "HOST"
	RoleAdmin = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table.  The name and phone fields are forwarded to the payment gateway
// as payer information.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique, lower-cased email address.
//	PasswordHash – bcrypt hashed password.
//	FirstName    – optional given name.
//	LastName     – optional family name.
//	PhoneNumber  – optional phone number.
//	Role         – GUEST, HOST or ADMIN.
//	IsActive     – whether the account is active.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	FirstName    string    // users.first_name
	LastName     string    // users.last_name
	PhoneNumber  string    // users.phone_number
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
