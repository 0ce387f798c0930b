// Package auth provides account registration and bearer-token sessions.
// Every domain handler downstream reads the resolved owner id from the
// request context; requests without a valid token never reach them.
package auth

import "time"

// User is an account that owns back-office records.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
