package models

// User is a row of the users directory. Records are provisioned out of band;
// this service only reads them and completes account setup.
type User struct {
	ID           int64  `json:"user_id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         string `json:"role"`
	DealerID     *int64 `json:"dealer_id"`
	IsVerified   bool   `json:"is_verified"`
}

// Account is the public projection of a User returned to callers.
type Account struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	DealerID *int64 `json:"dealer_id"`
}

// Account strips credential fields from the record.
func (u User) Account() Account {
	return Account{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     u.Role,
		DealerID: u.DealerID,
	}
}
