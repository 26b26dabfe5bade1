package domain

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type Account struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	Address      string    `json:"address"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AccountSnapshot is the subset of an account the checkout needs.
type AccountSnapshot struct {
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Address string `json:"address"`
}

func (a Account) Snapshot() AccountSnapshot {
	return AccountSnapshot{Name: a.Name, Surname: a.Surname, Address: a.Address}
}

// Principal is the authenticated caller of a single request.
type Principal struct {
	Identity  string
	AccountID int64
	Role      Role
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// CanAccess reports whether p may act on the resources of accountID.
func (p Principal) CanAccess(accountID int64) bool {
	return p.IsAdmin() || p.AccountID == accountID
}
