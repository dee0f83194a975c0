package admin

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// User is a member of a clinic's staff. Email is unique within the tenant
// and is the login identity.
type User struct {
	ID         string    `bson:"_id" json:"id"`
	TenantPath string    `bson:"tenantPath" json:"tenantPath"`
	Name       string    `bson:"name" json:"name"`
	Email      string    `bson:"email" json:"email"`
	Role       string    `bson:"role" json:"role"`
	Active     bool      `bson:"active" json:"active"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) SetTenantPath(tenant string) { u.TenantPath = tenant }

type UserInput struct {
	ID     string  `json:"id"`
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Role   *string `json:"role"`
	Active *bool   `json:"active"`
}

// UserPatch holds the validated fields of a user update.
type UserPatch struct {
	Name      *string
	Email     *string
	Role      *string
	Active    *bool
	UpdatedAt time.Time
}

func (p *UserPatch) Set() bson.M {
	set := bson.M{"updatedAt": p.UpdatedAt}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Email != nil {
		set["email"] = *p.Email
	}
	if p.Role != nil {
		set["role"] = *p.Role
	}
	if p.Active != nil {
		set["active"] = *p.Active
	}
	return set
}

func (p *UserPatch) Apply(u *User) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Active != nil {
		u.Active = *p.Active
	}
	u.UpdatedAt = p.UpdatedAt
}

type UserFilter struct {
	Role   string
	Active *bool
	Query  string
}
