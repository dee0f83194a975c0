package tenant

import "time"

// Tenant is one clinic's entry in the main database directory. ID is also
// the name of the clinic's database.
type Tenant struct {
	ID        string    `bson:"_id" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Active    bool      `bson:"active" json:"active"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
