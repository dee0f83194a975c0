package procedure

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Procedure is an entry of the clinic's service catalogue.
type Procedure struct {
	ID              string    `bson:"_id" json:"id"`
	TenantPath      string    `bson:"tenantPath" json:"tenantPath"`
	Name            string    `bson:"name" json:"name"`
	Description     string    `bson:"description,omitempty" json:"description,omitempty"`
	Category        string    `bson:"category,omitempty" json:"category,omitempty"`
	Price           float64   `bson:"price" json:"price"`
	DurationMinutes int       `bson:"durationMinutes,omitempty" json:"durationMinutes,omitempty"`
	Active          bool      `bson:"active" json:"active"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (p *Procedure) SetTenantPath(tenant string) { p.TenantPath = tenant }

type ProcedureInput struct {
	ID              string   `json:"id"`
	Name            *string  `json:"name"`
	Description     *string  `json:"description"`
	Category        *string  `json:"category"`
	Price           *float64 `json:"price"`
	DurationMinutes *int     `json:"durationMinutes"`
	Active          *bool    `json:"active"`
}

// Set renders the provided fields of in as a $set document.
func (in *ProcedureInput) Set(now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if in.Name != nil {
		set["name"] = *in.Name
	}
	if in.Description != nil {
		set["description"] = *in.Description
	}
	if in.Category != nil {
		set["category"] = *in.Category
	}
	if in.Price != nil {
		set["price"] = *in.Price
	}
	if in.DurationMinutes != nil {
		set["durationMinutes"] = *in.DurationMinutes
	}
	if in.Active != nil {
		set["active"] = *in.Active
	}
	return set
}

// Apply copies the provided fields of in onto p.
func (in *ProcedureInput) Apply(p *Procedure, now time.Time) {
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Category != nil {
		p.Category = *in.Category
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.DurationMinutes != nil {
		p.DurationMinutes = *in.DurationMinutes
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	p.UpdatedAt = now
}

type ProcedureFilter struct {
	Category string
	Active   *bool
}
