package inventory

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	MovementIn  = "in"
	MovementOut = "out"
)

// StockItem is a consumable the clinic keeps on hand. Quantity changes
// through movements; MinQuantity is the reorder threshold.
type StockItem struct {
	ID          string     `bson:"_id" json:"id"`
	TenantPath  string     `bson:"tenantPath" json:"tenantPath"`
	Name        string     `bson:"name" json:"name"`
	Category    string     `bson:"category,omitempty" json:"category,omitempty"`
	Quantity    float64    `bson:"quantity" json:"quantity"`
	Unit        string     `bson:"unit,omitempty" json:"unit,omitempty"`
	MinQuantity float64    `bson:"minQuantity" json:"minQuantity"`
	UnitCost    float64    `bson:"unitCost,omitempty" json:"unitCost,omitempty"`
	ExpiresAt   *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}

func (s *StockItem) SetTenantPath(tenant string) { s.TenantPath = tenant }

// Low reports whether the item is at or below its minimum.
func (s *StockItem) Low() bool { return s.Quantity <= s.MinQuantity }

// StockMovement records one entry or withdrawal. Movements are never edited.
type StockMovement struct {
	ID         string    `bson:"_id" json:"id"`
	TenantPath string    `bson:"tenantPath" json:"tenantPath"`
	ItemID     string    `bson:"itemId" json:"itemId"`
	Type       string    `bson:"type" json:"type"`
	Quantity   float64   `bson:"quantity" json:"quantity"`
	Reason     string    `bson:"reason,omitempty" json:"reason,omitempty"`
	Date       time.Time `bson:"date" json:"date"`
	UserID     string    `bson:"userId,omitempty" json:"userId,omitempty"`
}

func (m *StockMovement) SetTenantPath(tenant string) { m.TenantPath = tenant }

type StockItemInput struct {
	ID          string   `json:"id"`
	Name        *string  `json:"name"`
	Category    *string  `json:"category"`
	Quantity    *float64 `json:"quantity"`
	Unit        *string  `json:"unit"`
	MinQuantity *float64 `json:"minQuantity"`
	UnitCost    *float64 `json:"unitCost"`
	ExpiresAt   *string  `json:"expiresAt"`
}

// StockItemPatch holds the validated fields of an item update.
type StockItemPatch struct {
	Name        *string
	Category    *string
	Quantity    *float64
	Unit        *string
	MinQuantity *float64
	UnitCost    *float64
	ExpiresAt   *time.Time
	UpdatedAt   time.Time
}

func (p *StockItemPatch) Set() bson.M {
	set := bson.M{"updatedAt": p.UpdatedAt}
	for k, v := range map[string]*string{"name": p.Name, "category": p.Category, "unit": p.Unit} {
		if v != nil {
			set[k] = *v
		}
	}
	for k, v := range map[string]*float64{"quantity": p.Quantity, "minQuantity": p.MinQuantity, "unitCost": p.UnitCost} {
		if v != nil {
			set[k] = *v
		}
	}
	if p.ExpiresAt != nil {
		set["expiresAt"] = *p.ExpiresAt
	}
	return set
}

func (p *StockItemPatch) Apply(s *StockItem) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Category != nil {
		s.Category = *p.Category
	}
	if p.Unit != nil {
		s.Unit = *p.Unit
	}
	if p.Quantity != nil {
		s.Quantity = *p.Quantity
	}
	if p.MinQuantity != nil {
		s.MinQuantity = *p.MinQuantity
	}
	if p.UnitCost != nil {
		s.UnitCost = *p.UnitCost
	}
	if p.ExpiresAt != nil {
		at := *p.ExpiresAt
		s.ExpiresAt = &at
	}
	s.UpdatedAt = p.UpdatedAt
}

type MovementInput struct {
	ItemID   *string  `json:"itemId"`
	Type     *string  `json:"type"`
	Quantity *float64 `json:"quantity"`
	Reason   *string  `json:"reason"`
	Date     *string  `json:"date"`
}

type StockFilter struct {
	Category string
	Low      bool
}

type MovementFilter struct {
	ItemID string
	Type   string
	From   *time.Time
	To     *time.Time
}
