package models

import "time"

// Warehouse is a site that owns equipment, templates and staff.
type Warehouse struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Timezone  string    `json:"timezone" bson:"timezone"`
	Active    bool      `json:"active" bson:"active"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
