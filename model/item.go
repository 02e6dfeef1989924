// model/item.go
package model

import "time"

type ItemStatus string

const (
	ItemAvailable ItemStatus = "available"
	ItemReserved  ItemStatus = "reserved"
	ItemBorrowed  ItemStatus = "borrowed"
)

// Item is a physical asset tracked by the system. Status is a projection
// over the reservations and usage records that reference the item and is
// only ever written through the tracker's CAS transition.
type Item struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Function     string     `json:"function,omitempty"`
	SerialNumber string     `json:"serial_number,omitempty"`
	Status       ItemStatus `json:"status"`
	SpaceID      int64      `json:"space_id"`
	CreatedBy    int64      `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
