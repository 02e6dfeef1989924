// model/space.go
package model

import "time"

// Space is a node in the storage-location hierarchy. The hierarchy is
// read-only here; items reference the space they live in.
type Space struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
