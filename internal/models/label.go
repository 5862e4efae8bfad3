package models

import "time"

// Label is a globally unique, case-sensitive name that can be applied to issues.
type Label struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
