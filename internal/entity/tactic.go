package entity

import "time"

// SuccessRecord is an appended row of the success history of a family.
type SuccessRecord struct {
	ID        int64     `json:"id"`
	Family    string    `json:"family"`
	Tactic    string    `json:"tactic"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// FailureRecord is an appended row of the failure history of a family.
type FailureRecord struct {
	ID        int64     `json:"id"`
	Family    string    `json:"family"`
	Tactic    string    `json:"tactic"`
	Errors    []string  `json:"errors"`
	CreatedAt time.Time `json:"created_at"`
}
