// Package models defines the user record and the request and response
// structures exchanged between the directory service and its clients.
package models

// MessageResponse carries a human-readable message, used for errors and
// for endpoints without a richer body.
type MessageResponse struct {
	Message string `json:"message"`
}

// PopulateResponse is returned by POST /populate.
type PopulateResponse struct {
	// Message is a human-readable summary of the run.
	Message string `json:"message"`

	// InsertedCount is the number of records accepted by storage.
	InsertedCount int `json:"insertedCount"`

	// RejectedCount is the number of generated records storage refused,
	// either as duplicates of pre-existing records or in failed chunks.
	RejectedCount int `json:"rejectedCount"`

	// TargetCount is the number of records the run tried to create.
	TargetCount int `json:"targetCount"`

	// FailedChunks is the number of write operations that returned an error.
	FailedChunks int `json:"failedChunks"`

	// DurationMs is the elapsed wall time of the run in milliseconds.
	DurationMs int64 `json:"durationMs"`
}

// DeleteAllResponse is returned by DELETE /deleteAll.
type DeleteAllResponse struct {
	// Message is a human-readable summary of the run.
	Message string `json:"message"`

	// DeletedCount is the number of records removed by this run.
	DeletedCount int64 `json:"deletedCount"`

	// Drained reports whether the collection was confirmed empty.
	Drained bool `json:"drained"`

	// State is the terminal state of the deletion run.
	State string `json:"state"`

	// Error describes the failure that stopped a partial deletion.
	Error string `json:"error,omitempty"`
}

// SearchResponse is returned by GET /search.
type SearchResponse struct {
	Users      []User `json:"users"`
	Total      int64  `json:"total"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	TotalPages int    `json:"totalPages"`
}
