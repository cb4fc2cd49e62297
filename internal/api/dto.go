package api

import "github.com/starford/notifsync/internal/models"

// Commitment is the record shape used in request and response bodies.
type Commitment = models.Commitment

// TrashResponse is returned after purging soft-deleted commitments.
type TrashResponse struct {
	Detail string `json:"detail" example:"Trash cleared" validate:"required"`
	Purged int    `json:"purged" example:"3" validate:"required"`
}

// HealthResponse is returned by the health probes.
type HealthResponse struct {
	Status  string `json:"status" example:"ok" validate:"required"`
	Records int    `json:"records,omitempty" example:"12"`
}
