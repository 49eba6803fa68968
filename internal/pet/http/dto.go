package http

import (
	"time"

	"github.com/nekogravitycat/grooming-booking-backend/internal/pet"
)

type CreatePetRequest struct {
	Name    string  `json:"name" binding:"required"`
	Species string  `json:"species" binding:"required,oneof=DOG CAT"`
	Size    string  `json:"size" binding:"required,oneof=MINI SMALL MEDIUM LARGE GIANT"`
	Breed   *string `json:"breed"`
	Notes   *string `json:"notes"`
}

type UpdatePetRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=1"`
	Species *string `json:"species" binding:"omitempty,oneof=DOG CAT"`
	Size    *string `json:"size" binding:"omitempty,oneof=MINI SMALL MEDIUM LARGE GIANT"`
	Breed   *string `json:"breed"`
	Notes   *string `json:"notes"`
}

type PetResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Species   string    `json:"species"`
	Size      string    `json:"size"`
	Breed     *string   `json:"breed"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewPetResponse(p *pet.Pet) PetResponse {
	return PetResponse{
		ID:        p.ID,
		Name:      p.Name,
		Species:   string(p.Species),
		Size:      string(p.Size),
		Breed:     p.Breed,
		Notes:     p.Notes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
