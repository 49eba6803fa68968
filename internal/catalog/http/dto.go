package http

import (
	"time"

	"github.com/nekogravitycat/grooming-booking-backend/internal/catalog"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
)

type CreateServiceRequest struct {
	Name               string   `json:"name" binding:"required"`
	Description        *string  `json:"description"`
	SpeciesSupported   []string `json:"species_supported" binding:"required,min=1,dive,oneof=DOG CAT"`
	LocationsSupported []string `json:"locations_supported" binding:"required,min=1,dive,oneof=IN_SALON AT_HOME"`
}

type UpdateServiceRequest struct {
	Name               *string  `json:"name" binding:"omitempty,min=1"`
	Description        *string  `json:"description"`
	SpeciesSupported   []string `json:"species_supported" binding:"omitempty,min=1,dive,oneof=DOG CAT"`
	LocationsSupported []string `json:"locations_supported" binding:"omitempty,min=1,dive,oneof=IN_SALON AT_HOME"`
	IsActive           *bool    `json:"is_active"`
}

type ListServicesRequest struct {
	request.ListParams
	IncludeInactive bool `form:"include_inactive"`
}

type CreateRuleRequest struct {
	Species             string  `json:"species" binding:"required,oneof=DOG CAT"`
	Size                *string `json:"size" binding:"omitempty,oneof=MINI SMALL MEDIUM LARGE GIANT"`
	Breed               *string `json:"breed"`
	BaseDurationMinutes int     `json:"base_duration_minutes" binding:"required,min=1"`
	IsDefaultForSpecies bool    `json:"is_default_for_species"`
}

type UpdateRuleRequest struct {
	Species             *string `json:"species" binding:"omitempty,oneof=DOG CAT"`
	Size                *string `json:"size" binding:"omitempty,oneof=MINI SMALL MEDIUM LARGE GIANT"`
	ClearSize           bool    `json:"clear_size"`
	Breed               *string `json:"breed"`
	ClearBreed          bool    `json:"clear_breed"`
	BaseDurationMinutes *int    `json:"base_duration_minutes" binding:"omitempty,min=1"`
	IsDefaultForSpecies *bool   `json:"is_default_for_species"`
}

type ServiceResponse struct {
	ID                 string    `json:"id"`
	BusinessID         string    `json:"business_id"`
	Name               string    `json:"name"`
	Description        *string   `json:"description"`
	SpeciesSupported   []string  `json:"species_supported"`
	LocationsSupported []string  `json:"locations_supported"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type RuleResponse struct {
	ID                  string    `json:"id"`
	ServiceID           string    `json:"service_id"`
	Species             string    `json:"species"`
	Size                *string   `json:"size"`
	Breed               *string   `json:"breed"`
	BaseDurationMinutes int       `json:"base_duration_minutes"`
	IsDefaultForSpecies bool      `json:"is_default_for_species"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func NewServiceResponse(s *catalog.GroomingService) ServiceResponse {
	species := make([]string, len(s.SpeciesSupported))
	for i, sp := range s.SpeciesSupported {
		species[i] = string(sp)
	}
	locations := make([]string, len(s.LocationsSupported))
	for i, loc := range s.LocationsSupported {
		locations[i] = string(loc)
	}
	return ServiceResponse{
		ID:                 s.ID,
		BusinessID:         s.BusinessID,
		Name:               s.Name,
		Description:        s.Description,
		SpeciesSupported:   species,
		LocationsSupported: locations,
		IsActive:           s.IsActive,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

func NewRuleResponse(r *catalog.DurationRule) RuleResponse {
	var size *string
	if r.Size != nil {
		v := string(*r.Size)
		size = &v
	}
	return RuleResponse{
		ID:                  r.ID,
		ServiceID:           r.ServiceID,
		Species:             string(r.Species),
		Size:                size,
		Breed:               r.Breed,
		BaseDurationMinutes: r.BaseDurationMinutes,
		IsDefaultForSpecies: r.IsDefaultForSpecies,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

func toSpecies(in []string) []scheduling.Species {
	if in == nil {
		return nil
	}
	out := make([]scheduling.Species, len(in))
	for i, v := range in {
		out[i] = scheduling.Species(v)
	}
	return out
}

func toLocations(in []string) []scheduling.LocationType {
	if in == nil {
		return nil
	}
	out := make([]scheduling.LocationType, len(in))
	for i, v := range in {
		out[i] = scheduling.LocationType(v)
	}
	return out
}

func toSize(in *string) *scheduling.Size {
	if in == nil {
		return nil
	}
	s := scheduling.Size(*in)
	return &s
}
