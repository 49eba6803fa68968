package http

import (
	"time"

	"github.com/nekogravitycat/grooming-booking-backend/internal/business"
	"github.com/nekogravitycat/grooming-booking-backend/internal/media"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/request"
)

type WorkingHourBody struct {
	Weekday   int    `json:"weekday" binding:"min=0,max=6"`
	StartTime string `json:"start_time" binding:"required"`
	EndTime   string `json:"end_time" binding:"required"`
}

type CreateBusinessRequest struct {
	Name                             string            `json:"name" binding:"required"`
	Slug                             string            `json:"slug"`
	Description                      *string           `json:"description"`
	Phone                            *string           `json:"phone"`
	Email                            *string           `json:"email" binding:"omitempty,email"`
	Address                          *string           `json:"address"`
	Timezone                         string            `json:"timezone"`
	OffersInSalon                    bool              `json:"offers_in_salon"`
	OffersAtHome                     bool              `json:"offers_at_home"`
	MaxDogsPerHomeVisit              *int              `json:"max_dogs_per_home_visit"`
	HomeVisitSetupMinutes            int               `json:"home_visit_setup_minutes"`
	HomeVisitTeardownMinutes         int               `json:"home_visit_teardown_minutes"`
	DefaultTransportMinutes          int               `json:"default_transport_minutes"`
	MinHoursBeforeCancelOrReschedule int               `json:"min_hours_before_cancel_or_reschedule"`
	WorkingHours                     []WorkingHourBody `json:"working_hours" binding:"dive"`
}

type UpdateBusinessRequest struct {
	Name                             *string `json:"name"`
	Slug                             *string `json:"slug"`
	Description                      *string `json:"description"`
	Phone                            *string `json:"phone"`
	Email                            *string `json:"email" binding:"omitempty,email"`
	Address                          *string `json:"address"`
	Timezone                         *string `json:"timezone"`
	OffersInSalon                    *bool   `json:"offers_in_salon"`
	OffersAtHome                     *bool   `json:"offers_at_home"`
	MaxDogsPerHomeVisit              *int    `json:"max_dogs_per_home_visit"`
	HomeVisitSetupMinutes            *int    `json:"home_visit_setup_minutes"`
	HomeVisitTeardownMinutes         *int    `json:"home_visit_teardown_minutes"`
	DefaultTransportMinutes          *int    `json:"default_transport_minutes"`
	MinHoursBeforeCancelOrReschedule *int    `json:"min_hours_before_cancel_or_reschedule"`
}

type SetWorkingHoursRequest struct {
	WorkingHours []WorkingHourBody `json:"working_hours" binding:"dive"`
}

type AddStaffRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ListBusinessesRequest struct {
	request.ListParams
	Query string `form:"q"`
}

type SlugURIRequest struct {
	Slug string `uri:"slug" binding:"required"`
}

type UpdateStaffRequest struct {
	DisplayName *string `json:"display_name"`
	IsActive    *bool   `json:"is_active"`
}

type StaffURIRequest struct {
	ID     string `uri:"id" binding:"required,uuid"`
	UserID string `uri:"userId" binding:"required,uuid"`
}

type BusinessResponse struct {
	ID                               string            `json:"id"`
	OwnerUserID                      string            `json:"owner_user_id"`
	Name                             string            `json:"name"`
	Slug                             string            `json:"slug"`
	Description                      *string           `json:"description"`
	Phone                            *string           `json:"phone"`
	Email                            *string           `json:"email"`
	Address                          *string           `json:"address"`
	Timezone                         string            `json:"timezone"`
	LogoURL                          *string           `json:"logo_url"`
	CoverImageURL                    *string           `json:"cover_image_url"`
	OffersInSalon                    bool              `json:"offers_in_salon"`
	OffersAtHome                     bool              `json:"offers_at_home"`
	MaxDogsPerHomeVisit              *int              `json:"max_dogs_per_home_visit"`
	HomeVisitSetupMinutes            int               `json:"home_visit_setup_minutes"`
	HomeVisitTeardownMinutes         int               `json:"home_visit_teardown_minutes"`
	DefaultTransportMinutes          int               `json:"default_transport_minutes"`
	MinHoursBeforeCancelOrReschedule int               `json:"min_hours_before_cancel_or_reschedule"`
	WorkingHours                     []WorkingHourBody `json:"working_hours"`
	CreatedAt                        time.Time         `json:"created_at"`
	UpdatedAt                        time.Time         `json:"updated_at"`
}

type StaffResponse struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"display_name"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// GroomerResponse is the public view of a bookable groomer.
type GroomerResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsOwner     bool   `json:"is_owner"`
}

func toWorkingHours(in []WorkingHourBody) []business.WorkingHour {
	out := make([]business.WorkingHour, len(in))
	for i, h := range in {
		out[i] = business.WorkingHour{Weekday: h.Weekday, StartTime: h.StartTime, EndTime: h.EndTime}
	}
	return out
}

func NewBusinessResponse(b *business.Business) BusinessResponse {
	hours := make([]WorkingHourBody, len(b.WorkingHours))
	for i, h := range b.WorkingHours {
		hours[i] = WorkingHourBody{Weekday: h.Weekday, StartTime: h.StartTime, EndTime: h.EndTime}
	}
	return BusinessResponse{
		ID:                               b.ID,
		OwnerUserID:                      b.OwnerUserID,
		Name:                             b.Name,
		Slug:                             b.Slug,
		Description:                      b.Description,
		Phone:                            b.Phone,
		Email:                            b.Email,
		Address:                          b.Address,
		Timezone:                         b.Timezone,
		LogoURL:                          media.OptionalURL(b.LogoFileID),
		CoverImageURL:                    media.OptionalURL(b.CoverImageFileID),
		OffersInSalon:                    b.OffersInSalon,
		OffersAtHome:                     b.OffersAtHome,
		MaxDogsPerHomeVisit:              b.MaxDogsPerHomeVisit,
		HomeVisitSetupMinutes:            b.HomeVisitSetupMinutes,
		HomeVisitTeardownMinutes:         b.HomeVisitTeardownMinutes,
		DefaultTransportMinutes:          b.DefaultTransportMinutes,
		MinHoursBeforeCancelOrReschedule: b.MinHoursBeforeCancelOrReschedule,
		WorkingHours:                     hours,
		CreatedAt:                        b.CreatedAt,
		UpdatedAt:                        b.UpdatedAt,
	}
}

func NewStaffResponse(m *business.StaffMember) StaffResponse {
	return StaffResponse{
		UserID:      m.UserID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
	}
}

func NewGroomerResponse(g business.Groomer) GroomerResponse {
	return GroomerResponse{ID: g.UserID, DisplayName: g.DisplayName, IsOwner: g.IsOwner}
}
