package http

import (
	"time"

	"github.com/nekogravitycat/grooming-booking-backend/internal/appointment"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/request"
)

const dateLayout = "2006-01-02"

type ItemBody struct {
	PetID     string         `json:"pet_id" binding:"required,uuid"`
	ServiceID string         `json:"service_id" binding:"required,uuid"`
	Extras    map[string]any `json:"extras"`
}

type BookRequest struct {
	BusinessID   string     `json:"business_id" binding:"required,uuid"`
	GroomerID    string     `json:"groomer_id" binding:"omitempty,uuid"`
	LocationType string     `json:"location_type" binding:"required,oneof=IN_SALON AT_HOME"`
	StartTime    time.Time  `json:"start_time" binding:"required"`
	HomeAddress  *string    `json:"home_address"`
	HomeZone     *string    `json:"home_zone"`
	Items        []ItemBody `json:"items" binding:"required,min=1,dive"`
}

type AvailabilityRequest struct {
	Date         string     `json:"date" binding:"required,datetime=2006-01-02"`
	GroomerID    string     `json:"groomer_id" binding:"omitempty,uuid"`
	LocationType string     `json:"location_type" binding:"required,oneof=IN_SALON AT_HOME"`
	Items        []ItemBody `json:"items" binding:"required,min=1,dive"`
}

// RescheduleRequest edits an appointment; at least one field must be set.
type RescheduleRequest struct {
	StartTime   *time.Time `json:"start_time"`
	HomeAddress *string    `json:"home_address" binding:"omitempty,max=500"`
	HomeZone    *string    `json:"home_zone" binding:"omitempty,max=100"`
}

type CancelRequest struct {
	Reason *string `json:"reason" binding:"omitempty,max=500"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=CONFIRMED IN_PROGRESS DONE CANCELLED NO_SHOW"`
}

type ListAppointmentsRequest struct {
	request.ListParams
	BusinessID string     `form:"business_id" binding:"omitempty,uuid"`
	Status     string     `form:"status" binding:"omitempty,oneof=PENDING CONFIRMED IN_PROGRESS DONE CANCELLED NO_SHOW"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

type ItemResponse struct {
	ID                        string         `json:"id"`
	PetID                     string         `json:"pet_id"`
	ServiceID                 string         `json:"service_id"`
	CalculatedDurationMinutes int            `json:"calculated_duration_minutes"`
	Extras                    map[string]any `json:"extras"`
}

type AppointmentResponse struct {
	ID           string         `json:"id"`
	BusinessID   string         `json:"business_id"`
	ClientID     string         `json:"client_id"`
	GroomerID    string         `json:"groomer_id"`
	LocationType string         `json:"location_type"`
	StartTime    time.Time      `json:"start_time"`
	EndTime      time.Time      `json:"end_time"`
	Status       string         `json:"status"`
	CancelReason *string        `json:"cancel_reason"`
	HomeAddress  *string        `json:"home_address"`
	HomeZone     *string        `json:"home_zone"`
	Items        []ItemResponse `json:"items"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

type AvailabilityResponse struct {
	Date            string      `json:"date"`
	LocationType    string      `json:"location_type"`
	GroomerID       string      `json:"groomer_id"`
	DurationMinutes int         `json:"duration_minutes"`
	Slots           []time.Time `json:"slots"`
}

func toSelections(items []ItemBody) []appointment.ItemSelection {
	out := make([]appointment.ItemSelection, len(items))
	for i, it := range items {
		out[i] = appointment.ItemSelection{PetID: it.PetID, ServiceID: it.ServiceID, Extras: it.Extras}
	}
	return out
}

func NewAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	items := make([]ItemResponse, len(a.Items))
	for i, it := range a.Items {
		extras := it.Extras
		if extras == nil {
			extras = map[string]any{}
		}
		items[i] = ItemResponse{
			ID:                        it.ID,
			PetID:                     it.PetID,
			ServiceID:                 it.ServiceID,
			CalculatedDurationMinutes: it.CalculatedDurationMinutes,
			Extras:                    extras,
		}
	}
	return AppointmentResponse{
		ID:           a.ID,
		BusinessID:   a.BusinessID,
		ClientID:     a.ClientID,
		GroomerID:    a.GroomerID,
		LocationType: string(a.LocationType),
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		Status:       string(a.Status),
		CancelReason: a.CancelReason,
		HomeAddress:  a.HomeAddress,
		HomeZone:     a.HomeZone,
		Items:        items,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func NewAvailabilityResponse(a *appointment.Availability) AvailabilityResponse {
	return AvailabilityResponse{
		Date:            a.Date.Format(dateLayout),
		LocationType:    string(a.LocationType),
		GroomerID:       a.GroomerID,
		DurationMinutes: a.DurationMinutes,
		Slots:           a.Slots,
	}
}
