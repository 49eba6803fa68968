package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pet"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
)

type PetHandler struct {
	service pet.Service
}

func NewHandler(service pet.Service) *PetHandler {
	return &PetHandler{service: service}
}

// List returns the caller's pets.
func (h *PetHandler) List(c *gin.Context) {
	var params request.ListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		response.BadRequest(c, err)
		return
	}
	params.Normalize()

	pets, total, err := h.service.ListByOwner(c.Request.Context(), auth.GetActor(c), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewPage(pets, NewPetResponse, params, total))
}

func (h *PetHandler) Create(c *gin.Context) {
	var req CreatePetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	p, err := h.service.Create(c.Request.Context(), auth.GetActor(c), pet.CreateRequest{
		Name:    req.Name,
		Species: scheduling.Species(req.Species),
		Size:    scheduling.Size(req.Size),
		Breed:   req.Breed,
		Notes:   req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewPetResponse(p))
}

func (h *PetHandler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}

	p, err := h.service.GetByID(c.Request.Context(), auth.GetActor(c), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPetResponse(p))
}

func (h *PetHandler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}
	var req UpdatePetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	update := pet.UpdateRequest{Name: req.Name, Breed: req.Breed, Notes: req.Notes}
	if req.Species != nil {
		sp := scheduling.Species(*req.Species)
		update.Species = &sp
	}
	if req.Size != nil {
		sz := scheduling.Size(*req.Size)
		update.Size = &sz
	}

	p, err := h.service.Update(c.Request.Context(), auth.GetActor(c), uri.ID, update)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPetResponse(p))
}

// Delete removes a pet that has never been booked.
func (h *PetHandler) Delete(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}

	if err := h.service.Delete(c.Request.Context(), auth.GetActor(c), uri.ID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
