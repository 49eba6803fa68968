package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/grooming-booking-backend/internal/auth"
	"github.com/nekogravitycat/grooming-booking-backend/internal/catalog"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/grooming-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/grooming-booking-backend/internal/scheduling"
)

type CatalogHandler struct {
	service catalog.Service
}

func NewHandler(service catalog.Service) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// ListServices lists a business's services. Managers may pass include_inactive=true.
func (h *CatalogHandler) ListServices(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}
	var req ListServicesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err)
		return
	}
	req.Normalize()

	services, total, err := h.service.ListServices(c.Request.Context(), auth.GetActor(c), uri.ID, req.IncludeInactive, req.ListParams)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, response.NewPage(services, NewServiceResponse, req.ListParams, total))
}

func (h *CatalogHandler) CreateService(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}
	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	s, err := h.service.CreateService(c.Request.Context(), auth.GetActor(c), uri.ID, catalog.CreateServiceRequest{
		Name:               req.Name,
		Description:        req.Description,
		SpeciesSupported:   toSpecies(req.SpeciesSupported),
		LocationsSupported: toLocations(req.LocationsSupported),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewServiceResponse(s))
}

func (h *CatalogHandler) GetService(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}

	s, err := h.service.GetService(c.Request.Context(), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewServiceResponse(s))
}

func (h *CatalogHandler) UpdateService(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}
	var req UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	s, err := h.service.UpdateService(c.Request.Context(), auth.GetActor(c), uri.ID, catalog.UpdateServiceRequest{
		Name:               req.Name,
		Description:        req.Description,
		SpeciesSupported:   toSpecies(req.SpeciesSupported),
		LocationsSupported: toLocations(req.LocationsSupported),
		IsActive:           req.IsActive,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewServiceResponse(s))
}

func (h *CatalogHandler) ListRules(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}

	rules, err := h.service.ListRules(c.Request.Context(), auth.GetActor(c), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]RuleResponse, len(rules))
	for i, r := range rules {
		items[i] = NewRuleResponse(r)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *CatalogHandler) CreateRule(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	rule, err := h.service.CreateRule(c.Request.Context(), auth.GetActor(c), uri.ID, catalog.CreateRuleRequest{
		Species:             scheduling.Species(req.Species),
		Size:                toSize(req.Size),
		Breed:               req.Breed,
		BaseDurationMinutes: req.BaseDurationMinutes,
		IsDefaultForSpecies: req.IsDefaultForSpecies,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewRuleResponse(rule))
}

func (h *CatalogHandler) UpdateRule(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}
	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err)
		return
	}

	var species *scheduling.Species
	if req.Species != nil {
		sp := scheduling.Species(*req.Species)
		species = &sp
	}

	rule, err := h.service.UpdateRule(c.Request.Context(), auth.GetActor(c), uri.ID, catalog.UpdateRuleRequest{
		Species:             species,
		Size:                toSize(req.Size),
		ClearSize:           req.ClearSize,
		Breed:               req.Breed,
		ClearBreed:          req.ClearBreed,
		BaseDurationMinutes: req.BaseDurationMinutes,
		IsDefaultForSpecies: req.IsDefaultForSpecies,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewRuleResponse(rule))
}

// DeleteService deactivates the service and returns it.
func (h *CatalogHandler) DeleteService(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}

	svc, err := h.service.DeactivateService(c.Request.Context(), auth.GetActor(c), uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewServiceResponse(svc))
}

func (h *CatalogHandler) DeleteRule(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, err)
		return
	}

	if err := h.service.DeleteRule(c.Request.Context(), auth.GetActor(c), uri.ID); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
