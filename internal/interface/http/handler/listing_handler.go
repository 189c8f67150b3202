package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/wastemarket-backend/internal/interface/http/dto"
	"github.com/ignatzorin/wastemarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/wastemarket-backend/internal/usecase/listing"
)

type ListingHandler struct {
	createUC  *listing.CreateListingUseCase
	publishUC *listing.PublishListingUseCase
	getUC     *listing.GetListingUseCase
	closeUC   *listing.CloseBiddingUseCase
}

func NewListingHandler(
	createUC *listing.CreateListingUseCase,
	publishUC *listing.PublishListingUseCase,
	getUC *listing.GetListingUseCase,
	closeUC *listing.CloseBiddingUseCase,
) *ListingHandler {
	return &ListingHandler{
		createUC:  createUC,
		publishUC: publishUC,
		getUC:     getUC,
		closeUC:   closeUC,
	}
}

func (h *ListingHandler) CreateListing(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	location, err := dto.ParseLocation(req.Location)
	if err != nil {
		response.Error(c, err)
		return
	}
	deadline, err := dto.ParseDeadline(req.BiddingDeadline)
	if err != nil {
		response.Error(c, err)
		return
	}

	created, err := h.createUC.Execute(c.Request.Context(), listing.CreateListingInput{
		SellerID:        userID,
		Title:           strings.TrimSpace(req.Title),
		FinalWeight:     req.FinalWeight,
		FinalMaterials:  req.FinalMaterials,
		FinalValue:      req.FinalValue,
		Location:        location,
		BiddingDeadline: deadline,
		Publish:         req.Publish,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToListingResponse(created))
}

func (h *ListingHandler) GetListing(c *gin.Context) {
	listingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	found, err := h.getUC.Execute(c.Request.Context(), listingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToListingResponse(found))
}

func (h *ListingHandler) PublishListing(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	listingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	published, err := h.publishUC.Execute(c.Request.Context(), listingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToListingResponse(published))
}

func (h *ListingHandler) CloseBidding(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	listingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	closed, err := h.closeUC.Execute(c.Request.Context(), listingID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToListingResponse(closed))
}
