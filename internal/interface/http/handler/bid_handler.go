package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/wastemarket-backend/internal/interface/http/dto"
	"github.com/ignatzorin/wastemarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/wastemarket-backend/internal/usecase/bid"
)

type BidHandler struct {
	placeBidUC       *bid.PlaceBidUseCase
	updateBidUC      *bid.UpdateBidUseCase
	withdrawBidUC    *bid.WithdrawBidUseCase
	acceptBidUC      *bid.AcceptBidUseCase
	getListingBidsUC *bid.GetListingBidsUseCase
	getMyBidsUC      *bid.GetMyBidsUseCase
}

func NewBidHandler(
	placeBidUC *bid.PlaceBidUseCase,
	updateBidUC *bid.UpdateBidUseCase,
	withdrawBidUC *bid.WithdrawBidUseCase,
	acceptBidUC *bid.AcceptBidUseCase,
	getListingBidsUC *bid.GetListingBidsUseCase,
	getMyBidsUC *bid.GetMyBidsUseCase,
) *BidHandler {
	return &BidHandler{
		placeBidUC:       placeBidUC,
		updateBidUC:      updateBidUC,
		withdrawBidUC:    withdrawBidUC,
		acceptBidUC:      acceptBidUC,
		getListingBidsUC: getListingBidsUC,
		getMyBidsUC:      getMyBidsUC,
	}
}

func (h *BidHandler) PlaceBid(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	listingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req dto.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}

	amount, err := dto.RequireAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	details, err := req.BidDetails()
	if err != nil {
		response.Error(c, err)
		return
	}
	location, err := dto.ParseLocation(req.Location)
	if err != nil {
		response.Error(c, err)
		return
	}

	placed, err := h.placeBidUC.Execute(c.Request.Context(), bid.PlaceBidInput{
		ListingID:      listingID,
		BidderID:       userID,
		Amount:         amount,
		Details:        details,
		BidderLocation: location,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.ToBidResponse(placed))
}

func (h *BidHandler) UpdateBid(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	bidID, ok := pathUUID(c, "bidId")
	if !ok {
		return
	}

	var req dto.UpdateBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	amount, err := dto.RequireAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	revised, err := h.updateBidUC.Execute(c.Request.Context(), bidID, userID, amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToBidResponse(revised))
}

func (h *BidHandler) WithdrawBid(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	bidID, ok := pathUUID(c, "bidId")
	if !ok {
		return
	}

	if err := h.withdrawBidUC.Execute(c.Request.Context(), bidID, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"message": "bid withdrawn"})
}

func (h *BidHandler) AcceptBid(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	bidID, ok := pathUUID(c, "bidId")
	if !ok {
		return
	}

	accepted, closed, err := h.acceptBidUC.Execute(c.Request.Context(), bidID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.AcceptBidResponse{
		Bid:     dto.ToBidResponse(accepted),
		Listing: dto.ToListingResponse(closed),
	})
}

func (h *BidHandler) GetListingBids(c *gin.Context) {
	listingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	bids, err := h.getListingBidsUC.Execute(c.Request.Context(), listingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToBidResponses(bids))
}

func (h *BidHandler) GetMyBids(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	items, err := h.getMyBidsUC.Execute(c.Request.Context(), userID, c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto.ToMyBidResponses(items))
}
