package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ignatzorin/wastemarket-backend/internal/domain/entity"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/event"
	"github.com/ignatzorin/wastemarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/wastemarket-backend/internal/validation"
)

type LocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type CreateListingRequest struct {
	Title           string           `json:"title" binding:"required"`
	FinalWeight     decimal.Decimal  `json:"final_weight"`
	FinalMaterials  []string         `json:"final_materials"`
	FinalValue      decimal.Decimal  `json:"final_value"`
	Location        *LocationRequest `json:"location"`
	BiddingDeadline *string          `json:"bidding_deadline"`
	Publish         bool             `json:"publish"`
}

// Validate проверяет текстовые поля запроса.
func (r CreateListingRequest) Validate() error {
	if err := validation.ValidateListingTitle(r.Title); err != nil {
		return err
	}
	return validation.ValidateMaterials(r.FinalMaterials)
}

// ListingResponse совпадает с представлением лота в событиях реального времени.
type ListingResponse = event.ListingView

func ToListingResponse(l *entity.Listing) ListingResponse {
	return event.NewListingView(l)
}

// ParseLocation превращает координаты запроса в value object; nil - координат нет.
func ParseLocation(req *LocationRequest) (*valueobject.Location, error) {
	if req == nil {
		return nil, nil
	}
	loc, err := valueobject.NewLocation(req.Lat, req.Lng)
	if err != nil {
		return nil, err
	}
	return &loc, nil
}

// ParseDeadline принимает RFC3339.
func ParseDeadline(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, "bidding_deadline must be RFC3339")
	}
	return &t, nil
}
