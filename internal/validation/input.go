package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
)

// Ограничения пользовательского ввода.
const (
	MinListingTitleLength = 3
	MaxListingTitleLength = 200
	MaxMaterialLength     = 50
	MaxMaterialsCount     = 20
	MaxBidMessageLength   = 1000
	MaxPickupTimeLength   = 50
)

// ValidateLength проверяет длину строки в символах. Ноль - без ограничения.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return invalid("%s must be at least %d characters", fieldName, min)
	}
	if max > 0 && length > max {
		return invalid("%s must be at most %d characters", fieldName, max)
	}
	return nil
}

// ValidateListingTitle проверяет название лота.
func ValidateListingTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return invalid("title is required")
	}
	return ValidateLength("title", title, MinListingTitleLength, MaxListingTitleLength)
}

// ValidateMaterials проверяет список материалов лота.
func ValidateMaterials(materials []string) error {
	if len(materials) > MaxMaterialsCount {
		return invalid("no more than %d materials allowed", MaxMaterialsCount)
	}

	seen := make(map[string]struct{}, len(materials))
	for _, material := range materials {
		material = strings.TrimSpace(material)
		if material == "" {
			return invalid("material cannot be empty")
		}
		if err := ValidateLength("material", material, 0, MaxMaterialLength); err != nil {
			return err
		}

		// Дубликаты без учёта регистра.
		key := strings.ToLower(material)
		if _, ok := seen[key]; ok {
			return invalid("material %q is listed twice", material)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ValidateBidMessage проверяет необязательный комментарий к ставке.
func ValidateBidMessage(message string) error {
	return ValidateLength("message", strings.TrimSpace(message), 0, MaxBidMessageLength)
}

// ValidatePickupTime проверяет свободную форму времени вывоза ("09:00-12:00", "утром").
func ValidatePickupTime(pickupTime string) error {
	return ValidateLength("pickup_time", strings.TrimSpace(pickupTime), 0, MaxPickupTimeLength)
}

func invalid(format string, args ...any) error {
	return apperror.New(apperror.ErrCodeValidation, fmt.Sprintf(format, args...))
}
