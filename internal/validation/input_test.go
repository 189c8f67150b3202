package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignatzorin/wastemarket-backend/internal/pkg/apperror"
)

func TestValidateListingTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{name: "ok", title: "Mixed cardboard"},
		{name: "cyrillic counts runes", title: "Лом"},
		{name: "blank", title: "   ", wantErr: true},
		{name: "too short", title: "ab", wantErr: true},
		{name: "too long", title: strings.Repeat("x", MaxListingTitleLength+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateListingTitle(tt.title)
			if tt.wantErr {
				assert.True(t, apperror.IsValidation(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateMaterials(t *testing.T) {
	assert.NoError(t, ValidateMaterials(nil))
	assert.NoError(t, ValidateMaterials([]string{"paper", "glass"}))
	assert.True(t, apperror.IsValidation(ValidateMaterials([]string{"paper", " "})))
	assert.True(t, apperror.IsValidation(ValidateMaterials([]string{"Paper", "paper"})))

	many := make([]string, MaxMaterialsCount+1)
	for i := range many {
		many[i] = strings.Repeat("m", i+1)
	}
	assert.True(t, apperror.IsValidation(ValidateMaterials(many)))
}

func TestValidateBidFields(t *testing.T) {
	assert.NoError(t, ValidateBidMessage(""))
	assert.True(t, apperror.IsValidation(ValidateBidMessage(strings.Repeat("a", MaxBidMessageLength+1))))
	assert.True(t, apperror.IsValidation(ValidatePickupTime(strings.Repeat("9", MaxPickupTimeLength+1))))
}

func TestValidatePickupTime_FreeText(t *testing.T) {
	for _, value := range []string{"", "09:00", "09:00-12:00", "утром", "после 18:00, кроме пятницы"} {
		t.Run(value, func(t *testing.T) {
			assert.NoError(t, ValidatePickupTime(value))
		})
	}

	// Длина считается в символах, а не в байтах.
	assert.NoError(t, ValidatePickupTime(strings.Repeat("я", MaxPickupTimeLength)))
	assert.True(t, apperror.IsValidation(ValidatePickupTime(strings.Repeat("я", MaxPickupTimeLength+1))))
}
