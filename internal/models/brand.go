package models

import (
	"fmt"
	"strings"
)

// Brand is a fuel retailer.
type Brand string

const (
	BrandShell    Brand = "Shell"
	BrandAfriquia Brand = "Afriquia"
	BrandTotal    Brand = "TotalEnergies"
	BrandWinxo    Brand = "Winxo"
	BrandOla      Brand = "Ola Energy"
	BrandPetrom   Brand = "Petrom"
	BrandOther    Brand = "Other"
)

// Brands lists the known brands, Other last.
var Brands = []Brand{BrandShell, BrandAfriquia, BrandTotal, BrandWinxo, BrandOla, BrandPetrom, BrandOther}

// brandKeywords is checked in order; the first keyword found wins.
var brandKeywords = []struct {
	keyword string
	brand   Brand
}{
	{"shell", BrandShell},
	{"afriquia", BrandAfriquia},
	{"total", BrandTotal},
	{"winxo", BrandWinxo},
	{"ola", BrandOla},
	{"oilybia", BrandOla},
	{"petrom", BrandPetrom},
}

// ParseBrand maps a user supplied brand name to a Brand, falling back to Other.
func ParseBrand(s string) Brand {
	for _, b := range Brands {
		if strings.EqualFold(s, string(b)) {
			return b
		}
	}
	return InferBrand(s)
}

// InferBrand guesses the brand from free-text tags such as a station's name,
// operator and brand. Tags are joined and matched case-insensitively.
func InferBrand(tags ...string) Brand {
	haystack := strings.ToLower(strings.Join(tags, " "))
	for _, kw := range brandKeywords {
		if strings.Contains(haystack, kw.keyword) {
			return kw.brand
		}
	}
	return BrandOther
}

// DisplayName returns name, or "{brand} Station" when name is missing.
func DisplayName(name string, brand Brand) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || strings.EqualFold(trimmed, "unknown") {
		return fmt.Sprintf("%s Station", brand)
	}
	return trimmed
}
