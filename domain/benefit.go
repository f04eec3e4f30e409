package domain

// Benefit is one entry of the read-only benefit catalog (benefits.json).
type Benefit struct {
	BenefitID   string              `json:"benefit_id"`
	Title       string              `json:"title"`
	Category    string              `json:"category"`
	Provider    string              `json:"provider"`
	Summary     string              `json:"summary"`
	Description string              `json:"description,omitempty"`
	Website     string              `json:"website,omitempty"`
	Eligibility *BenefitEligibility `json:"eligibility,omitempty"`
	Location    *BenefitLocation    `json:"location,omitempty"`
}

type BenefitEligibility struct {
	AgeMin *int `json:"age_min,omitempty"`
	AgeMax *int `json:"age_max,omitempty"`
}

type BenefitLocation struct {
	Lat         *float64 `json:"lat,omitempty"`
	Lng         *float64 `json:"lng,omitempty"`
	RadiusM     *int     `json:"radius_m,omitempty"`
	AddressText string   `json:"address_text,omitempty"`
}

// AllowsAge reports whether a user of the given age satisfies the benefit's
// age bounds. Unknown age or missing bounds always pass.
func (b Benefit) AllowsAge(age *int) bool {
	if age == nil || b.Eligibility == nil {
		return true
	}
	if b.Eligibility.AgeMin != nil && *age < *b.Eligibility.AgeMin {
		return false
	}
	if b.Eligibility.AgeMax != nil && *age > *b.Eligibility.AgeMax {
		return false
	}
	return true
}

type Marker struct {
	ID    string   `json:"id"`
	Title string   `json:"title"`
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
}
