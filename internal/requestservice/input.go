package requestservice

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// CreateRequestInput is a new request as submitted. Each taxonomy field is
// given either as an existing id or as free text.
type CreateRequestInput struct {
	LocationID       string `json:"location_id"`
	LocationName     string `json:"location_name"`
	BusinessTypeID   string `json:"business_type_id"`
	BusinessTypeName string `json:"business_type_name"`
	Context          string `json:"context"`
}

// Validate checks that a location and a business type were provided.
func (in *CreateRequestInput) Validate() error {
	hasLocation := strings.TrimSpace(in.LocationID) != "" || strings.TrimSpace(in.LocationName) != ""
	hasType := strings.TrimSpace(in.BusinessTypeID) != "" || strings.TrimSpace(in.BusinessTypeName) != ""
	return validation.ValidateStruct(in,
		validation.Field(&in.LocationName,
			validation.When(!hasLocation, validation.Required.Error("location is required")),
			validation.Length(0, 120)),
		validation.Field(&in.BusinessTypeName,
			validation.When(!hasType, validation.Required.Error("business type is required")),
			validation.Length(0, 120)),
		validation.Field(&in.Context, validation.Length(0, 2000)),
	)
}

// ResponseInput is a recommendation as submitted.
type ResponseInput struct {
	ResponderName string `json:"responder_name"`
	BusinessName  string `json:"business_name"`
	Email         string `json:"email"`
	Instagram     string `json:"instagram"`
	Website       string `json:"website"`
	Location      string `json:"location"`
	Notes         string `json:"notes"`
}

// Validate checks the response fields.
func (in *ResponseInput) Validate() error {
	return validation.ValidateStruct(in,
		validation.Field(&in.BusinessName, validation.Required, validation.Length(1, 200)),
		validation.Field(&in.ResponderName, validation.Length(0, 100)),
		validation.Field(&in.Email, is.EmailFormat),
		validation.Field(&in.Instagram, validation.Length(0, 100)),
		validation.Field(&in.Website, is.URL, validation.Length(0, 500)),
		validation.Field(&in.Location, validation.Length(0, 200)),
		validation.Field(&in.Notes, validation.Length(0, 2000)),
	)
}

func (in *ResponseInput) normalize() {
	in.ResponderName = strings.TrimSpace(in.ResponderName)
	in.BusinessName = strings.TrimSpace(in.BusinessName)
	in.Email = strings.TrimSpace(in.Email)
	in.Instagram = strings.TrimPrefix(strings.TrimSpace(in.Instagram), "@")
	in.Website = formatURL(strings.TrimSpace(in.Website))
	in.Location = strings.TrimSpace(in.Location)
	in.Notes = strings.TrimSpace(in.Notes)
}

// formatURL adds https:// when the scheme is missing.
func formatURL(u string) string {
	if u == "" {
		return ""
	}
	lower := strings.ToLower(u)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return u
	}
	return "https://" + u
}
