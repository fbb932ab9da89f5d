package models

// Company holds the branding printed on proposals and share messages.
type Company struct {
	// Display name used in headers and messages
	Name    string `json:"name"`
	Tagline string `json:"tagline,omitempty"`

	// Legal identification printed in the document footer
	LegalName string `json:"legal_name,omitempty"`
	CNPJ      string `json:"cnpj,omitempty"`

	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`

	// Validity of a proposal in days, printed with the general terms
	ValidityDays int `json:"validity_days"`
}
