package models

// User represents a registered customer account.
type User struct {
	BaseModel
	Email            string `gorm:"uniqueIndex" json:"email"`
	PasswordHash     string `json:"-"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	Phone            string `json:"phone"`
	MarketingConsent bool   `json:"marketing_consent"`
	IsVerified       bool   `json:"is_verified"`

	// Location snapshot captured at signup, used for promo restrictions.
	Address    string  `json:"address"`
	City       string  `json:"city"`
	State      string  `json:"state"`
	Country    string  `json:"country"`
	PostalCode string  `json:"postal_code"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`

	Orders []Order `json:"orders,omitempty"`
}

// HasLocation reports whether the profile carries usable location data.
func (u User) HasLocation() bool {
	return u.City != "" || u.State != ""
}

// FullName joins the name parts for display and email templates.
func (u User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
