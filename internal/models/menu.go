package models

// MenuItem is one orderable dish on the storefront menu.
type MenuItem struct {
	BaseModel
	Name         string  `gorm:"index" json:"name"`
	Description  string  `json:"description"`
	Category     string  `gorm:"index" json:"category"`
	Price        float64 `json:"price"`
	ImageURL     string  `json:"image_url"`
	IsFeatured   bool    `json:"is_featured"`
	IsActive     bool    `json:"is_active"`
	IsVegan      bool    `json:"is_vegan"`
	IsGlutenFree bool    `json:"is_gluten_free"`
	IsSpicy      bool    `json:"is_spicy"`
}
