package domain

// PriceInstructions holds the pricing block of a product. Every field is optional.
type PriceInstructions struct {
	UnitPrice  *string  `json:"unit_price,omitempty"`
	BulkPrice  *string  `json:"bulk_price,omitempty"`
	UnitSize   *float64 `json:"unit_size,omitempty"`
	SizeFormat *string  `json:"size_format,omitempty"`
}

type Photo struct {
	Regular string `json:"regular" validate:"required"`
}

type Supplier struct {
	Name string `json:"name" validate:"required"`
}

type ProductInfo struct {
	Brand               *string    `json:"brand,omitempty"`
	Origin              *string    `json:"origin,omitempty"`
	Suppliers           []Supplier `json:"suppliers" validate:"required,dive"`
	LegalName           *string    `json:"legal_name,omitempty"`
	MandatoryMentions   *string    `json:"mandatory_mentions,omitempty"`
	Description         *string    `json:"description,omitempty"`
	StorageInstructions *string    `json:"storage_instructions,omitempty"`
}

type NutritionInformation struct {
	Allergens   *string `json:"allergens,omitempty"`
	Ingredients *string `json:"ingredients,omitempty"`
}

// ProductDetail is the full record returned by GET /products/{id}.
// Required members are pointers so that an absent key can be told apart
// from an empty value during validation.
type ProductDetail struct {
	Source
	ID                   *string               `json:"id" validate:"required"`
	EAN                  *string               `json:"ean" validate:"required"`
	DisplayName          *string               `json:"display_name" validate:"required"`
	Thumbnail            *string               `json:"thumbnail,omitempty"`
	Brand                *string               `json:"brand,omitempty"`
	Photos               []Photo               `json:"photos" validate:"required,dive"`
	Details              *ProductInfo          `json:"details" validate:"required"`
	Packaging            *string               `json:"packaging,omitempty"`
	PriceInstructions    *PriceInstructions    `json:"price_instructions" validate:"required"`
	NutritionInformation *NutritionInformation `json:"nutrition_information" validate:"required"`
	ShareURL             *string               `json:"share_url,omitempty"`
}

// Product is the flattened row kept in the local catalog store
type Product struct {
	ID           string `json:"id"`
	EAN          string `json:"ean"`
	DisplayName  string `json:"display_name"`
	ThumbnailURL string `json:"thumbnail"`
	UnitPrice    string `json:"unit_price"`
	ShareURL     string `json:"share_url"`
}

// Flatten projects a validated detail onto the store's column set
func (d *ProductDetail) Flatten() Product {
	p := Product{
		ID:           deref(d.ID),
		EAN:          deref(d.EAN),
		DisplayName:  deref(d.DisplayName),
		ThumbnailURL: deref(d.Thumbnail),
		ShareURL:     deref(d.ShareURL),
	}
	if d.PriceInstructions != nil {
		p.UnitPrice = deref(d.PriceInstructions.UnitPrice)
	}
	return p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
