package domain

// SubCategory is a leaf of the lightweight category tree
type SubCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MainCategory groups subcategories on the top level of the catalog
type MainCategory struct {
	ID         int           `json:"id"`
	Name       string        `json:"name"`
	Categories []SubCategory `json:"categories" validate:"required,dive"`
}

// CategoryTree is the response of GET /categories/
type CategoryTree struct {
	Source
	Results []MainCategory `json:"results" validate:"required,dive"`
}

// SubcategoryIDs flattens the tree into the ids of every leaf subcategory.
// An id listed under more than one main category is returned once.
func (t *CategoryTree) SubcategoryIDs() []int {
	seen := make(map[int]struct{})
	ids := make([]int, 0)
	for _, main := range t.Results {
		for _, sub := range main.Categories {
			if _, ok := seen[sub.ID]; ok {
				continue
			}
			seen[sub.ID] = struct{}{}
			ids = append(ids, sub.ID)
		}
	}
	return ids
}

// ProductStub is the partial product embedded in a category response
type ProductStub struct {
	ID                string             `json:"id" validate:"required"`
	DisplayName       string             `json:"display_name" validate:"required"`
	Thumbnail         string             `json:"thumbnail" validate:"required"`
	PriceInstructions *PriceInstructions `json:"price_instructions" validate:"required"`
	ShareURL          string             `json:"share_url" validate:"required"`
}

// SubCategoryWithProducts is a section of a category detail page
type SubCategoryWithProducts struct {
	ID       int           `json:"id"`
	Name     string        `json:"name"`
	Products []ProductStub `json:"products,omitempty" validate:"omitempty,dive"`
}

// CategoryDetail is the response of GET /categories/{id}
type CategoryDetail struct {
	Source
	ID         int                       `json:"id"`
	Name       string                    `json:"name"`
	Categories []SubCategoryWithProducts `json:"categories" validate:"required,dive"`
}

// Stubs collects the products of every nested section
func (c *CategoryDetail) Stubs() []ProductStub {
	stubs := make([]ProductStub, 0)
	for _, section := range c.Categories {
		stubs = append(stubs, section.Products...)
	}
	return stubs
}
