package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSubcategoryIDs(t *testing.T) {
	tree := CategoryTree{Results: []MainCategory{
		{ID: 1, Name: "Fruta y verdura", Categories: []SubCategory{{ID: 27, Name: "Fruta"}, {ID: 28, Name: "Lechuga"}}},
		{ID: 2, Name: "Marisco", Categories: []SubCategory{{ID: 31, Name: "Pescado"}, {ID: 27, Name: "Fruta"}}},
		{ID: 3, Name: "Vacía"},
	}}

	got := tree.SubcategoryIDs()
	want := []int{27, 28, 31}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SubcategoryIDs() = %v, want %v", got, want)
	}
}

func TestCategoryDetailStubs(t *testing.T) {
	payload := `{
		"id": 112,
		"name": "Aceite, vinagre y sal",
		"categories": [
			{"id": 420, "name": "Aceite de oliva", "products": [
				{"id": "4241", "display_name": "Aceite de oliva 0,4º", "thumbnail": "t", "price_instructions": {"unit_price": "4,60"}, "share_url": "s"}
			]},
			{"id": 421, "name": "Vinagre"},
			{"id": 422, "name": "Sal", "products": [
				{"id": "4717", "display_name": "Sal fina", "price_instructions": {}},
				{"id": "4718", "display_name": "Sal gorda", "price_instructions": {}}
			]}
		]
	}`

	var detail CategoryDetail
	if err := json.Unmarshal([]byte(payload), &detail); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	stubs := detail.Stubs()
	if len(stubs) != 3 {
		t.Fatalf("expected 3 stubs, got %d", len(stubs))
	}
	if stubs[0].ID != "4241" || stubs[2].ID != "4718" {
		t.Errorf("unexpected stub order: %+v", stubs)
	}
	if stubs[0].PriceInstructions.UnitPrice == nil || *stubs[0].PriceInstructions.UnitPrice != "4,60" {
		t.Errorf("unit price not decoded: %+v", stubs[0].PriceInstructions)
	}
}

func TestFlatten(t *testing.T) {
	id, ean, name, price := "3400", "8480000340009", "Café molido natural", "2,50 €"
	d := ProductDetail{
		ID:                &id,
		EAN:               &ean,
		DisplayName:       &name,
		PriceInstructions: &PriceInstructions{UnitPrice: &price},
	}

	got := d.Flatten()
	want := Product{ID: id, EAN: ean, DisplayName: name, UnitPrice: price}
	if got != want {
		t.Errorf("Flatten() = %+v, want %+v", got, want)
	}
}
