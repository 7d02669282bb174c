package gateway

import (
	"encoding/json"
	"strings"

	"github.com/vbonduro/restaurantqr/internal/domain"
)

type itemRecord struct {
	Category     *string  `json:"category"`
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price"`
	Currency     *string  `json:"currency"`
	IsVegetarian bool     `json:"isVegetarian"`
	Allergens    []string `json:"allergens"`
}

// ParseMenu validates a model reply against MenuSchema and converts it to
// menu items without IDs. A reply that is not a JSON array, or any record
// missing a required field or carrying an unknown category or currency,
// yields a *SchemaError. An empty array is a valid reply.
func ParseMenu(raw string) ([]domain.MenuItem, error) {
	text := stripCodeFence(raw)
	if text == "" {
		return nil, &SchemaError{Index: -1, Reason: "empty reply"}
	}
	if !strings.HasPrefix(text, "[") {
		return nil, &SchemaError{Index: -1, Reason: "top-level value is not an array"}
	}

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(text), &records); err != nil {
		return nil, &SchemaError{Index: -1, Reason: "invalid JSON: " + err.Error()}
	}

	items := make([]domain.MenuItem, 0, len(records))
	for i, raw := range records {
		item, err := parseRecord(i, raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func parseRecord(i int, raw json.RawMessage) (domain.MenuItem, error) {
	var rec itemRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.MenuItem{}, &SchemaError{Index: i, Reason: err.Error()}
	}

	switch {
	case rec.Category == nil:
		return domain.MenuItem{}, &SchemaError{Index: i, Reason: "missing category"}
	case rec.Name == nil:
		return domain.MenuItem{}, &SchemaError{Index: i, Reason: "missing name"}
	case rec.Description == nil:
		return domain.MenuItem{}, &SchemaError{Index: i, Reason: "missing description"}
	case rec.Price == nil:
		return domain.MenuItem{}, &SchemaError{Index: i, Reason: "missing price"}
	case rec.Currency == nil:
		return domain.MenuItem{}, &SchemaError{Index: i, Reason: "missing currency"}
	}

	category := domain.Category(strings.TrimSpace(*rec.Category))
	if !category.Valid() {
		return domain.MenuItem{}, &SchemaError{Index: i, Reason: "unknown category " + *rec.Category}
	}
	currency := domain.Currency(strings.TrimSpace(*rec.Currency))
	if !currency.Valid() {
		return domain.MenuItem{}, &SchemaError{Index: i, Reason: "unknown currency " + *rec.Currency}
	}

	allergens := rec.Allergens
	if allergens == nil {
		allergens = []string{}
	}

	return domain.MenuItem{
		Category:     category,
		Name:         *rec.Name,
		Description:  *rec.Description,
		Price:        *rec.Price,
		Currency:     currency,
		IsVegetarian: rec.IsVegetarian,
		Allergens:    allergens,
	}, nil
}

// stripCodeFence removes a surrounding ```json ... ``` block some models add
// despite being asked for bare JSON.
func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
