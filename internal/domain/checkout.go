package domain

import (
	"fmt"
	"strings"
)

// Shipping form field names, in display order. They double as the JSON keys
// of the checkout payload.
const (
	FieldFullName   = "full_name"
	FieldStreet     = "street"
	FieldCity       = "city"
	FieldState      = "state"
	FieldPostalCode = "postal_code"
	FieldPhone      = "phone"
)

var ShippingFields = []string{
	FieldFullName,
	FieldStreet,
	FieldCity,
	FieldState,
	FieldPostalCode,
	FieldPhone,
}

type ShippingForm struct {
	FullName   string `json:"full_name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
}

// ValidationError lists required fields that are empty.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("required fields missing: %s", strings.Join(e.Fields, ", "))
}

func (f *ShippingForm) field(name string) (*string, error) {
	switch name {
	case FieldFullName:
		return &f.FullName, nil
	case FieldStreet:
		return &f.Street, nil
	case FieldCity:
		return &f.City, nil
	case FieldState:
		return &f.State, nil
	case FieldPostalCode:
		return &f.PostalCode, nil
	case FieldPhone:
		return &f.Phone, nil
	}
	return nil, fmt.Errorf("unknown shipping field %q", name)
}

// Set stores value under the named field.
func (f *ShippingForm) Set(name, value string) error {
	p, err := f.field(name)
	if err != nil {
		return err
	}
	*p = value
	return nil
}

func (f ShippingForm) Get(name string) (string, error) {
	p, err := f.field(name)
	if err != nil {
		return "", err
	}
	return *p, nil
}

// Missing returns the empty fields in display order. Whitespace-only values
// count as empty.
func (f ShippingForm) Missing() []string {
	var missing []string
	for _, name := range ShippingFields {
		v, _ := f.Get(name)
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func (f ShippingForm) Validate() error {
	if missing := f.Missing(); len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

type OrderLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// OrderSubmission is the checkout payload: the shipping fields flattened next
// to the reduced item list.
type OrderSubmission struct {
	ShippingForm
	Items []OrderLine `json:"items"`
}

// NewOrderSubmission strips display data from items.
func NewOrderSubmission(form ShippingForm, items []CartItem) OrderSubmission {
	lines := make([]OrderLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return OrderSubmission{ShippingForm: form, Items: lines}
}
