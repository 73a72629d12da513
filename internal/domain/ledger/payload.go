package ledger

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/3btraders/ims/internal/domain/shared"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// SalePayload is the body of POST /sales/newSale.
type SalePayload struct {
	ProductID   shared.ID    `json:"productId" validate:"required"`
	ShopID      shared.ID    `json:"shopId" validate:"required"`
	Buyer       string       `json:"buyer" validate:"required,max=255"`
	Description string       `json:"description"`
	Quantity    int64        `json:"quantity" validate:"gt=0"`
	TotalPrice  shared.Money `json:"totalPrice"`
	UnitPrice   shared.Money `json:"price"`
	ProductName string       `json:"productName"`
}

// Validate checks field constraints and the total price invariant.
func (p SalePayload) Validate() error {
	if err := validateStruct(p); err != nil {
		return err
	}
	if !p.UnitPrice.MultiplyByInt(p.Quantity).Equals(p.TotalPrice) {
		return shared.ErrTotalMismatch
	}
	return nil
}

// StockPayload is the body of POST /stock/newStock.
type StockPayload struct {
	ProductID   shared.ID `json:"productId" validate:"required"`
	ShopID      shared.ID `json:"shopId" validate:"required"`
	Supplier    string    `json:"supplier" validate:"required,max=255"`
	Description string    `json:"description"`
	Quantity    int64     `json:"quantity" validate:"gt=0"`
}

// Validate checks field constraints
func (p StockPayload) Validate() error {
	return validateStruct(p)
}

// ShopPayload is the body of POST /shop/new-shop.
type ShopPayload struct {
	Name     string `json:"shop_name" validate:"required,max=100"`
	Location string `json:"location" validate:"max=255"`
}

// Validate checks field constraints
func (p ShopPayload) Validate() error {
	return validateStruct(p)
}

// ProductPayload is the body of POST /product/addProduct.
type ProductPayload struct {
	ShopID   shared.ID    `json:"shop_id" validate:"required"`
	Name     string       `json:"product_name" validate:"required,max=255"`
	Price    shared.Money `json:"price"`
	Quantity int64        `json:"quantity" validate:"gte=0"`
}

// Validate checks field constraints and rejects negative prices.
func (p ProductPayload) Validate() error {
	if err := validateStruct(p); err != nil {
		return err
	}
	if p.Price.IsNegative() {
		return shared.ErrInvalidInput.WithMessage("Price must not be negative")
	}
	return nil
}

// validateStruct runs the tag rules and turns the first failure into an
// INVALID_INPUT or INVALID_QUANTITY domain error.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return shared.ErrInvalidInput.WithMessage(err.Error())
	}
	fe := verrs[0]
	if fe.Field() == "Quantity" {
		return shared.ErrInvalidQuantity
	}
	return shared.ErrInvalidInput.WithMessage(fieldMessage(fe))
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	default:
		return field + " is invalid"
	}
}
