package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/five82/trolley/internal/cart"
)

// CartResponse mirrors GET /cart.
type CartResponse struct {
	Items       []LineResponse  `json:"items" validate:"dive"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
}

// LineResponse is one cart row as the backend sends it.
type LineResponse struct {
	ItemID    int64           `json:"item_id" validate:"required,gt=0"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity" validate:"min=1"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Product   *ProductRef     `json:"product,omitempty"`
}

// ProductRef is the product embedded in a cart row.
type ProductRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// ItemPatch is the body of PATCH /cart/{item_id}. Nil fields are omitted.
type ItemPatch struct {
	Quantity   *int           `json:"quantity,omitempty" validate:"omitempty,min=1"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// QuantityPatch builds an ItemPatch that only sets quantity.
func QuantityPatch(quantity int) ItemPatch {
	return ItemPatch{Quantity: &quantity}
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e errorResponse) text() string {
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	return strings.TrimSpace(e.Error)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Validate checks the payload for rows the engine cannot work with.
func (r CartResponse) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("validate cart: %w", err)
	}
	seen := make(map[int64]struct{}, len(r.Items))
	for _, item := range r.Items {
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("validate cart: item %d has negative unit_price", item.ItemID)
		}
		if _, dup := seen[item.ItemID]; dup {
			return fmt.Errorf("validate cart: duplicate item_id %d", item.ItemID)
		}
		seen[item.ItemID] = struct{}{}
	}
	return nil
}

// ToCart converts the payload into the client model, copying display
// fields from the embedded product.
func (r CartResponse) ToCart() cart.Cart {
	c := cart.Cart{
		ReportedTotal:      r.TotalAmount,
		ReportedGrandTotal: r.GrandTotal,
	}
	if len(r.Items) > 0 {
		c.Items = make([]cart.Line, 0, len(r.Items))
	}
	for _, item := range r.Items {
		c.Items = append(c.Items, item.ToLine())
	}
	return c
}

// ToLine converts one row.
func (l LineResponse) ToLine() cart.Line {
	line := cart.Line{
		ItemID:    l.ItemID,
		ProductID: l.ProductID,
		Quantity:  l.Quantity,
		UnitPrice: l.UnitPrice,
	}
	if l.Product != nil {
		line.Name = l.Product.Name
		line.Image = l.Product.Image
		if line.ProductID == 0 {
			line.ProductID = l.Product.ID
		}
	}
	return line
}

// NewCartResponse renders a cart in wire form, with backend-style totals.
func NewCartResponse(c cart.Cart, taxRate decimal.Decimal) CartResponse {
	totals := cart.DeriveTotals(c, taxRate)
	resp := CartResponse{
		Items:       make([]LineResponse, 0, len(c.Items)),
		TotalAmount: totals.Subtotal,
		GrandTotal:  totals.Total,
	}
	for _, line := range c.Items {
		resp.Items = append(resp.Items, LineResponse{
			ItemID:    line.ItemID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Product:   &ProductRef{ID: line.ProductID, Name: line.Name, Image: line.Image},
		})
	}
	return resp
}

// decodeCart accepts both a bare cart object and one wrapped in {"data": ...}.
func decodeCart(body []byte) (CartResponse, error) {
	var envelope struct {
		Data  json.RawMessage `json:"data"`
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return CartResponse{}, err
	}
	payload := body
	if len(envelope.Items) == 0 && len(bytes.TrimSpace(envelope.Data)) > 0 {
		payload = envelope.Data
	}
	var resp CartResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return CartResponse{}, err
	}
	return resp, nil
}
