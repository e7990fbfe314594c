package order

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/sokoswift/internal/cart"
)

type Status string

const (
	StatusProcessing Status = "Processing"
	StatusPaid       Status = "Paid"
	StatusShipped    Status = "Shipped"
	StatusDelivered  Status = "Delivered"
	StatusCancelled  Status = "Cancelled"
)

func (s Status) String() string {
	return string(s)
}

type LineItem struct {
	ID        int64           `json:"id" db:"id"`
	OrderID   int64           `json:"order_id" db:"order_id"`
	ProductID int64           `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price" db:"unit_price"`
}

type Order struct {
	ID              int64           `json:"id" db:"id"`
	CustomerID      int64           `json:"customer_id" db:"customer_id"`
	Status          Status          `json:"status" db:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount" db:"total_amount"`
	PaymentMethod   string          `json:"payment_method" db:"payment_method"`
	DeliveryAddress string          `json:"delivery_address" db:"delivery_address"`
	Items           []LineItem      `json:"items" db:"-"` // loaded separately from order_items
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

type PlaceOrderInput struct {
	DeliveryAddress string
	PaymentMethod   string
	Items           []cart.LineItem
}

// Receipt is what a successful placement reports back to the caller.
type Receipt struct {
	OrderID         int64
	CustomerID      int64
	Status          Status
	Total           decimal.Decimal
	DeliveryAddress string
	PaymentMethod   string
	Items           []LineItem
	CreatedAt       time.Time
}
