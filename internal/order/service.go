package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/sokoswift/internal/cart"
	"github.com/vasiliy-maslov/sokoswift/internal/events"
	"github.com/vasiliy-maslov/sokoswift/internal/session"
)

var allowedTransitions = map[Status]map[Status]bool{
	StatusProcessing: {
		StatusPaid:      true,
		StatusShipped:   true,
		StatusCancelled: true,
	},
	StatusPaid: {
		StatusShipped:   true,
		StatusCancelled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
		StatusCancelled: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

type Service interface {
	PlaceOrder(ctx context.Context, identity session.Identity, in PlaceOrderInput) (*Receipt, error)
	Checkout(ctx context.Context, identity session.Identity, deliveryAddress, paymentMethod string) (*Receipt, error)
	History(ctx context.Context, identity session.Identity) ([]Order, error)
	GetOrder(ctx context.Context, identity session.Identity, orderID int64) (*Order, error)
	UpdateStatus(ctx context.Context, orderID int64, newStatus Status) error
}

type service struct {
	orderRepo Repository
	history   HistoryReader
	carts     cart.Provider
	publisher events.Publisher
}

func NewService(orderRepo Repository, history HistoryReader, carts cart.Provider, publisher events.Publisher) Service {
	return &service{
		orderRepo: orderRepo,
		history:   history,
		carts:     carts,
		publisher: publisher,
	}
}

// CalculateTotal sums quantity × unit price exactly and rounds to two places.
func CalculateTotal(items []cart.LineItem) decimal.Decimal {
	return cart.Total(items)
}

func validateItems(items []cart.LineItem) error {
	for _, item := range items {
		if item.ProductID <= 0 {
			return fmt.Errorf("%w: product id must be positive, got %d", ErrInvalidLineItem, item.ProductID)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: quantity for product %d must be greater than zero", ErrInvalidLineItem, item.ProductID)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: unit price for product %d cannot be negative", ErrInvalidLineItem, item.ProductID)
		}
		// unit_price is stored as NUMERIC(12,2).
		if !item.UnitPrice.Equal(item.UnitPrice.Round(2)) {
			return fmt.Errorf("%w: unit price for product %d has more than two decimal places", ErrInvalidLineItem, item.ProductID)
		}
	}
	return nil
}

func (s *service) PlaceOrder(ctx context.Context, identity session.Identity, in PlaceOrderInput) (*Receipt, error) {
	if !identity.Authenticated() {
		return nil, session.ErrUnauthorized
	}

	if len(in.Items) == 0 {
		log.Warn().Int64("customer_id", identity.CustomerID).Msg("service: attempt to place order with empty cart")
		return nil, ErrEmptyCart
	}

	if err := validateItems(in.Items); err != nil {
		log.Warn().Err(err).Int64("customer_id", identity.CustomerID).Msg("service: rejected line item")
		return nil, err
	}

	paymentMethod := strings.TrimSpace(in.PaymentMethod)
	deliveryAddress := strings.TrimSpace(in.DeliveryAddress)
	if paymentMethod == "" || deliveryAddress == "" {
		log.Warn().Int64("customer_id", identity.CustomerID).Msg("service: order placed without delivery address or payment method")
		return nil, ErrMissingOrderDetails
	}

	o := &Order{
		CustomerID:      identity.CustomerID,
		Status:          StatusProcessing,
		TotalAmount:     CalculateTotal(in.Items),
		PaymentMethod:   paymentMethod,
		DeliveryAddress: deliveryAddress,
		Items:           make([]LineItem, 0, len(in.Items)),
	}
	for _, item := range in.Items {
		o.Items = append(o.Items, LineItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	orderID, err := s.orderRepo.CreateOrder(ctx, o)
	if err != nil {
		log.Error().Err(err).Int64("customer_id", identity.CustomerID).Msg("service: failed to create order in repository")
		return nil, &PersistenceError{Err: err}
	}
	o.ID = orderID

	log.Info().
		Int64("order_id", orderID).
		Int64("customer_id", identity.CustomerID).
		Str("total", o.TotalAmount.StringFixed(2)).
		Msg("service: order placed")

	s.publishPlaced(ctx, o)

	return &Receipt{
		OrderID:         orderID,
		CustomerID:      o.CustomerID,
		Status:          o.Status,
		Total:           o.TotalAmount,
		DeliveryAddress: o.DeliveryAddress,
		PaymentMethod:   o.PaymentMethod,
		Items:           o.Items,
		CreatedAt:       o.CreatedAt,
	}, nil
}

// publishPlaced runs after commit; a broker failure cannot undo the order.
func (s *service) publishPlaced(ctx context.Context, o *Order) {
	event := events.OrderPlaced{
		OrderID:         o.ID,
		CustomerID:      o.CustomerID,
		Status:          o.Status.String(),
		TotalAmount:     o.TotalAmount.StringFixed(2),
		PaymentMethod:   o.PaymentMethod,
		DeliveryAddress: o.DeliveryAddress,
		PlacedAt:        o.CreatedAt,
		Items:           make([]events.OrderPlacedItem, 0, len(o.Items)),
	}
	for _, item := range o.Items {
		event.Items = append(event.Items, events.OrderPlacedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
		})
	}

	if err := s.publisher.PublishOrderPlaced(ctx, event); err != nil {
		log.Error().Err(err).Int64("order_id", o.ID).Msg("service: failed to publish order placed event")
	}
}

func (s *service) Checkout(ctx context.Context, identity session.Identity, deliveryAddress, paymentMethod string) (*Receipt, error) {
	if !identity.Authenticated() {
		return nil, session.ErrUnauthorized
	}

	items, err := s.carts.Snapshot(ctx, identity.SessionID)
	if err != nil {
		log.Error().Err(err).Int64("customer_id", identity.CustomerID).Msg("service: failed to load cart snapshot")
		return nil, fmt.Errorf("service: failed to load cart: %w", err)
	}

	return s.PlaceOrder(ctx, identity, PlaceOrderInput{
		DeliveryAddress: deliveryAddress,
		PaymentMethod:   paymentMethod,
		Items:           items,
	})
}

func (s *service) History(ctx context.Context, identity session.Identity) ([]Order, error) {
	if !identity.Authenticated() {
		return nil, session.ErrUnauthorized
	}

	orders, err := s.history.ListByCustomer(ctx, identity.CustomerID)
	if err != nil {
		log.Error().Err(err).Int64("customer_id", identity.CustomerID).Msg("service: failed to fetch customer orders")
		return nil, fmt.Errorf("service: failed to fetch customer orders: %w", err)
	}

	return orders, nil
}

// GetOrder returns one of the caller's orders. Another customer's order is
// reported as not found.
func (s *service) GetOrder(ctx context.Context, identity session.Identity, orderID int64) (*Order, error) {
	if !identity.Authenticated() {
		return nil, session.ErrUnauthorized
	}

	o, err := s.history.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Int64("order_id", orderID).Msg("service: failed to fetch order by id")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}

	if o.CustomerID != identity.CustomerID {
		log.Warn().Int64("order_id", orderID).Int64("customer_id", identity.CustomerID).Msg("service: order belongs to another customer")
		return nil, ErrOrderNotFound
	}

	return o, nil
}

func (s *service) UpdateStatus(ctx context.Context, orderID int64, newStatus Status) error {
	if _, known := allowedTransitions[newStatus]; !known {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidStatusTransition, newStatus)
	}

	current, err := s.history.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Int64("order_id", orderID).Stringer("new_status", newStatus).Msg("service: order not found, cannot update status")
			return ErrOrderNotFound
		}
		return fmt.Errorf("service: failed to get order for status update: %w", err)
	}

	if current.Status == newStatus {
		log.Info().Int64("order_id", orderID).Stringer("status", newStatus).Msg("service: order status is already the same, no update needed")
		return nil
	}

	if !allowedTransitions[current.Status][newStatus] {
		log.Warn().
			Int64("order_id", orderID).
			Stringer("current_status", current.Status).
			Stringer("new_status", newStatus).
			Msg("service: invalid status transition attempt")
		return fmt.Errorf("%w: from %s to %s", ErrInvalidStatusTransition, current.Status, newStatus)
	}

	if err := s.orderRepo.UpdateOrderStatus(ctx, orderID, newStatus); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		log.Error().Err(err).Int64("order_id", orderID).Stringer("new_status", newStatus).Msg("service: failed to update order status in repository")
		return fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().Int64("order_id", orderID).Stringer("old_status", current.Status).Stringer("new_status", newStatus).Msg("service: order status updated")
	return nil
}

// StatusUpdateHandler applies broker status updates through svc. Unknown
// orders and disallowed transitions are marked as rejected.
func StatusUpdateHandler(svc Service) events.StatusHandler {
	return func(ctx context.Context, update events.StatusUpdate) error {
		err := svc.UpdateStatus(ctx, update.OrderID, Status(update.Status))
		if errors.Is(err, ErrInvalidStatusTransition) || errors.Is(err, ErrOrderNotFound) {
			return fmt.Errorf("%w: %w", events.ErrRejected, err)
		}
		return err
	}
}
