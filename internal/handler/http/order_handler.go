package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/sokoswift/internal/cart"
	"github.com/vasiliy-maslov/sokoswift/internal/order"
)

type CheckoutRequest struct {
	DeliveryAddress string `json:"delivery_address" validate:"notblank,max=500"`
	PaymentMethod   string `json:"payment_method" validate:"notblank,max=64"`
}

type CartItemResponse struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Subtotal  string `json:"subtotal"`
}

type CheckoutResponse struct {
	Items []CartItemResponse `json:"items"`
	Total string             `json:"total"`
}

type OrderItemResponse struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type OrderResponse struct {
	ID              int64               `json:"id"`
	Status          string              `json:"status"`
	Total           string              `json:"total"`
	PaymentMethod   string              `json:"payment_method"`
	DeliveryAddress string              `json:"delivery_address"`
	CreatedAt       time.Time           `json:"created_at"`
	Items           []OrderItemResponse `json:"items"`
}

type OrderHandler struct {
	service  order.Service
	carts    cart.Provider
	validate *validator.Validate
}

func NewOrderHandler(service order.Service, carts cart.Provider) *OrderHandler {
	return &OrderHandler{
		service:  service,
		carts:    carts,
		validate: newValidator(),
	}
}

// RegisterRoutes mounts the order routes; every one of them requires a
// logged-in session.
func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Group(func(r chi.Router) {
		r.Use(RequireAuth)
		r.Get("/checkout", h.handleCheckoutView)
		r.Post("/checkout/submit", h.handleCheckoutSubmit)
		r.Get("/orders", h.handleListOrders)
		r.Get("/orders/{id}", h.handleGetOrder)
	})
}

func (h *OrderHandler) handleCheckoutView(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	items, err := h.carts.Snapshot(r.Context(), identity.SessionID)
	if err != nil {
		log.Error().Err(err).Int64("customer_id", identity.CustomerID).Msg("Failed to load cart snapshot")
		respondWithError(w, http.StatusInternalServerError, "Failed to load cart")
		return
	}

	response := CheckoutResponse{
		Items: make([]CartItemResponse, 0, len(items)),
		Total: order.CalculateTotal(items).StringFixed(2),
	}
	for _, item := range items {
		response.Items = append(response.Items, CartItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			Subtotal:  item.Subtotal().StringFixed(2),
		})
	}

	respondWithJSON(w, http.StatusOK, response)
}

func (h *OrderHandler) handleCheckoutSubmit(w http.ResponseWriter, r *http.Request) {
	var requestPayload CheckoutRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	identity := identityFromContext(r.Context())
	receipt, err := h.service.Checkout(r.Context(), identity, requestPayload.DeliveryAddress, requestPayload.PaymentMethod)
	if err != nil {
		statusCode := mapErrorToStatusCode(err)

		var clientMessage string
		switch {
		case errors.Is(err, order.ErrEmptyCart):
			clientMessage = "Cart is empty"
		case errors.Is(err, order.ErrInvalidLineItem):
			clientMessage = "Cart contains an invalid item"
		case errors.Is(err, order.ErrMissingOrderDetails):
			clientMessage = "Delivery address and payment method are required"
		case errors.Is(err, order.ErrOrderPersistence):
			log.Error().Err(err).Int64("customer_id", identity.CustomerID).Msg("Order placement rolled back")
			clientMessage = "Failed to place order"
		default:
			log.Error().Err(err).Int64("customer_id", identity.CustomerID).Msg("Failed to place order via service")
			clientMessage = "Failed to place order"
		}

		respondWithError(w, statusCode, clientMessage)
		return
	}

	respondWithJSON(w, http.StatusCreated, OrderResponse{
		ID:              receipt.OrderID,
		Status:          receipt.Status.String(),
		Total:           receipt.Total.StringFixed(2),
		PaymentMethod:   receipt.PaymentMethod,
		DeliveryAddress: receipt.DeliveryAddress,
		CreatedAt:       receipt.CreatedAt,
		Items:           toOrderItemResponses(receipt.Items),
	})
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	identity := identityFromContext(r.Context())

	orders, err := h.service.History(r.Context(), identity)
	if err != nil {
		log.Error().Err(err).Int64("customer_id", identity.CustomerID).Msg("Failed to get order history via service")
		respondWithError(w, mapErrorToStatusCode(err), "Failed to get order history")
		return
	}

	response := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		response = append(response, toOrderResponse(&orders[i]))
	}

	respondWithJSON(w, http.StatusOK, response)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	orderID, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil || orderID <= 0 {
		log.Warn().Str("order_id", idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return
	}

	identity := identityFromContext(r.Context())
	o, err := h.service.GetOrder(r.Context(), identity, orderID)
	if err != nil {
		statusCode := mapErrorToStatusCode(err)

		var clientMessage string
		if errors.Is(err, order.ErrOrderNotFound) {
			clientMessage = "Order not found"
		} else {
			log.Error().Err(err).Int64("order_id", orderID).Msg("Failed to get order via service")
			clientMessage = "Failed to get order"
		}

		respondWithError(w, statusCode, clientMessage)
		return
	}

	respondWithJSON(w, http.StatusOK, toOrderResponse(o))
}

func toOrderResponse(o *order.Order) OrderResponse {
	return OrderResponse{
		ID:              o.ID,
		Status:          o.Status.String(),
		Total:           o.TotalAmount.StringFixed(2),
		PaymentMethod:   o.PaymentMethod,
		DeliveryAddress: o.DeliveryAddress,
		CreatedAt:       o.CreatedAt,
		Items:           toOrderItemResponses(o.Items),
	}
}

func toOrderItemResponses(items []order.LineItem) []OrderItemResponse {
	out := make([]OrderItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, OrderItemResponse{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
		})
	}
	return out
}
