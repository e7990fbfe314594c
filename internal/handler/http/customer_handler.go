package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/sokoswift/internal/customer"
	"github.com/vasiliy-maslov/sokoswift/internal/session"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=200"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Phone    string `json:"phone" validate:"required,min=7,max=32"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CustomerResponse struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginResponse struct {
	CustomerID int64 `json:"customer_id"`
}

type CustomerHandler struct {
	service  customer.Service
	sessions *SessionLoader
	validate *validator.Validate
}

func NewCustomerHandler(service customer.Service, sessions *SessionLoader) *CustomerHandler {
	return &CustomerHandler{
		service:  service,
		sessions: sessions,
		validate: newValidator(),
	}
}

func (h *CustomerHandler) RegisterRoutes(router chi.Router) {
	router.Post("/register", h.handleRegister)
	router.Post("/login", h.handleLogin)
	router.Post("/logout", h.handleLogout)
}

func (h *CustomerHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var requestPayload RegisterRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	created, err := h.service.Register(r.Context(), customer.RegisterInput{
		Name:     requestPayload.Name,
		Email:    requestPayload.Email,
		Phone:    requestPayload.Phone,
		Password: requestPayload.Password,
	})
	if err != nil {
		statusCode := mapErrorToStatusCode(err)

		var clientMessage string
		switch {
		case errors.Is(err, customer.ErrDuplicateIdentity):
			clientMessage = "Email or phone number already registered"
		case errors.Is(err, customer.ErrInvalidInput):
			clientMessage = "Name, email, phone and password are required"
		default:
			log.Error().Err(err).Msg("Failed to register customer via service")
			clientMessage = "Failed to register customer"
		}

		respondWithError(w, statusCode, clientMessage)
		return
	}

	respondWithJSON(w, http.StatusCreated, CustomerResponse{
		ID:        created.ID,
		FirstName: created.FirstName,
		LastName:  created.LastName,
		Email:     created.Email,
		Phone:     created.Phone,
		CreatedAt: created.CreatedAt,
	})
}

// handleLogin authenticates into a brand new session so an id issued before
// login never carries the authenticated state.
func (h *CustomerHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var requestPayload LoginRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	sess, err := h.sessions.manager.Start()
	if err != nil {
		log.Error().Err(err).Msg("Failed to start session for login")
		respondWithError(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	customerID, err := h.service.Login(r.Context(), sess, requestPayload.Email, requestPayload.Password)
	if err != nil {
		statusCode := mapErrorToStatusCode(err)

		var clientMessage string
		if errors.Is(err, customer.ErrInvalidCredentials) {
			clientMessage = "Invalid email or password"
		} else {
			log.Error().Err(err).Msg("Failed to log in via service")
			clientMessage = "Failed to log in"
		}

		respondWithError(w, statusCode, clientMessage)
		return
	}

	if err := h.sessions.setCookie(w, sess); err != nil {
		log.Error().Err(err).Int64("customer_id", customerID).Msg("Failed to issue session cookie")
		respondWithError(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	respondWithJSON(w, http.StatusOK, LoginResponse{CustomerID: customerID})
}

func (h *CustomerHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := h.service.Logout(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("Failed to log out via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to log out")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
