package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/walletd/internal/apierr"
	"github.com/congo-pay/walletd/internal/money"
	"github.com/congo-pay/walletd/internal/store"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service  *Service
	validate *validator.Validate
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service, validate: validator.New(validator.WithRequiredStructEnabled())}
}

type createRequest struct {
	WalletUUID     string          `json:"wallet_uuid" validate:"required,max=64"`
	InitialBalance json.RawMessage `json:"initial_balance"`
}

type operationRequest struct {
	OperationType string          `json:"operation_type"`
	Amount        json.RawMessage `json:"amount" validate:"required"`
}

type walletResponse struct {
	UUID    string `json:"uuid"`
	Balance string `json:"balance"`
}

type operationResponse struct {
	Message       string `json:"message"`
	OperationType string `json:"operation_type"`
	Balance       string `json:"balance"`
}

func toResponse(w Wallet) walletResponse {
	return walletResponse{UUID: w.ID, Balance: money.Format(w.Balance)}
}

// Create provisions a wallet with the caller-supplied identifier.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}
	initial := decimal.Zero
	if present(req.InitialBalance) {
		parsed, err := parseAmount(req.InitialBalance)
		if err != nil {
			return toAPIError(err)
		}
		initial = parsed
	}

	w, err := h.service.Create(c.UserContext(), CreateInput{ID: req.WalletUUID, InitialBalance: initial})
	if err != nil {
		return toAPIError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(w))
}

// List returns all wallets.
func (h *Handler) List(c *fiber.Ctx) error {
	wallets, err := h.service.List(c.UserContext())
	if err != nil {
		return toAPIError(err)
	}
	out := make([]walletResponse, len(wallets))
	for i, w := range wallets {
		out[i] = toResponse(w)
	}
	return c.Status(http.StatusOK).JSON(out)
}

// Get returns the wallet balance.
func (h *Handler) Get(c *fiber.Ctx) error {
	w, err := h.service.Get(c.UserContext(), c.Params("walletId"))
	if err != nil {
		return toAPIError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(w))
}

// Delete removes the wallet.
func (h *Handler) Delete(c *fiber.Ctx) error {
	id := c.Params("walletId")
	if err := h.service.Delete(c.UserContext(), id); err != nil {
		return toAPIError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message": fmt.Sprintf("Wallet %s deleted successfully", id),
	})
}

// Operation applies a deposit or withdrawal.
func (h *Handler) Operation(c *fiber.Ctx) error {
	var req operationRequest
	if err := h.parse(c, &req); err != nil {
		return err
	}

	// An unknown operation type wins over a malformed amount.
	if _, err := parseOperationType(req.OperationType); err != nil {
		return toAPIError(err)
	}
	if !present(req.Amount) {
		return apierr.New(http.StatusBadRequest, apierr.CodeInvalidRequest, "amount is required")
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return toAPIError(err)
	}

	res, err := h.service.PerformOperation(c.UserContext(), OperationInput{
		WalletID: c.Params("walletId"),
		Type:     req.OperationType,
		Amount:   amount,
	})
	if err != nil {
		return toAPIError(err)
	}
	return c.Status(http.StatusOK).JSON(operationResponse{
		Message:       fmt.Sprintf("%s successful", res.Type),
		OperationType: string(res.Type),
		Balance:       money.Format(res.Balance),
	})
}

func (h *Handler) parse(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apierr.New(http.StatusBadRequest, apierr.CodeInvalidRequest, err.Error())
	}
	if err := h.validate.Struct(out); err != nil {
		return apierr.New(http.StatusBadRequest, apierr.CodeInvalidRequest, err.Error())
	}
	return nil
}

// present reports whether a JSON field was sent with a non-null value.
func present(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}

// parseAmount accepts a JSON number or a JSON string holding a decimal literal.
func parseAmount(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	return money.Parse(s)
}

func toAPIError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apierr.New(http.StatusNotFound, apierr.CodeNotFound, "wallet not found")
	case errors.Is(err, store.ErrAlreadyExists):
		return apierr.New(http.StatusConflict, apierr.CodeAlreadyExists, "wallet already exists")
	case errors.Is(err, store.ErrInsufficientFunds):
		return apierr.New(http.StatusPaymentRequired, apierr.CodeInsufficientFunds, "insufficient funds")
	case errors.Is(err, store.ErrConflict), errors.Is(err, context.DeadlineExceeded):
		return apierr.New(http.StatusServiceUnavailable, apierr.CodeConflict, "wallet is busy, retry later")
	case errors.Is(err, money.ErrInvalidAmount):
		return apierr.New(http.StatusBadRequest, apierr.CodeInvalidAmount, err.Error())
	case errors.Is(err, ErrInvalidOperation):
		return apierr.New(http.StatusUnprocessableEntity, apierr.CodeInvalidOperation, err.Error())
	case errors.Is(err, ErrInvalidWalletID):
		return apierr.New(http.StatusBadRequest, apierr.CodeInvalidWalletID, err.Error())
	default:
		return err
	}
}
