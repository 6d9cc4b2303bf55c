// Package paymentcreate обрабатывает открытие новой покупки.
//
// Handler регистрирует покупку со статусом pending и возвращает order_id —
// ключ идемпотентности, по которому платёжные каналы будут присылать
// подтверждения.
package paymentcreate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/access-engine/internal/http/middlewarectx"
	"github.com/magabrotheeeer/access-engine/internal/http/response"
	"github.com/magabrotheeeer/access-engine/internal/lib/sl"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// OpenPurchaseRequest представляет запрос на открытие покупки.
type OpenPurchaseRequest struct {
	PlanCode string `json:"plan_code" validate:"required"`
}

// Service описывает интерфейс бизнес-логики открытия покупки.
type Service interface {
	OpenPurchase(ctx context.Context, userUID, planCode string) (*models.Purchase, error)
}

// Handler обрабатывает запросы на открытие покупки.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис сведения платежей
	validate *validator.Validate // Валидатор структуры входящих данных
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Открыть покупку
// @Description Регистрирует покупку тарифа со статусом pending и возвращает order_id
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param request body OpenPurchaseRequest true "Код тарифа"
// @Success 200 {object} response.Response "Покупка открыта"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации или неизвестный тариф"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /payments [post]
// @Security IdentityToken
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.create"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req OpenPurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user UID not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	purchase, err := h.service.OpenPurchase(r.Context(), userUID, req.PlanCode)
	if err != nil {
		if errors.Is(err, models.ErrUnknownPlan) {
			log.Error("unknown plan code", slog.String("plan_code", req.PlanCode))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("unknown plan code"))
			return
		}
		log.Error("failed to open purchase", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("success to open purchase", slog.String("order_id", purchase.OrderID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"order_id":       purchase.OrderID,
		"plan_code":      purchase.PlanCode,
		"amount_kopecks": purchase.AmountKopecks,
		"currency":       purchase.Currency,
		"status":         purchase.Status,
	}))
}
