// Package paymentconfirm обрабатывает вебхуки подтверждения оплаты от
// платёжных каналов.
//
// Каждый канал подписывает тело запроса HMAC-SHA256 на своём секрете.
// Канал может доставить одно и то же подтверждение многократно: повторная
// доставка отвечает успехом с applied=false, зачисление при этом не
// повторяется.
package paymentconfirm

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/access-engine/internal/config"
	"github.com/magabrotheeeer/access-engine/internal/http/response"
	"github.com/magabrotheeeer/access-engine/internal/lib/sl"
	"github.com/magabrotheeeer/access-engine/internal/models"
)

// Service описывает интерфейс сведения подтверждений оплаты.
type Service interface {
	RecordConfirmation(ctx context.Context, c models.Confirmation) (bool, error)
}

// Handler обрабатывает подтверждения оплаты от платёжных каналов.
type Handler struct {
	log      *slog.Logger      // Логгер для записи информации и ошибок
	service  Service           // Сервис сведения платежей
	channels map[string]string // Секреты каналов по имени
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service, channels []config.PaymentChannel) *Handler {
	secrets := make(map[string]string, len(channels))
	for _, ch := range channels {
		secrets[ch.Name] = ch.Secret
	}
	return &Handler{
		log:      log,
		service:  service,
		channels: secrets,
		validate: validator.New(),
	}
}

// Проверка подписи канала (X-Signature) константным по времени сравнением.
func verifySignature(secret string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedSig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expectedSig), []byte(signature))
}

// ServeHTTP godoc
// @Summary Подтверждение оплаты
// @Description Принимает подтверждение от платёжного канала, зачисление выполняется ровно один раз на order_id
// @Tags Payments
// @Accept  json
// @Produce  json
// @Param channel path string true "Имя платёжного канала"
// @Param request body models.Confirmation true "Событие подтверждения"
// @Success 200 {object} response.Response "applied=true при первом подтверждении, false при повторе"
// @Failure 400 {object} response.ErrorResponse "Некорректное тело запроса"
// @Failure 401 {object} response.ErrorResponse "Неизвестный канал или неверная подпись"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации или неизвестный тариф"
// @Failure 500 {object} response.ErrorResponse "Зачисление не выполнено"
// @Router /payments/{channel}/confirm [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.confirm"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	channel := chi.URLParam(r, "channel")
	secret, ok := h.channels[channel]
	if !ok {
		log.Error("unknown payment channel", slog.String("channel", channel))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unknown payment channel"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Error("failed to read confirmation body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	defer func() {
		_ = r.Body.Close()
	}()

	signature := r.Header.Get("X-Signature")
	if signature == "" || !verifySignature(secret, body, signature) {
		log.Error("invalid or missing confirmation signature", slog.String("channel", channel))
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid signature"))
		return
	}

	var confirmation models.Confirmation
	if err := json.Unmarshal(body, &confirmation); err != nil {
		log.Error("failed to unmarshal confirmation", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(confirmation); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	confirmation.Channel = channel

	applied, err := h.service.RecordConfirmation(r.Context(), confirmation)
	if err != nil {
		if errors.Is(err, models.ErrUnknownPlan) {
			log.Error("unknown plan code in confirmation",
				slog.String("plan_code", confirmation.PlanCode))
			w.WriteHeader(http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("unknown plan code"))
			return
		}
		log.Error("failed to record confirmation",
			slog.String("order_id", confirmation.OrderID), sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("confirmation processed",
		slog.String("order_id", confirmation.OrderID),
		slog.String("channel", channel),
		slog.Bool("applied", applied))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"order_id": confirmation.OrderID,
		"applied":  applied,
	}))
}
