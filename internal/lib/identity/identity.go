// Package identity реализует проверку подписанных identity-токенов внешнего
// провайдера. Токен имеет вид base64url(payload).base64url(signature), где
// payload — JSON с полями uid, label, email и exp, а подпись — HMAC-SHA256
// от закодированного payload на общем секрете.
package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/magabrotheeeer/access-engine/internal/models"
)

// ErrInvalidToken — токен не прошёл проверку: подпись, формат или срок.
// Запрос с таким токеном отклоняется как неавторизованный и не повторяется.
var ErrInvalidToken = errors.New("invalid identity token")

type payload struct {
	UID   string `json:"uid"`
	Label string `json:"label"`
	Email string `json:"email,omitempty"`
	Exp   int64  `json:"exp"`
}

// Verifier проверяет identity-токены на общем секрете.
type Verifier struct {
	secret []byte
}

// NewVerifier создаёт Verifier с заданным секретом.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify разбирает токен, сверяет подпись константным по времени сравнением
// и проверяет срок действия. Возвращает данные пользователя либо ErrInvalidToken.
func (v *Verifier) Verify(token string) (*models.Identity, error) {
	const op = "identity.Verify"

	encPayload, encSig, ok := strings.Cut(token, ".")
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	sig, err := base64.RawURLEncoding.DecodeString(encSig)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(encPayload))
	if !hmac.Equal(mac.Sum(nil), sig) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	raw, err := base64.RawURLEncoding.DecodeString(encPayload)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	if p.UID == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	if p.Exp != 0 && time.Now().Unix() > p.Exp {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return &models.Identity{
		UserUID: p.UID,
		Label:   p.Label,
		Email:   p.Email,
	}, nil
}

// Issue подписывает identity-токен. Используется в тестах и локальных стендах,
// боевые токены выпускает внешний провайдер тем же форматом.
func (v *Verifier) Issue(id models.Identity, ttl time.Duration) (string, error) {
	const op = "identity.Issue"

	p := payload{
		UID:   id.UserUID,
		Label: id.Label,
		Email: id.Email,
	}
	if ttl > 0 {
		p.Exp = time.Now().Add(ttl).Unix()
	}

	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	encPayload := base64.RawURLEncoding.EncodeToString(raw)

	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(encPayload))
	sig := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))

	return encPayload + "." + sig, nil
}
