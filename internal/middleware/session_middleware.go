package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"welfareBot/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pobyzaarif/goshortcute"
)

const sessionIDKey = "session_id"

type SessionConfig struct {
	CookieName string
	// AES key, 16, 24 or 32 bytes.
	CookieKey string
	TTL       time.Duration
	Secure    bool
}

// Session attaches a browser session id to every request. The id lives in a
// cookie sealed with AES-CBC so clients cannot pick another session's id.
func Session(cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var sessionID string

			if cookie, err := c.Cookie(cfg.CookieName); err == nil && cookie.Value != "" {
				id, err := OpenSessionID(cookie.Value, cfg.CookieKey)
				if err != nil {
					logger.Debug("discarding unreadable session cookie", "error", err)
				} else {
					sessionID = id
				}
			}

			if sessionID == "" {
				sessionID = uuid.NewString()
				sealed, err := SealSessionID(sessionID, cfg.CookieKey)
				if err != nil {
					logger.Error("failed to seal session cookie", "error", err)
					return next(c)
				}
				c.SetCookie(&http.Cookie{
					Name:     cfg.CookieName,
					Value:    sealed,
					Path:     "/",
					MaxAge:   int(cfg.TTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			c.Set(sessionIDKey, sessionID)
			return next(c)
		}
	}
}

// SessionIDFromContext is empty when the session middleware is not mounted.
func SessionIDFromContext(c echo.Context) string {
	if id, ok := c.Get(sessionIDKey).(string); ok {
		return id
	}
	return ""
}

func SealSessionID(sessionID, key string) (string, error) {
	encrypted, err := goshortcute.AESCBCEncrypt([]byte(sessionID), []byte(key))
	if err != nil {
		return "", fmt.Errorf("encrypt session id: %w", err)
	}
	return goshortcute.StringtoBase64Encode(encrypted), nil
}

func OpenSessionID(value, key string) (id string, err error) {
	// malformed ciphertext can panic inside the block cipher
	defer func() {
		if r := recover(); r != nil {
			id, err = "", fmt.Errorf("decrypt session id: %v", r)
		}
	}()

	decoded := goshortcute.StringtoBase64Decode(value)
	if decoded == "" {
		return "", errors.New("session cookie is not base64")
	}

	plain, err := goshortcute.AESCBCDecrypt([]byte(decoded), []byte(key))
	if err != nil {
		return "", fmt.Errorf("decrypt session id: %w", err)
	}
	if _, err := uuid.Parse(plain); err != nil {
		return "", fmt.Errorf("session id is not a uuid: %w", err)
	}
	return plain, nil
}
