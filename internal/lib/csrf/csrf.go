package csrf

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Токены CSRF привязываются к идентификатору сессии: token = ts + "." + HMAC(secret, sessionID|ts).
// Хранить выданные токены на сервере не нужно, проверка чисто криптографическая.

const tokenTTL = 2 * time.Hour

// Signer выпускает и проверяет CSRF-токены.
type Signer struct {
	secret []byte
	now    func() time.Time // подменяется в тестах
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret), now: time.Now}
}

// Issue выпускает токен для указанной сессии.
func (s *Signer) Issue(sessionID string) string {
	ts := strconv.FormatInt(s.now().Unix(), 10)
	return ts + "." + s.sign(sessionID, ts)
}

// Verify проверяет подпись и срок действия токена.
func (s *Signer) Verify(sessionID, token string) bool {
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return false
	}
	ts, sig := parts[0], parts[1]

	issued, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	if s.now().Sub(time.Unix(issued, 0)) > tokenTTL {
		return false
	}

	expected := s.sign(sessionID, ts)
	return hmac.Equal([]byte(expected), []byte(sig))
}

func (s *Signer) sign(sessionID, ts string) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%s", sessionID, ts)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
