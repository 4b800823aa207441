package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrTokenFormat = errors.New("invalid token format")
	ErrTokenSig    = errors.New("invalid token signature")
	ErrTokenExp    = errors.New("token expired")
	ErrTokenScope  = errors.New("token not valid for this action")
)

// ScopeAll authorizes every operator action.
const ScopeAll = "*"

// GenerateOperatorToken builds a token for one operator and action scope.
// Format: base64url(operator + "." + scope + "." + exp_unix + "." + hex(hmac_sha256(secret, operator+"."+scope+"."+exp)))
func GenerateOperatorToken(secret, operator, scope string, expUnix int64) (string, error) {
	if strings.Contains(operator, ".") || strings.Contains(scope, ".") {
		return "", ErrTokenFormat
	}
	msg := operator + "." + scope + "." + strconv.FormatInt(expUnix, 10)
	raw := msg + "." + sign(secret, msg)
	return base64.RawURLEncoding.EncodeToString([]byte(raw)), nil
}

// ValidateOperatorToken checks signature, expiry (with skew) and that the
// token covers action. Returns the embedded operator name.
func ValidateOperatorToken(secret, token, action string, now time.Time, skewSeconds int) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrTokenFormat
	}
	parts := strings.Split(string(b), ".")
	if len(parts) != 4 {
		return "", ErrTokenFormat
	}
	operator, scope, expStr, sigHex := parts[0], parts[1], parts[2], parts[3]
	exp, err := strconv.ParseInt(expStr, 10, 64)
	if err != nil {
		return "", ErrTokenFormat
	}
	got, err := hex.DecodeString(sigHex)
	if err != nil {
		return "", ErrTokenFormat
	}
	want, _ := hex.DecodeString(sign(secret, operator+"."+scope+"."+expStr))
	if !hmac.Equal(want, got) {
		return "", ErrTokenSig
	}
	if now.Unix() > exp+int64(skewSeconds) {
		return "", ErrTokenExp
	}
	if scope != ScopeAll && scope != action {
		return "", ErrTokenScope
	}
	return operator, nil
}

func sign(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return hex.EncodeToString(mac.Sum(nil))
}
