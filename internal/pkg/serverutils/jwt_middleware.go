// FILE: internal/pkg/serverutils/jwt_middleware.go
package serverutils

import (
	"errors"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// BearerClaims is what the external auth service puts in the tokens it issues.
// We only ever verify these, we never mint them.
type BearerClaims struct {
	UserID   string `json:"user_id"`
	FullName string `json:"full_name"`
	TokenID  string `json:"jti"`
}

// VerifyBearer checks signature and expiry of an HMAC bearer token and
// extracts the claims the sync layer cares about.
func VerifyBearer(tokenStr string) (*BearerClaims, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ErrInvalidToken
	}

	out := &BearerClaims{UserID: userID}
	if name, ok := claims["full_name"].(string); ok {
		out.FullName = name
	}
	if jti, ok := claims["jti"].(string); ok {
		out.TokenID = jti
	}
	return out, nil
}

func JwtMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
	}

	claims, err := VerifyBearer(authHeader[7:])
	if err != nil {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}

	ctx.Locals("user_id", claims.UserID)
	return ctx.Next()
}
