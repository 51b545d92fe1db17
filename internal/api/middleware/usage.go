package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-flow/internal/domain"
	"github.com/feral-file/ff-flow/internal/logger"
	"github.com/feral-file/ff-flow/internal/store"
)

// UserAddressHeader identifies the calling wallet
const UserAddressHeader = "X-User-Address"

const bearerPrefix = "Bearer "

// APIUsage counts the request against the caller's Usage.APICalls.
// The caller is the owner of a bearer API key, else the X-User-Address header.
// Requests that name neither are not counted.
func APIUsage(users store.UserStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		ctx := c.Request.Context()
		address := callerAddress(ctx, users, c)
		if address == "" {
			return
		}
		if _, err := users.UpdateUser(ctx, address, func(u *domain.User) error {
			u.Usage.APICalls++
			return nil
		}); err != nil {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to count api call: %w", err), logger.User(address))
		}
	}
}

func callerAddress(ctx context.Context, users store.UserStore, c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if key, ok := strings.CutPrefix(auth, bearerPrefix); ok && strings.TrimSpace(key) != "" {
		u, err := users.FindUserByAPIKey(ctx, strings.TrimSpace(key))
		if err == nil {
			return u.Address
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			logger.ErrorCtx(ctx, fmt.Errorf("failed to resolve api key: %w", err))
		}
	}
	return domain.NormalizeAddress(c.GetHeader(UserAddressHeader))
}
