package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/rendermarket/internal/engagement"
	"github.com/huangang/rendermarket/internal/utils"
	"github.com/huangang/rendermarket/pkg/response"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
	ContextRole   = "role"
)

// BearerToken returns the token from the Authorization header, or from the
// token query parameter for clients such as EventSource that cannot set
// headers.
func BearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return ""
		}
		return parts[1]
	}
	return c.Query("token")
}

// AuthRequired rejects requests without a valid JWT and stores the actor
// identity on the context.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			response.Unauthorized(c, "authorization header required")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		if !engagement.Role(claims.Role).Valid() {
			response.Unauthorized(c, "token carries no marketplace role")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)

		c.Next()
	}
}

// RoleRequired allows the request through only for the given roles.
func RoleRequired(roles ...engagement.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := engagement.Role(GetRole(c))
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		response.Forbidden(c, "this endpoint is not available to your role")
		c.Abort()
	}
}

// ActorFrom builds the engine actor from the authenticated context.
func ActorFrom(c *gin.Context) engagement.Actor {
	return engagement.Actor{ID: GetUserID(c), Role: engagement.Role(GetRole(c))}
}

func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextUserID); exists {
		if v, ok := id.(uint); ok {
			return v
		}
	}
	return 0
}

func GetEmail(c *gin.Context) string {
	return c.GetString(ContextEmail)
}

func GetRole(c *gin.Context) string {
	return c.GetString(ContextRole)
}
