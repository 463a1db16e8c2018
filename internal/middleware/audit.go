package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/huangang/rendermarket/internal/services"
)

const maxAuditBody = 2000

var sensitiveKeys = map[string]bool{
	"password":     true,
	"token":        true,
	"secret":       true,
	"access_token": true,
}

// AuditLog records every write request to system_logs, including rejected
// ones, so refused transitions leave a trace next to committed ones.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != http.MethodPost && method != http.MethodPut && method != http.MethodDelete {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			raw, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
			body = maskSensitiveFields(raw)
			if len(body) > maxAuditBody {
				body = body[:maxAuditBody] + "...[truncated]"
			}
		}

		c.Next()

		actor := ActorFrom(c)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		var uid *uint
		if actor.ID > 0 {
			id := actor.ID
			uid = &id
		}

		extra := map[string]interface{}{
			"method": method,
			"path":   c.Request.URL.Path,
			"status": status,
			"body":   body,
			"role":   actor.Role,
		}
		if len(c.Errors) > 0 {
			extra["error"] = c.Errors.String()
		}

		action := method + " " + route
		message := auditMessage(GetEmail(c), action, status)
		switch {
		case status >= 500:
			services.LogError("api", action, message, uid, c.ClientIP(), c.Request.UserAgent(), extra)
		case status >= 400:
			services.LogWarning("api", action, message, uid, c.ClientIP(), c.Request.UserAgent(), extra)
		default:
			services.LogInfo("api", action, message, uid, c.ClientIP(), c.Request.UserAgent(), extra)
		}
	}
}

func auditMessage(who, action string, status int) string {
	if who == "" {
		who = "anonymous"
	}
	outcome := "OK"
	if status >= 400 {
		outcome = "Failed " + http.StatusText(status)
	}
	return "[Audit] " + who + " " + action + " -> " + outcome
}

// maskSensitiveFields replaces credential values in a JSON body. Bodies
// that are not JSON objects are returned as they are.
func maskSensitiveFields(raw []byte) string {
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return string(raw)
	}
	maskValue(doc)
	out, err := json.Marshal(doc)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

func maskValue(v interface{}) {
	switch t := v.(type) {
	case map[string]interface{}:
		for k, val := range t {
			if sensitiveKeys[strings.ToLower(k)] {
				t[k] = "***"
				continue
			}
			maskValue(val)
		}
	case []interface{}:
		for _, item := range t {
			maskValue(item)
		}
	}
}
