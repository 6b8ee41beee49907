package middleware

import (
	"bytes"
	"io"
	"strings"

	"github.com/forps/taskboard/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog records write operations (POST/PUT/PATCH/DELETE) to system_logs.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		// Only audit write operations
		if method != "POST" && method != "PUT" && method != "PATCH" && method != "DELETE" {
			c.Next()
			return
		}

		// Capture request body (up to 2000 chars for Extra)
		var bodySnippet string
		if c.Request.Body != nil {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			bodySnippet = string(bodyBytes)
			if len(bodySnippet) > 2000 {
				bodySnippet = bodySnippet[:2000] + "...[truncated]"
			}
			bodySnippet = maskSensitiveFields(bodySnippet)
		}

		c.Next()

		userID := GetUserID(c)
		email := GetEmail(c)
		ip := c.ClientIP()
		userAgent := c.Request.UserAgent()
		status := c.Writer.Status()

		module, action := parseRouteInfo(c.FullPath(), method)
		message := formatAuditMessage(email, method, c.Request.URL.Path, status)

		var uid *uuid.UUID
		if userID != uuid.Nil {
			id := userID
			uid = &id
		}

		services.LogInfo(module, action, message, uid, ip, userAgent, map[string]interface{}{
			"method": method,
			"path":   c.Request.URL.Path,
			"status": status,
			"body":   bodySnippet,
			"audit":  true,
		})
	}
}

// parseRouteInfo extracts module and action from a Gin route pattern.
// e.g. "/api/projects/:id" + "PATCH" → module="Projects", action="Update"
func parseRouteInfo(fullPath, method string) (module, action string) {
	path := strings.TrimPrefix(fullPath, "/api/")

	parts := strings.SplitN(path, "/", 2)
	module = parts[0]
	if module == "" {
		module = "unknown"
	}
	module = strings.Title(strings.ReplaceAll(module, "-", " "))

	switch method {
	case "POST":
		action = "Create"
	case "PUT", "PATCH":
		action = "Update"
	case "DELETE":
		action = "Delete"
	default:
		action = method
	}

	return module, action
}

// formatAuditMessage creates a human-readable audit message.
func formatAuditMessage(email, method, path string, status int) string {
	var b strings.Builder
	b.WriteString("[Audit] ")
	b.WriteString(email)
	b.WriteString(" ")
	b.WriteString(method)
	b.WriteString(" ")
	b.WriteString(path)
	b.WriteString(" → ")
	if status >= 200 && status < 300 {
		b.WriteString("OK")
	} else {
		b.WriteString("Failed")
	}
	return b.String()
}

// maskSensitiveFields replaces sensitive values in JSON body
func maskSensitiveFields(body string) string {
	sensitiveKeys := []string{"password", "secret", "token", "access_token"}
	lower := strings.ToLower(body)
	for _, key := range sensitiveKeys {
		if strings.Contains(lower, key) {
			body = maskJSONValue(body, key)
		}
	}
	return body
}

// maskJSONValue does a best-effort mask of JSON string values for a given key
func maskJSONValue(body, key string) string {
	lower := strings.ToLower(body)
	idx := strings.Index(lower, "\""+key+"\"")
	if idx == -1 {
		return body
	}

	colonIdx := strings.Index(body[idx+len(key)+2:], ":")
	if colonIdx == -1 {
		return body
	}
	valueStart := idx + len(key) + 2 + colonIdx + 1

	for valueStart < len(body) && (body[valueStart] == ' ' || body[valueStart] == '\t') {
		valueStart++
	}
	if valueStart >= len(body) {
		return body
	}

	if body[valueStart] == '"' {
		endQuote := strings.Index(body[valueStart+1:], "\"")
		if endQuote == -1 {
			return body
		}
		return body[:valueStart+1] + "***" + body[valueStart+1+endQuote:]
	}

	return body
}
