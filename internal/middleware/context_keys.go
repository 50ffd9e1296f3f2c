package middleware

import "github.com/gin-gonic/gin"

// subjectKey is the key used to store the authenticated caller's subject in the request context.
const subjectKey = contextKey("subject")

// GetSubjectFromContext retrieves the authenticated subject (the JWT "sub" claim).
// It returns false when authentication is disabled or the request was not authenticated.
func GetSubjectFromContext(c *gin.Context) (string, bool) {
	subject, ok := c.Request.Context().Value(subjectKey).(string)
	if !ok || subject == "" {
		return "", false
	}
	return subject, true
}
