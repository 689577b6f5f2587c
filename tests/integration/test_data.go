package integration

import (
	"fmt"
	"strings"
	"time"
)

// TestUser generates unique test user credentials using timestamp
func TestUser(suffix string) (email, password string) {
	ts := time.Now().UnixNano()
	email = fmt.Sprintf("test-%d-%s@example.com", ts, suffix)
	password = "TestPassword123!"
	return
}

// ExtractTokenFromEmail returns the token query parameter of the link in an
// email body, or "" when the body carries no link.
func ExtractTokenFromEmail(emailBody string) string {
	_, rest, ok := strings.Cut(emailBody, "?token=")
	if !ok {
		return ""
	}
	if end := strings.IndexAny(rest, " \n\"<"); end >= 0 {
		return rest[:end]
	}
	return rest
}
