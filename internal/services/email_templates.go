package services

import (
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"
)

// EmailComposer builds the transactional messages. Links point at the
// front-end, which posts the token back to the API.
type EmailComposer struct {
	frontURL string
}

func NewEmailComposer(frontURL string) *EmailComposer {
	return &EmailComposer{frontURL: strings.TrimRight(frontURL, "/")}
}

func (c *EmailComposer) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", c.frontURL, path, url.QueryEscape(token))
}

func (c *EmailComposer) Verification(to, token string, expiresIn time.Duration) Message {
	link := c.link("/verify-email", token)
	return Message{
		To:      to,
		Subject: "Verify your email address",
		HTML: fmt.Sprintf(`<p>Thank you for creating an account. Please verify your email address:</p>
<p><a href="%s">Verify Email Address</a></p>
<p>This link expires in %s. If you did not sign up, you can ignore this email.</p>`, link, humanDuration(expiresIn)),
		Text: fmt.Sprintf("Verify your email address: %s\n\nThis link expires in %s. If you did not sign up, you can ignore this email.\n",
			link, humanDuration(expiresIn)),
	}
}

func (c *EmailComposer) PasswordReset(to, token string, expiresIn time.Duration) Message {
	link := c.link("/reset-password", token)
	return Message{
		To:      to,
		Subject: "Reset your password",
		HTML: fmt.Sprintf(`<p>A password reset was requested for your account.</p>
<p><a href="%s">Reset Password</a></p>
<p>This link expires in %s. If you did not request it, no action is needed.</p>`, link, humanDuration(expiresIn)),
		Text: fmt.Sprintf("Reset your password: %s\n\nThis link expires in %s. If you did not request it, no action is needed.\n",
			link, humanDuration(expiresIn)),
	}
}

func (c *EmailComposer) AccountLocked(to, reason string) Message {
	return Message{
		To:      to,
		Subject: "Your account has been locked",
		HTML:    fmt.Sprintf("<p>Your account has been locked.</p><p>Reason: %s</p><p>Please contact support.</p>", html.EscapeString(reason)),
		Text:    fmt.Sprintf("Your account has been locked.\nReason: %s\nPlease contact support.\n", reason),
	}
}

func (c *EmailComposer) AccountDeleted(to string) Message {
	return Message{
		To:      to,
		Subject: "Your account has been deleted",
		HTML:    "<p>Your account has been deleted. If this was not you, please contact support.</p>",
		Text:    "Your account has been deleted. If this was not you, please contact support.\n",
	}
}

func humanDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return d.String()
}
