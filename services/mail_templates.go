package services

import (
	"fmt"
	"html"
	"time"

	"github.com/HSouheill/gym_backend/models"
)

const appName = "Gym Dashboard"

func otpEmail(to string, purpose models.OTPPurpose, code string, ttl time.Duration) Email {
	minutes := int(ttl.Minutes())

	subject := "Verify your email"
	intro := "Use the following code to finish creating your account:"
	if purpose == models.OTPPurposePasswordReset {
		subject = "Password reset code"
		intro = "You have requested to reset your password. Please use the following code to verify your request:"
	}

	text := fmt.Sprintf("%s\n\n%s\n\nThis code will expire in %d minutes.\nIf you did not request it, ignore this email.", intro, code, minutes)
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>%s</h2>
			<p>%s</p>
			<h3 style="background-color: #f0f0f0; padding: 10px; font-size: 24px; letter-spacing: 5px; text-align: center;">%s</h3>
			<p>This code will expire in %d minutes.</p>
			<p>If you did not request it, please ignore this email.</p>
			<p>Thank you,<br>The %s Team</p>
		</body>
		</html>
	`, subject, intro, code, minutes, appName)

	return Email{
		To:      to,
		Subject: fmt.Sprintf("%s - %s", appName, subject),
		HTML:    body,
		Text:    text,
	}
}

func welcomeEmail(user *models.User) Email {
	name := user.FullName
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf("Hello %s,\n\nYour %s account is ready. You can sign in any time with %s.", name, user.Role, user.Email)
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Welcome to %s</h2>
			<p>Hello %s,</p>
			<p>Your %s account is ready. You can sign in any time with <b>%s</b>.</p>
		</body>
		</html>
	`, appName, html.EscapeString(name), user.Role, html.EscapeString(user.Email))

	return Email{
		To:      user.Email,
		ToName:  user.FullName,
		Subject: "Welcome to " + appName,
		HTML:    body,
		Text:    text,
	}
}
