package smtp

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/time-capsule-api/internal/domain"
	"github.com/time-capsule-api/internal/pkg/timeutil"
)

type email struct {
	subject string
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

func newEmail(subject, text, html string) email {
	return email{
		subject: subject,
		text:    texttemplate.Must(texttemplate.New("text").Parse(text)),
		html:    htmltemplate.Must(htmltemplate.New("html").Parse(html)),
	}
}

func (e email) render(to string, data any) (Message, error) {
	var text, html bytes.Buffer
	if err := e.text.Execute(&text, data); err != nil {
		return Message{}, err
	}
	if err := e.html.Execute(&html, data); err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: e.subject, Text: strings.TrimSpace(text.String()), HTML: html.String()}, nil
}

var (
	verificationEmail = newEmail("Verify Your Time Capsule Email",
		`Verify your email with this code: {{.Code}} (expires in {{.Minutes}} minutes)`,
		`<h1>Verify Your Email</h1>
<p>Welcome to Time Capsule! Please verify your email to get started.</p>
<p><strong>Your verification code is:</strong></p>
<h2 style="background: #f0f0f0; padding: 10px; border-radius: 5px;">{{.Code}}</h2>
<p>This code will expire in {{.Minutes}} minutes.</p>
<p>If you didn't create a Time Capsule account, please ignore this email.</p>`)

	loginOTPEmail = newEmail("Your Time Capsule OTP",
		`Your Time Capsule OTP is: {{.Code}} (expires in {{.Minutes}} minutes)`,
		`<h1>Your OTP Code</h1>
<p>Use this code to login to Time Capsule:</p>
<h2 style="background: #f0f0f0; padding: 10px; border-radius: 5px;">{{.Code}}</h2>
<p>This code will expire in {{.Minutes}} minutes.</p>
<p>If you didn't request this code, please ignore this email.</p>`)

	recoveryEmail = newEmail("Reset Your Time Capsule Password",
		`Your password reset code is: {{.Code}} (expires in {{.Minutes}} minutes)`,
		`<h1>Password Reset</h1>
<p>Use this code to choose a new password:</p>
<h2 style="background: #f0f0f0; padding: 10px; border-radius: 5px;">{{.Code}}</h2>
<p>This code will expire in {{.Minutes}} minutes.</p>
<p>If you didn't request a reset, you can ignore this email.</p>`)

	capsuleCreatedEmail = newEmail("Your time capsule is created",
		`Your capsule '{{.Title}}' is saved. Unlock date: {{.UnlockDate}}. We will remind you before it unlocks.`,
		`<div>
<h2>Time Capsule Created</h2>
<p>Your capsule <strong>{{.Title}}</strong> is saved.</p>
<p>Unlock date: {{.UnlockDate}}</p>
<p>We will remind you before it unlocks.</p>
</div>`)

	reminderEmail = newEmail("Your time capsule unlocks soon",
		`Your capsule '{{.Title}}' unlocks soon. Unlock date: {{.UnlockDate}}.`,
		`<div>
<h2>Unlock Reminder</h2>
<p>Your capsule <strong>{{.Title}}</strong> unlocks soon.</p>
<p>Unlock date: {{.UnlockDate}}</p>
<p>Get ready to open it!</p>
</div>`)
)

// CodeEmail renders the message carrying a one-time code for purpose.
func CodeEmail(to string, purpose domain.Purpose, code string, lifetime time.Duration) (Message, error) {
	data := struct {
		Code    string
		Minutes int
	}{code, int(lifetime.Minutes())}

	switch purpose {
	case domain.PurposeEmailVerify:
		return verificationEmail.render(to, data)
	case domain.PurposeRecoveryOTP:
		return recoveryEmail.render(to, data)
	default:
		return loginOTPEmail.render(to, data)
	}
}

type capsuleData struct {
	Title      string
	UnlockDate string
}

func CapsuleCreatedEmail(to string, c *domain.Capsule) (Message, error) {
	return capsuleCreatedEmail.render(to, capsuleData{c.Title, timeutil.Humanize(c.UnlockDate)})
}

func ReminderEmail(to string, c *domain.Capsule) (Message, error) {
	return reminderEmail.render(to, capsuleData{c.Title, timeutil.Humanize(c.UnlockDate)})
}
