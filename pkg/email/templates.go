package email

import (
	"fmt"
	"html"
)

// SessionEmailData describes one side of a booked or cancelled session.
type SessionEmailData struct {
	To          string
	Name        string
	Counterpart string // the other party's display name
	Date        string // YYYY-MM-DD
	Time        string // HH:MM
	AppName     string
}

func (d SessionEmailData) appName() string {
	if d.AppName == "" {
		return productName
	}
	return d.AppName
}

func (d SessionEmailData) greeting() string {
	if d.Name == "" {
		return "Hi,"
	}
	return fmt.Sprintf("Hi %s,", d.Name)
}

// BuildSessionBookedEmail creates the booking confirmation sent to both parties.
func BuildSessionBookedEmail(data SessionEmailData) Message {
	appName := data.appName()
	subject := fmt.Sprintf("Session confirmed for %s at %s", data.Date, data.Time)
	line := fmt.Sprintf("Your session with %s on %s at %s is confirmed.", data.Counterpart, data.Date, data.Time)
	note := "You can cancel free of charge up to 24 hours before the session starts."

	return buildSessionMessage(data.To, subject, data.greeting(), line, note, appName)
}

// BuildSessionCancelledEmail creates the cancellation notice sent to both parties.
func BuildSessionCancelledEmail(data SessionEmailData) Message {
	appName := data.appName()
	subject := fmt.Sprintf("Session on %s at %s was cancelled", data.Date, data.Time)
	line := fmt.Sprintf("Your session with %s on %s at %s has been cancelled.", data.Counterpart, data.Date, data.Time)
	note := "The time slot is open again and can be booked from the calendar."

	return buildSessionMessage(data.To, subject, data.greeting(), line, note, appName)
}

func buildSessionMessage(to, subject, greeting, line, note, appName string) Message {
	closing := fmt.Sprintf("The %s Team", appName)

	textBody := fmt.Sprintf(`%s

%s

%s

%s`, greeting, line, note, closing)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2563eb;">%s</h2>
    <p>%s</p>
    <p style="color: #6b7280; font-size: 14px;">%s</p>
    <p style="color: #6b7280; font-size: 14px; margin-top: 30px; border-top: 1px solid #e5e7eb; padding-top: 20px;">
        %s
    </p>
</body>
</html>`,
		html.EscapeString(greeting), html.EscapeString(line), html.EscapeString(note), html.EscapeString(closing))

	return Message{
		To:       []string{to},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
	}
}
