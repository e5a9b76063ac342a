package email

// Message is one outgoing mail. At least one body is required; with both,
// the HTML part is sent as the alternative.
type Message struct {
	To       []string
	Subject  string
	TextBody string
	HTMLBody string
}
