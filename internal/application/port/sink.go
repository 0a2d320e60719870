package port

// Sink renders formatted report output for a human.
type Sink interface {
	// WriteBlock writes a rendered block followed by a blank line.
	WriteBlock(title, body string) error
	// Notice writes a one-line status message.
	Notice(line string) error
}
