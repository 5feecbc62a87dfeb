package notifier

import (
	"fmt"
	"strings"
)

// FormatText renders an event as a short chat message for operators.
func FormatText(ev Event) string {
	var b strings.Builder
	switch ev.Kind {
	case NewApplication:
		b.WriteString("🆕 New application\n")
	case ClientApproved:
		b.WriteString("✅ Client approved\n")
	case ProofSubmitted:
		b.WriteString("🧾 Payment proof submitted\n")
	case ProofConfirmed:
		b.WriteString("💰 Payment proof confirmed\n")
	case SundayActivated:
		fmt.Fprintf(&b, "📅 Sunday activation: %d account(s) now active\n", ev.Count)
	default:
		fmt.Fprintf(&b, "%s\n", ev.Kind)
	}

	line := func(label, v string) {
		if v != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, v)
		}
	}
	line("Name", ev.ClientName)
	line("Email", ev.ClientEmail)
	line("WhatsApp", ev.ClientWhatsApp)
	line("Status", ev.Status)
	line("Amount", ev.Amount)

	return strings.TrimRight(b.String(), "\n")
}
