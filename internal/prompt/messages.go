package prompt

import (
	"fmt"
	"strings"

	"github.com/vnote-labs/coach/internal/llm"
)

// StopSequences end a completion that starts speaking for the customer.
var StopSequences = []string{"\nCustomer:", "\nCUSTOMER:", "\nClient:", "\nProspect:", "\nUSER:"}

const reminderText = `Reminder: you coach the AGENT. Do not write lines for the customer and never prefix anything with "Customer:".`

// UserPrompt is the final user message carrying the latest customer input.
func UserPrompt(lastCustomer string, reminder bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Latest customer message:\n%q\n\nPropose the agent's next line as JSON.", Truncate(strings.TrimSpace(lastCustomer), MaxFieldChars*2))
	if reminder {
		b.WriteString("\n\n")
		b.WriteString(reminderText)
	}
	return b.String()
}

// Messages builds the chat message list: the system prompt, the state
// context as a second system message when non-blank, then the user prompt.
func Messages(system, context, user string) []llm.Message {
	msgs := []llm.Message{{Role: llm.RoleSystem, Content: system}}
	if strings.TrimSpace(context) != "" {
		msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: context})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: user})
}
