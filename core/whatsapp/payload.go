package whatsapp

// Payload is the subset of the Cloud API webhook body the bot reads.
type Payload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Messages         []Message `json:"messages"`
	Statuses         []Status  `json:"statuses"`
}

type Message struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *Text  `json:"text,omitempty"`
}

type Text struct {
	Body string `json:"body"`
}

type Status struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

// Messages flattens entry[].changes[].value.messages[] in delivery order.
func (p Payload) Messages() []Message {
	var out []Message
	for _, e := range p.Entry {
		for _, c := range e.Changes {
			out = append(out, c.Value.Messages...)
		}
	}
	return out
}

// TextBody returns the text of a text message, or "" for any other type.
func (m Message) TextBody() string {
	if m.Type != "text" || m.Text == nil {
		return ""
	}
	return m.Text.Body
}
