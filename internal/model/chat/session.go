package chat

// Session is the client view of one browsing session's conversation.
type Session struct {
	ID         string `json:"sessionId"`
	Turns      []Turn `json:"turns"`
	Generating bool   `json:"generating"`
}
