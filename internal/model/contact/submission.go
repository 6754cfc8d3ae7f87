package contact

// Form is the public contact form payload.
type Form struct {
	Name    string `json:"name" validate:"required,min=2,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,min=10,max=1000"`
}

// Submission is the payload posted when a chat conversation yields a
// complete contact record.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company"`
	Message string `json:"message"`
}

// SubmitResult is the submission endpoint response. Success is the only
// signal that allows a stored record to be cleared.
type SubmitResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	EmailSent bool   `json:"emailSent"`
}
