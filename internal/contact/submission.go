package contact

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	// MaxBodyBytes bounds the request body accepted for a submission.
	MaxBodyBytes = 64 << 10

	// MaxMessageRunes is how much of the message is forwarded.
	MaxMessageRunes = 1200
)

// ErrValidation marks every client input problem: malformed JSON or a field
// that fails validation.
var ErrValidation = errors.New("validation failed")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Submission is a visitor's contact form. It is never stored.
type Submission struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,contains=@"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message" validate:"min=10"`
}

// Normalize trims surrounding whitespace from every field.
func (s *Submission) Normalize() {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Subject = strings.TrimSpace(s.Subject)
	s.Message = strings.TrimSpace(s.Message)
}

// Validate checks a normalized submission.
func (s Submission) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", strings.ToLower(fe.Field()), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// Parse decodes, normalizes and validates a JSON body. An empty body is
// treated as an empty object and therefore fails validation.
func Parse(body []byte) (Submission, error) {
	var sub Submission

	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &sub); err != nil {
			return Submission{}, fmt.Errorf("%w: malformed JSON: %v", ErrValidation, err)
		}
	}

	sub.Normalize()
	if err := sub.Validate(); err != nil {
		return Submission{}, err
	}
	return sub, nil
}

// Format renders the notification text for a submission.
func Format(s Submission) string {
	var b strings.Builder
	b.WriteString("New Contact\n")
	fmt.Fprintf(&b, "Name: %s\n", s.Name)
	fmt.Fprintf(&b, "Email: %s\n", s.Email)
	if s.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", s.Subject)
	}
	fmt.Fprintf(&b, "Message: %s", truncate(s.Message, MaxMessageRunes))
	return b.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
