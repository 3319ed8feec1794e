// Package questions defines the optional extra registration fields an
// organizer can attach to an event (a toggleable phone field plus free-text
// questions) and validates submitted answers against them. Everything here is
// pure: no I/O, no panics, callers may invoke on every keystroke.
package questions

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const (
	MaxCustomQuestions  = 10
	MinQuestionLabelLen = 5
	MaxQuestionLabelLen = 200
	MaxAnswerLen        = 1000

	// PhoneAnswerKey is the reserved key in the answers map for the
	// built-in phone field. Question ids are uuids and cannot collide.
	PhoneAnswerKey = "phone"
)

// Permissive on purpose: a leading + and digits, spaces/dashes/parens
// tolerated in between. Real parsing authority lives with whoever dials.
var phoneRegex = regexp.MustCompile(`^\+[0-9][0-9 ()\-]{5,19}$`)

type PhoneField struct {
	Enabled  bool `json:"enabled"`
	Required bool `json:"required"`
}

type Question struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Order    int    `json:"order"`
}

// Schema describes the extra registration fields of one event. A nil *Schema
// means the event collects nothing beyond the built-in identity fields.
type Schema struct {
	Phone  PhoneField `json:"phone"`
	Custom []Question `json:"custom"`
}

// HasQuestions reports whether the schema collects anything at all.
// Safe on a nil receiver.
func (s *Schema) HasQuestions() bool {
	if s == nil {
		return false
	}
	return s.Phone.Enabled || len(s.Custom) > 0
}

// Sorted returns the custom questions in display order.
func (s *Schema) Sorted() []Question {
	if s == nil || len(s.Custom) == 0 {
		return nil
	}
	out := make([]Question, len(s.Custom))
	copy(out, s.Custom)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Normalize collapses an empty schema to nil so that "no questions" is stored
// as NULL rather than an empty object.
func Normalize(s *Schema) *Schema {
	if !s.HasQuestions() {
		return nil
	}
	return s
}

// NewQuestion appends a blank question at the end of the current list. The
// MaxCustomQuestions cap is enforced by the caller, not here.
func NewQuestion(existingCount int) Question {
	return Question{
		ID:    uuid.NewString(),
		Order: existingCount,
	}
}

// ValidateLabel checks a question label against the length bounds. The label
// is trimmed before measuring.
func ValidateLabel(label string) error {
	n := len([]rune(strings.TrimSpace(label)))
	if n < MinQuestionLabelLen {
		return fmt.Errorf("label must be at least %d characters", MinQuestionLabelLen)
	}
	if n > MaxQuestionLabelLen {
		return fmt.Errorf("label must be at most %d characters", MaxQuestionLabelLen)
	}
	return nil
}

// ValidateSchema checks a whole schema as submitted by the event editor:
// question count cap, label bounds, unique order values.
func ValidateSchema(s *Schema) error {
	if s == nil {
		return nil
	}
	if len(s.Custom) > MaxCustomQuestions {
		return fmt.Errorf("at most %d custom questions are allowed", MaxCustomQuestions)
	}
	seen := make(map[int]bool, len(s.Custom))
	for _, q := range s.Custom {
		if err := ValidateLabel(q.Label); err != nil {
			return fmt.Errorf("question %q: %w", q.ID, err)
		}
		if seen[q.Order] {
			return fmt.Errorf("duplicate question order %d", q.Order)
		}
		seen[q.Order] = true
	}
	return nil
}

// Result is the outcome of validating one submitted answer set. Valid holds
// exactly when Errors is empty.
type Result struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

// ValidateAnswers checks a submitted answer set against the schema. Missing
// values only fail required fields; oversized answers fail regardless. A nil
// schema accepts anything.
func ValidateAnswers(answers map[string]string, s *Schema) Result {
	errs := make(map[string]string)

	if s != nil && s.Phone.Enabled {
		phone := strings.TrimSpace(answers[PhoneAnswerKey])
		switch {
		case phone == "" && s.Phone.Required:
			errs[PhoneAnswerKey] = "phone number is required"
		case phone != "" && !phoneRegex.MatchString(phone):
			errs[PhoneAnswerKey] = "phone number must start with + followed by digits"
		}
	}

	if s != nil {
		for _, q := range s.Custom {
			answer := strings.TrimSpace(answers[q.ID])
			if answer == "" {
				if q.Required {
					errs[q.ID] = "an answer is required"
				}
				continue
			}
			if len([]rune(answer)) > MaxAnswerLen {
				errs[q.ID] = fmt.Sprintf("answer must be at most %d characters", MaxAnswerLen)
			}
		}
	}

	if len(errs) == 0 {
		return Result{Valid: true}
	}
	return Result{Valid: false, Errors: errs}
}

// FormatPhoneNumber groups digits for display. Cosmetic only: anything it
// does not recognize comes back unchanged.
func FormatPhoneNumber(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "+") {
		return raw
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, trimmed)
	if len(digits) < 7 || len(digits) > 15 {
		return raw
	}
	// Group in threes, remainder first, so the tail groups stay even.
	cc := (len(digits)-1)%3 + 1
	var b strings.Builder
	b.WriteByte('+')
	b.WriteString(digits[:cc])
	for i := cc; i < len(digits); i += 3 {
		end := i + 3
		if end > len(digits) {
			end = len(digits)
		}
		b.WriteByte(' ')
		b.WriteString(digits[i:end])
	}
	return b.String()
}

// EncodeSchema serializes a schema for storage. Empty schemas become nil so
// the column stays NULL.
func EncodeSchema(s *Schema) ([]byte, error) {
	s = Normalize(s)
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// ParseSchema deserializes a stored schema. NULL and JSON null both mean "no
// questions"; anything else must be a well-formed schema object.
func ParseSchema(data []byte) (*Schema, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("malformed custom questions payload: %w", err)
	}
	return Normalize(&s), nil
}
