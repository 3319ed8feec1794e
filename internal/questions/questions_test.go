package questions

import (
	"strings"
	"testing"
)

func TestValidateLabel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		label   string
		wantErr bool
	}{
		{"too short", "Hi", true},
		{"short after trim", "  Hi   ", true},
		{"empty", "", true},
		{"minimum length", "Food?", false},
		{"typical", "What dietary restrictions do you have?", false},
		{"maximum length", strings.Repeat("q", MaxQuestionLabelLen), false},
		{"over maximum", strings.Repeat("q", MaxQuestionLabelLen+1), true},
		{"multibyte counts runes", strings.Repeat("ü", MaxQuestionLabelLen), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateLabel(tc.label)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateLabel(%q) error = %v, wantErr %v", tc.label, err, tc.wantErr)
			}
		})
	}
}

func TestNewQuestion(t *testing.T) {
	t.Parallel()

	q1 := NewQuestion(0)
	q2 := NewQuestion(1)

	if q1.ID == "" || q2.ID == "" {
		t.Fatalf("expected fresh ids, got %q and %q", q1.ID, q2.ID)
	}
	if q1.ID == q2.ID {
		t.Fatalf("ids must be unique, both were %q", q1.ID)
	}
	if q1.Order != 0 || q2.Order != 1 {
		t.Fatalf("expected orders 0 and 1, got %d and %d", q1.Order, q2.Order)
	}
	if q1.Required || q1.Label != "" {
		t.Fatalf("new question must start blank and optional: %+v", q1)
	}
}

func TestValidateSchema(t *testing.T) {
	t.Parallel()

	t.Run("nil schema is valid", func(t *testing.T) {
		if err := ValidateSchema(nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("too many questions", func(t *testing.T) {
		s := &Schema{}
		for i := 0; i <= MaxCustomQuestions; i++ {
			q := NewQuestion(i)
			q.Label = "A perfectly fine label"
			s.Custom = append(s.Custom, q)
		}
		if err := ValidateSchema(s); err == nil {
			t.Fatal("expected error for exceeding the question cap")
		}
	})

	t.Run("duplicate order", func(t *testing.T) {
		s := &Schema{Custom: []Question{
			{ID: "a", Label: "First question", Order: 0},
			{ID: "b", Label: "Second question", Order: 0},
		}}
		if err := ValidateSchema(s); err == nil {
			t.Fatal("expected error for duplicate order values")
		}
	})

	t.Run("bad label", func(t *testing.T) {
		s := &Schema{Custom: []Question{{ID: "a", Label: "??", Order: 0}}}
		if err := ValidateSchema(s); err == nil {
			t.Fatal("expected error for short label")
		}
	})
}

func TestValidateAnswers(t *testing.T) {
	t.Parallel()

	schema := &Schema{
		Phone: PhoneField{Enabled: true, Required: false},
		Custom: []Question{
			{ID: "q-diet", Label: "Dietary restrictions?", Required: true, Order: 0},
			{ID: "q-notes", Label: "Anything else we should know?", Required: false, Order: 1},
		},
	}

	cases := []struct {
		name       string
		answers    map[string]string
		schema     *Schema
		wantValid  bool
		wantErrKey string
	}{
		{
			name:      "all good",
			answers:   map[string]string{"phone": "+4915112345678", "q-diet": "vegetarian"},
			schema:    schema,
			wantValid: true,
		},
		{
			name:       "missing required question",
			answers:    map[string]string{"phone": "+4915112345678"},
			schema:     schema,
			wantValid:  false,
			wantErrKey: "q-diet",
		},
		{
			name:       "whitespace is missing",
			answers:    map[string]string{"q-diet": "   "},
			schema:     schema,
			wantValid:  false,
			wantErrKey: "q-diet",
		},
		{
			name:      "optional phone absent",
			answers:   map[string]string{"q-diet": "none"},
			schema:    schema,
			wantValid: true,
		},
		{
			name:       "bad phone format",
			answers:    map[string]string{"phone": "call me", "q-diet": "none"},
			schema:     schema,
			wantValid:  false,
			wantErrKey: "phone",
		},
		{
			name:       "oversized optional answer still fails",
			answers:    map[string]string{"q-diet": "none", "q-notes": strings.Repeat("x", MaxAnswerLen+1)},
			schema:     schema,
			wantValid:  false,
			wantErrKey: "q-notes",
		},
		{
			name: "required phone missing",
			answers: map[string]string{
				"q-diet": "none",
			},
			schema: &Schema{
				Phone:  PhoneField{Enabled: true, Required: true},
				Custom: []Question{{ID: "q-diet", Label: "Dietary restrictions?", Required: true, Order: 0}},
			},
			wantValid:  false,
			wantErrKey: "phone",
		},
		{
			name:      "nil schema accepts anything",
			answers:   map[string]string{"whatever": "value"},
			schema:    nil,
			wantValid: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := ValidateAnswers(tc.answers, tc.schema)
			if res.Valid != tc.wantValid {
				t.Fatalf("Valid = %v, want %v (errors: %v)", res.Valid, tc.wantValid, res.Errors)
			}
			if res.Valid != (len(res.Errors) == 0) {
				t.Fatalf("Valid must mirror empty Errors, got Valid=%v Errors=%v", res.Valid, res.Errors)
			}
			if tc.wantErrKey != "" {
				if _, ok := res.Errors[tc.wantErrKey]; !ok {
					t.Fatalf("expected error under key %q, got %v", tc.wantErrKey, res.Errors)
				}
			}
		})
	}
}

func TestFormatPhoneNumber(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"+4915112345678", "+4 915 112 345 678"},
		{"+15551234567", "+15 551 234 567"},
		{"+1234567", "+1 234 567"},
		{"not a phone", "not a phone"},
		{"12345", "12345"},
		{"+12", "+12"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := FormatPhoneNumber(tc.in); got != tc.want {
			t.Errorf("FormatPhoneNumber(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSchemaRoundTrip(t *testing.T) {
	t.Parallel()

	t.Run("empty schema serializes to nothing", func(t *testing.T) {
		data, err := EncodeSchema(&Schema{Phone: PhoneField{Enabled: false}, Custom: []Question{}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if data != nil {
			t.Fatalf("empty schema must encode to nil, got %s", data)
		}
		s, err := ParseSchema(data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.HasQuestions() {
			t.Fatal("round-tripped empty schema must report no questions")
		}
	})

	t.Run("json null means no schema", func(t *testing.T) {
		s, err := ParseSchema([]byte("null"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s != nil {
			t.Fatalf("expected nil schema, got %+v", s)
		}
	})

	t.Run("populated schema survives", func(t *testing.T) {
		in := &Schema{
			Phone: PhoneField{Enabled: true, Required: true},
			Custom: []Question{
				{ID: "q1", Label: "Where do you travel from?", Required: false, Order: 1},
				{ID: "q0", Label: "Dietary restrictions?", Required: true, Order: 0},
			},
		}
		data, err := EncodeSchema(in)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out, err := ParseSchema(data)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !out.HasQuestions() || !out.Phone.Required || len(out.Custom) != 2 {
			t.Fatalf("schema did not survive round trip: %+v", out)
		}
		sorted := out.Sorted()
		if sorted[0].ID != "q0" || sorted[1].ID != "q1" {
			t.Fatalf("Sorted must order by Order field, got %+v", sorted)
		}
	})

	t.Run("malformed payload rejected", func(t *testing.T) {
		if _, err := ParseSchema([]byte("{not json")); err == nil {
			t.Fatal("expected parse error")
		}
	})
}
