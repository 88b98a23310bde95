package email

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSubmissionUnmarshal_SentAt(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", `"2025-03-01T12:00:00Z"`, baseTime},
		{"offset", `"2025-03-01T13:00:00+01:00"`, baseTime},
		{"naive", `"2025-03-01T12:00:00"`, baseTime},
		{"null", `null`, time.Time{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sub Submission
			body := `{"sender": "a@acme.example", "sent_at": ` + tt.raw + `, "company_name": "Acme"}`
			if err := json.Unmarshal([]byte(body), &sub); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !sub.SentAt.Equal(tt.want) {
				t.Errorf("expected %s, got %s", tt.want, sub.SentAt)
			}
			if sub.Sender != "a@acme.example" || sub.CompanyName != "Acme" {
				t.Errorf("other fields not decoded: %+v", sub)
			}
		})
	}
}

func TestSubmissionUnmarshal_BadSentAt(t *testing.T) {
	var sub Submission
	if err := json.Unmarshal([]byte(`{"sent_at": "yesterday"}`), &sub); err == nil {
		t.Fatal("expected error for unparseable sent_at")
	}
}
