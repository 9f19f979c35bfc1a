package pii

import (
	"reflect"
	"testing"

	"github.com/nao1215/darkthread/internal/model"
)

// TestScan tests PII detection per category.
func TestScan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want model.PIIFindings
	}{
		{
			name: "email and ip address",
			text: "Contact a@b.com or 1.2.3.4",
			want: model.PIIFindings{model.CategoryEmail: 1, model.CategoryIPAddress: 1},
		},
		{
			name: "phone number",
			text: "call 555-123-4567",
			want: model.PIIFindings{model.CategoryPhone: 1},
		},
		{
			name: "ssn",
			text: "my number is 123-45-6789",
			want: model.PIIFindings{model.CategorySSN: 1},
		},
		{
			name: "passport",
			text: "passport AB1234567 issued",
			want: model.PIIFindings{model.CategoryPassport: 1},
		},
		{
			name: "ethereum address",
			text: "send to 0x52908400098527886E0F7030069857D2E4169EE7 now",
			want: model.PIIFindings{model.CategoryEthereumAddress: 1},
		},
		{
			name: "bitcoin address",
			text: "btc: 1BoatSLRHtKNngkdXEeobR76b53LETtpyT",
			want: model.PIIFindings{model.CategoryBitcoinAddress: 1},
		},
		{
			name: "counts repeated matches",
			text: "x@example.com, y@example.org and z@example.net",
			want: model.PIIFindings{model.CategoryEmail: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Scan(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Scan(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

// TestScanOverlappingDetectors tests that detectors are not suppressed by each other.
func TestScanOverlappingDetectors(t *testing.T) {
	t.Parallel()

	got := Scan("card 4111 1111 1111 1111")
	if got[model.CategoryCreditCard] != 1 {
		t.Errorf("expected one credit card match, got %v", got)
	}
}

// TestScanReturnsNil tests that clean text yields nil rather than an empty map.
func TestScanReturnsNil(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "hello world", "Скидки на авиабилеты и отели", "version 1.2 released"} {
		got := Scan(text)
		if got != nil {
			t.Errorf("Scan(%q) = %v, want nil", text, got)
		}
	}
}

// TestDetectorsOrder tests that detectors follow the canonical category order.
func TestDetectorsOrder(t *testing.T) {
	t.Parallel()

	ds := Detectors()
	if len(ds) != len(model.CategoryOrder) {
		t.Fatalf("expected %d detectors, got %d", len(model.CategoryOrder), len(ds))
	}
	for i, d := range ds {
		if d.Category != model.CategoryOrder[i] {
			t.Errorf("detector %d: expected %s, got %s", i, model.CategoryOrder[i], d.Category)
		}
	}

	// Mutating the copy must not affect the package list.
	ds[0].Category = "changed"
	if Detectors()[0].Category != model.CategoryEmail {
		t.Error("Detectors returned the internal slice")
	}
}

// TestRedact tests match replacement.
func TestRedact(t *testing.T) {
	t.Parallel()

	t.Run("all categories", func(t *testing.T) {
		t.Parallel()

		got := Redact("mail a@b.com from 10.0.0.1", "***")
		if got != "mail *** from ***" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("selected categories only", func(t *testing.T) {
		t.Parallel()

		got := Redact("mail a@b.com via 127.0.0.1:9050", "***", model.CategoryEmail)
		if got != "mail *** via 127.0.0.1:9050" {
			t.Errorf("got %q", got)
		}
	})
}

// TestLabel tests display names for categories.
func TestLabel(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		model.CategoryEmail:           "Email",
		model.CategoryCreditCard:      "Credit Card",
		model.CategoryIPAddress:       "IP Address",
		model.CategorySSN:             "SSN",
		model.CategoryEthereumAddress: "Ethereum Address",
		"":                            "",
	}

	for in, want := range tests {
		if got := Label(in); got != want {
			t.Errorf("Label(%q) = %q, want %q", in, got, want)
		}
	}
}
