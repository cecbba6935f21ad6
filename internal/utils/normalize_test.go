package utils

import "testing"

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Ops@Example.COM "); got != "ops@example.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
}

func TestNormalizeCompanyName(t *testing.T) {
	if got := NormalizeCompanyName("  acme   power  co "); got != "ACME POWER CO" {
		t.Fatalf("NormalizeCompanyName = %q", got)
	}
}

func TestNormalizePhone(t *testing.T) {
	if got := NormalizePhone(" +1 555-010-2030 "); got != "+15550102030" {
		t.Fatalf("NormalizePhone = %q", got)
	}
}
