package domain

import "testing"

func TestParseISOType(t *testing.T) {
	tests := []struct {
		code     string
		length   LengthClass
		highCube bool
		group    CargoGroup
	}{
		{"22G1", Length20, false, GroupGeneral},
		{"45G1", Length40, true, GroupGeneral},
		{"42r1", Length40, false, GroupReefer},
		{"L5G1", Length45, true, GroupGeneral},
		{"22U1", Length20, false, GroupOpenTop},
		{"22T6", Length20, false, GroupTank},
		{"42P1", Length40, false, GroupPlatform},
		{"22B0", Length20, false, GroupOther},
	}

	for _, tt := range tests {
		got, err := ParseISOType(tt.code)
		if err != nil {
			t.Fatalf("ParseISOType(%q) error = %v", tt.code, err)
		}
		if got.Length != tt.length || got.HighCube != tt.highCube || got.Group != tt.group {
			t.Fatalf("ParseISOType(%q) = %+v, want length %s high cube %v group %s", tt.code, got, tt.length, tt.highCube, tt.group)
		}
	}
}

func TestParseISOType_Invalid(t *testing.T) {
	for _, code := range []string{"", "22G", "32G1", "22G11", "M5G1"} {
		if _, err := ParseISOType(code); err == nil {
			t.Fatalf("ParseISOType(%q) error = nil, want error", code)
		}
	}
}

func TestParseContainerStatus(t *testing.T) {
	if got, err := ParseContainerStatus(" Laden "); err != nil || got != StatusLaden {
		t.Fatalf("ParseContainerStatus = %q, %v, want laden", got, err)
	}
	if _, err := ParseContainerStatus("full"); err == nil {
		t.Fatal("ParseContainerStatus(full) error = nil, want error")
	}
}
