package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12.345", 1234, false},
		{"12.346", 1235, false},
		{"500", 50000, false},
		{"0.01", 1, false},
		{"", 0, true},
		{"0", 0, true},
		{"-5", 0, true},
		{"+5", 0, true},
		{"1.2.3", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDecimalToCents(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseDecimalToCents(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDecimalToCents(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestMoneyString(t *testing.T) {
	if got := (Money{Cents: 100000}).String(); got != "1000.00" {
		t.Errorf("String() = %q, want %q", got, "1000.00")
	}
	if got := (Money{Cents: -1205}).String(); got != "-12.05" {
		t.Errorf("String() = %q, want %q", got, "-12.05")
	}
	if got := (Money{Cents: 7}).String(); got != "0.07" {
		t.Errorf("String() = %q, want %q", got, "0.07")
	}
}
