package utils

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "s3cret-pass" {
		t.Fatalf("password stored in clear")
	}
	if err := CheckPassword("s3cret-pass", hash); err != nil {
		t.Fatalf("CheckPassword rejected the right password: %v", err)
	}
	if err := CheckPassword("wrong", hash); err == nil {
		t.Fatalf("CheckPassword accepted a wrong password")
	}
}

func TestRoles(t *testing.T) {
	cases := []struct {
		role  string
		valid bool
	}{
		{"admin", true},
		{"tutor", true},
		{"faculty", true},
		{"student", true},
		{"owner", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := IsValidRole(tc.role); got != tc.valid {
			t.Fatalf("IsValidRole(%q) = %v", tc.role, got)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	if got := SanitizeString("  fever\x00 and cold \n"); got != "fever and cold" {
		t.Fatalf("SanitizeString = %q", got)
	}
}
