package services

import (
	"strings"
	"testing"
)

func TestDeriveCloneName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`C:\images\DB1_20180101.vhdx`, "DB1"},
		{`C:\images\DB1_20180101120000.vhdx`, "DB1"},
		{`D:/golden/Sales_20240501.img`, "Sales"},
		{`C:\images\Plain.vhdx`, "Plain"},
		{`C:\images\NoExt_20180101`, "NoExt"},
		{`Archive_2019_20180101.vhdx`, "Archive_2019"}, // only the trailing timestamp goes
		{`C:\images\DB1_123.vhdx`, "DB1_123"},          // too short to be a timestamp
	}
	for _, c := range cases {
		if got := DeriveCloneName(c.in); got != c.want {
			t.Errorf("DeriveCloneName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRandomSuffix(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		s := RandomSuffix()
		if len(s) != 8 {
			t.Fatalf("suffix %q has length %d, want 8", s, len(s))
		}
		for _, r := range s {
			if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
				t.Fatalf("suffix %q contains %q", s, r)
			}
		}
		if seen[s] {
			t.Fatalf("suffix %q repeated", s)
		}
		seen[s] = true
	}
}

func TestAccessDirName(t *testing.T) {
	a := AccessDirName("DB1")
	b := AccessDirName("DB1")
	if !strings.HasPrefix(a, "DB1_") || !strings.HasPrefix(b, "DB1_") {
		t.Fatalf("access dir names = %q, %q", a, b)
	}
	if a == b {
		t.Fatalf("access dir name %q repeated for the same base", a)
	}
}
