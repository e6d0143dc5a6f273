package utils

import "testing"

func TestNormalizeDestination(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`D:\clones`, `D:\clones`},
		{`D:\clones\`, `D:\clones`},
		{`D:\clones\\`, `D:\clones`},
		{`D:/clones/`, `D:/clones`},
		{`  D:\clones\ `, `D:\clones`},
		{`C:\`, `C:\`}, // drive root keeps its separator
		{`\\db1\D$\clones\`, `\\db1\D$\clones`},
	}
	for _, c := range cases {
		if got := NormalizeDestination(c.in); got != c.want {
			t.Errorf("NormalizeDestination(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestIsNetworkPath(t *testing.T) {
	if !IsNetworkPath(`\\db1\D$\clones`) || !IsNetworkPath(`//db1/D$/clones`) {
		t.Error("UNC paths should be detected with either separator")
	}
	if IsNetworkPath(`D:\clones`) {
		t.Error("local path misdetected as UNC")
	}
}

func TestUNCToLocal(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`\\db1\D$\clones`, `D:\clones`},
		{`\\db1.example.com\e$\sql\clones`, `E:\sql\clones`},
		{`//db1/D$/clones`, `D:\clones`},
		{`\\db1\D$`, `D:\`},
		{`D:\clones`, `D:\clones`}, // already local, passes through
	}
	for _, c := range cases {
		got, err := UNCToLocal(c.in)
		if err != nil {
			t.Errorf("UNCToLocal(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("UNCToLocal(%q) = %q, want %q", c.in, got, c.want)
		}
	}

	if _, err := UNCToLocal(`\\srv\backups\clones`); err == nil {
		t.Error("non-administrative share should not translate")
	}
	if _, err := UNCToLocal(`\\srv`); err == nil {
		t.Error("UNC path without a share should be rejected")
	}
}

func TestWinJoin(t *testing.T) {
	cases := []struct {
		elems []string
		want  string
	}{
		{[]string{`D:\clones`, `DB1.vhdx`}, `D:\clones\DB1.vhdx`},
		{[]string{`D:\clones\`, `\DB1_ab12cd34`}, `D:\clones\DB1_ab12cd34`},
		{[]string{`C:\`, `images`}, `C:\images`},
		{[]string{`C:\`}, `C:\`},
		{[]string{`D:\a`, ``, `b`}, `D:\a\b`},
	}
	for _, c := range cases {
		if got := WinJoin(c.elems...); got != c.want {
			t.Errorf("WinJoin(%q) = %q, want %q", c.elems, got, c.want)
		}
	}
}

func TestBaseName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{`C:\images\DB1_20180101.vhdx`, `DB1_20180101.vhdx`},
		{`D:/img/Sales.img`, `Sales.img`},
		{`DB1.vhdx`, `DB1.vhdx`},
		{`C:\images\`, `images`},
	}
	for _, c := range cases {
		if got := BaseName(c.in); got != c.want {
			t.Errorf("BaseName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestExtAndTrimExt(t *testing.T) {
	if got := Ext(`C:\images\DB1_20180101.vhdx`); got != ".vhdx" {
		t.Errorf("Ext = %q", got)
	}
	if got := Ext(`C:\images\noext`); got != "" {
		t.Errorf("Ext on extensionless name = %q", got)
	}
	if got := TrimExt("DB1_20180101.vhdx"); got != "DB1_20180101" {
		t.Errorf("TrimExt = %q", got)
	}
	if got := TrimExt(".hidden"); got != ".hidden" {
		t.Errorf("TrimExt on dotfile = %q", got)
	}
}
