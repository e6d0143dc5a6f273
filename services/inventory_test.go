package services

import (
	"strings"
	"testing"
)

func TestParseInventory(t *testing.T) {
	ts, err := ParseInventory([]byte(`
instances:
  - name: SQL1
    instance: db1.example.com\PROD
    host: db1.example.com
    ssh_user: svc_dbclone
    ssh_key_file: /data/keys/db1
    sql_user: sa
    sql_password: "@/run/secrets/db1_sa"
    destination: D:\clones
  - name: LOCAL
    instance: localhost
    local: true
`))
	if err != nil {
		t.Fatalf("ParseInventory: %v", err)
	}
	if len(ts) != 2 {
		t.Fatalf("got %d targets, want 2", len(ts))
	}
	if ts[0].Instance != `db1.example.com\PROD` || ts[0].Destination != `D:\clones` {
		t.Errorf("first target = %+v", ts[0])
	}
	if !ts[1].Local {
		t.Error("second target should be local")
	}
}

func TestParseInventoryRejectsDuplicateNames(t *testing.T) {
	_, err := ParseInventory([]byte(`
instances:
  - {name: SQL1, instance: a, local: true}
  - {name: SQL1, instance: b, local: true}
`))
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("err = %v, want duplicate name error", err)
	}
}

func TestParseInventoryRejectsMissingFields(t *testing.T) {
	if _, err := ParseInventory([]byte("instances:\n  - {instance: a}\n")); err == nil {
		t.Error("entry without a name should be rejected")
	}
	// remote targets need a reachable host
	if _, err := ParseInventory([]byte("instances:\n  - {name: SQL1, instance: a}\n")); err == nil {
		t.Error("remote entry without ssh transport should be rejected")
	}
}
