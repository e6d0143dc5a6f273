// services/inventory.go - target instance inventory.
//
// The inventory file names every SQL Server instance dbclone may provision
// onto, together with the transport used to reach its Windows host for disk
// work. YAML only; DBCLONE_INVENTORY_PATH points at the file.
package services

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/goccy/go-yaml"

	"dbclone/common"
)

// InstanceTarget describes one provisioning target.
type InstanceTarget struct {
	Name        string `yaml:"name"`          // inventory key, used in API requests
	Instance    string `yaml:"instance"`      // SQL address, e.g. `db1.example.com\PROD`
	Host        string `yaml:"host"`          // Windows machine owning the disks
	Local       bool   `yaml:"local"`         // run disk commands locally instead of over SSH
	SSHUser     string `yaml:"ssh_user"`      //
	SSHKeyFile  string `yaml:"ssh_key_file"`  //
	SQLUser     string `yaml:"sql_user"`      // empty means integrated auth
	SQLPassword string `yaml:"sql_password"`  // plain or @file
	Destination string `yaml:"destination"`   // default clone destination directory
}

type inventoryFile struct {
	Instances []InstanceTarget `yaml:"instances"`
}

var (
	invMu   sync.RWMutex
	invPath string
	targets []InstanceTarget
)

// InitInventory loads the inventory file once at startup.
func InitInventory() error {
	p := common.Env("DBCLONE_INVENTORY_PATH", "/data/inventory.yml")
	if _, err := os.Stat(p); err != nil {
		return fmt.Errorf("inventory file %s: %w", p, err)
	}
	invPath = p
	return loadInventory(p)
}

// ReloadInventory re-reads the inventory file.
func ReloadInventory() error {
	if invPath == "" {
		return errors.New("inventory not initialized")
	}
	return loadInventory(invPath)
}

func loadInventory(p string) error {
	b, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	parsed, err := ParseInventory(b)
	if err != nil {
		return err
	}
	invMu.Lock()
	targets = parsed
	invMu.Unlock()
	common.InfoLog("inventory: loaded %d instances from %s", len(parsed), p)
	return nil
}

// ParseInventory parses and validates inventory YAML.
func ParseInventory(b []byte) ([]InstanceTarget, error) {
	var f inventoryFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse inventory: %w", err)
	}
	seen := map[string]bool{}
	for i, t := range f.Instances {
		if t.Name == "" || t.Instance == "" {
			return nil, fmt.Errorf("inventory entry %d: name and instance are required", i)
		}
		if seen[t.Name] {
			return nil, fmt.Errorf("inventory: duplicate instance name %q", t.Name)
		}
		seen[t.Name] = true
		if !t.Local && (t.Host == "" || t.SSHUser == "" || t.SSHKeyFile == "") {
			return nil, fmt.Errorf("inventory %s: host, ssh_user and ssh_key_file are required unless local", t.Name)
		}
	}
	return f.Instances, nil
}

// GetTargets returns a copy of the current inventory.
func GetTargets() []InstanceTarget {
	invMu.RLock()
	defer invMu.RUnlock()
	out := make([]InstanceTarget, len(targets))
	copy(out, targets)
	return out
}

// LookupTarget finds an inventory entry by name.
func LookupTarget(name string) (InstanceTarget, bool) {
	invMu.RLock()
	defer invMu.RUnlock()
	for _, t := range targets {
		if t.Name == name {
			return t, true
		}
	}
	return InstanceTarget{}, false
}
