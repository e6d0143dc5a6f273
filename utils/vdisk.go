// utils/vdisk.go - differencing disk provisioner.
//
// Drives the Windows storage stack (Hyper-V VHD cmdlets plus the Storage
// module) through a Runner. A clone disk is mounted without a drive letter
// and exposed through an access-path directory instead, so any number of
// clones can coexist on one host.
package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"dbclone/common"
)

// VDiskManager provisions differencing disks on one host.
type VDiskManager struct {
	runner Runner
}

func NewVDiskManager(r Runner) *VDiskManager {
	return &VDiskManager{runner: r}
}

// diskState mirrors the fields we select from Get-Disk.
type diskState struct {
	OperationalStatus string `json:"OperationalStatus"`
	PartitionStyle    string `json:"PartitionStyle"`
}

// Provision runs the full disk pipeline: create the differencing child,
// mount it, bring it online (initializing GPT when the disk is raw), and
// bind its data partition to accessPath. Any sub-step failure is fatal and
// reported with the step name; partially created artifacts are left in
// place for a later reconciliation pass.
func (m *VDiskManager) Provision(ctx context.Context, parent, child, accessPath string) error {
	if err := m.createDifferencing(ctx, parent, child); err != nil {
		return err
	}
	if _, err := m.runner.Run(ctx, fmt.Sprintf("Mount-VHD -Path %s -NoDriveLetter", psQuote(child))); err != nil {
		return common.ProvisioningErr("mount", "mount %s: %w", child, err)
	}
	num, err := m.diskNumber(ctx, child)
	if err != nil {
		return common.ProvisioningErr("mount", "resolve disk number for %s: %w", child, err)
	}
	state, err := m.diskState(ctx, num)
	if err != nil {
		return common.ProvisioningErr("online", "query disk %d: %w", num, err)
	}
	if !strings.EqualFold(state.OperationalStatus, "Online") {
		if err := m.initialize(ctx, num); err != nil {
			return err
		}
	}
	part, err := m.dataPartition(ctx, num)
	if err != nil {
		return common.ProvisioningErr("partition", "locate data partition on disk %d: %w", num, err)
	}
	if err := m.bindAccessPath(ctx, num, part, accessPath); err != nil {
		return err
	}
	return nil
}

func (m *VDiskManager) createDifferencing(ctx context.Context, parent, child string) error {
	reachable, err := m.FileExists(ctx, parent)
	if err != nil {
		return common.ProvisioningErr("create", "probe parent image %s: %w", parent, err)
	}
	if !reachable {
		return common.ProvisioningErr("create", "parent image %s is unreachable", parent)
	}
	exists, err := m.FileExists(ctx, child)
	if err != nil {
		return common.ProvisioningErr("create", "probe target %s: %w", child, err)
	}
	if exists {
		return common.ProvisioningErr("create", "target %s already exists", child)
	}
	cmd := fmt.Sprintf("New-VHD -Path %s -ParentPath %s -Differencing | Out-Null", psQuote(child), psQuote(parent))
	if _, err := m.runner.Run(ctx, cmd); err != nil {
		return common.ProvisioningErr("create", "create differencing disk %s: %w", child, err)
	}
	return nil
}

func (m *VDiskManager) diskNumber(ctx context.Context, path string) (int, error) {
	out, err := m.runner.Run(ctx, fmt.Sprintf("(Get-VHD -Path %s).DiskNumber", psQuote(path)))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("unexpected disk number %q", out)
	}
	return n, nil
}

func (m *VDiskManager) diskState(ctx context.Context, number int) (diskState, error) {
	cmd := fmt.Sprintf("Get-Disk -Number %d | Select-Object OperationalStatus, PartitionStyle | ConvertTo-Json", number)
	out, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return diskState{}, err
	}
	var st diskState
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		return diskState{}, fmt.Errorf("parse disk state %q: %w", out, err)
	}
	return st, nil
}

// initialize brings an offline disk online with a GPT layout. Initializing a
// disk that already carries a partition table fails on the Windows side; that
// exact failure is tolerated so a retried pipeline stays idempotent.
func (m *VDiskManager) initialize(ctx context.Context, number int) error {
	if _, err := m.runner.Run(ctx, fmt.Sprintf("Set-Disk -Number %d -IsOffline $false", number)); err != nil {
		return common.ProvisioningErr("online", "bring disk %d online: %w", number, err)
	}
	out, err := m.runner.Run(ctx, fmt.Sprintf("Initialize-Disk -Number %d -PartitionStyle GPT", number))
	if err != nil {
		if strings.Contains(strings.ToLower(out), "already been initialized") ||
			strings.Contains(strings.ToLower(err.Error()), "already been initialized") {
			common.DebugLog("vdisk: disk %d already initialized", number)
			return nil
		}
		return common.ProvisioningErr("initialize", "initialize disk %d: %w", number, err)
	}
	return nil
}

// dataPartition returns the number of the largest non-reserved partition.
func (m *VDiskManager) dataPartition(ctx context.Context, number int) (int, error) {
	cmd := fmt.Sprintf("(Get-Partition -DiskNumber %d | Where-Object Type -ne 'Reserved' | Sort-Object Size -Descending | Select-Object -First 1).PartitionNumber", number)
	out, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return 0, err
	}
	p, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("unexpected partition number %q", out)
	}
	return p, nil
}

func (m *VDiskManager) bindAccessPath(ctx context.Context, disk, partition int, dir string) error {
	mkdir := fmt.Sprintf("New-Item -ItemType Directory -Force -Path %s | Out-Null", psQuote(dir))
	if _, err := m.runner.Run(ctx, mkdir); err != nil {
		return common.ProvisioningErr("bind", "create access path %s: %w", dir, err)
	}
	bind := fmt.Sprintf("Add-PartitionAccessPath -DiskNumber %d -PartitionNumber %d -AccessPath %s", disk, partition, psQuote(dir))
	if _, err := m.runner.Run(ctx, bind); err != nil {
		return common.ProvisioningErr("bind", "bind %s to disk %d partition %d: %w", dir, disk, partition, err)
	}
	return nil
}

// FileExists probes a path on the target host.
func (m *VDiskManager) FileExists(ctx context.Context, path string) (bool, error) {
	out, err := m.runner.Run(ctx, fmt.Sprintf("Test-Path -LiteralPath %s", psQuote(path)))
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(out), "true"), nil
}

// ListFiles enumerates all regular files beneath dir, recursively. The set
// is handed to attach as-is; no extension filtering happens here.
func (m *VDiskManager) ListFiles(ctx context.Context, dir string) ([]string, error) {
	cmd := fmt.Sprintf("Get-ChildItem -LiteralPath %s -Recurse -File | Select-Object -ExpandProperty FullName", psQuote(dir))
	out, err := m.runner.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// psQuote single-quotes a value for PowerShell, doubling embedded quotes.
func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
