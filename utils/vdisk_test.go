package utils

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dbclone/common"
)

// stubRunner answers commands by substring match and records everything it
// was asked to run.
type stubRunner struct {
	stubs []stub
	ran   []string
}

type stub struct {
	match string
	out   string
	err   error
}

func (r *stubRunner) Run(_ context.Context, command string) (string, error) {
	r.ran = append(r.ran, command)
	for _, s := range r.stubs {
		if strings.Contains(command, s.match) {
			return s.out, s.err
		}
	}
	return "", nil
}

func (r *stubRunner) commandLike(substr string) bool {
	for _, c := range r.ran {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

const (
	parent = `C:\images\DB1_20180101.vhdx`
	child  = `D:\clones\DB1.vhdx`
	access = `D:\clones\DB1_ab12cd34`
)

func onlineRunner() *stubRunner {
	return &stubRunner{stubs: []stub{
		{match: `Test-Path -LiteralPath '` + parent, out: "True"},
		{match: `Test-Path -LiteralPath '` + child, out: "False"},
		{match: ".DiskNumber", out: "3\n"},
		{match: "Get-Disk -Number 3", out: `{"OperationalStatus":"Online","PartitionStyle":"GPT"}`},
		{match: ".PartitionNumber", out: "2"},
	}}
}

func TestProvisionSequence(t *testing.T) {
	r := onlineRunner()
	m := NewVDiskManager(r)

	if err := m.Provision(context.Background(), parent, child, access); err != nil {
		t.Fatalf("Provision: %v", err)
	}

	// the pipeline steps must run in order
	wantOrder := []string{
		"Test-Path",
		"New-VHD -Path '" + child + "' -ParentPath '" + parent + "' -Differencing",
		"Mount-VHD -Path '" + child + "' -NoDriveLetter",
		"Get-VHD",
		"Get-Disk -Number 3",
		"Get-Partition -DiskNumber 3",
		"New-Item -ItemType Directory -Force -Path '" + access + "'",
		"Add-PartitionAccessPath -DiskNumber 3 -PartitionNumber 2 -AccessPath '" + access + "'",
	}
	pos := 0
	for _, want := range wantOrder {
		found := false
		for ; pos < len(r.ran); pos++ {
			if strings.Contains(r.ran[pos], want) {
				found = true
				pos++
				break
			}
		}
		if !found {
			t.Fatalf("command %q missing or out of order; ran:\n%s", want, strings.Join(r.ran, "\n"))
		}
	}
	// an online disk is never re-initialized
	if r.commandLike("Initialize-Disk") {
		t.Error("Initialize-Disk ran against an online disk")
	}
}

func TestProvisionInitializesOfflineDisk(t *testing.T) {
	r := onlineRunner()
	r.stubs[3] = stub{match: "Get-Disk -Number 3", out: `{"OperationalStatus":"Offline","PartitionStyle":"RAW"}`}
	m := NewVDiskManager(r)

	if err := m.Provision(context.Background(), parent, child, access); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if !r.commandLike("Set-Disk -Number 3 -IsOffline $false") {
		t.Error("offline disk was not brought online")
	}
	if !r.commandLike("Initialize-Disk -Number 3 -PartitionStyle GPT") {
		t.Error("raw disk was not initialized")
	}
}

func TestProvisionToleratesAlreadyInitialized(t *testing.T) {
	r := onlineRunner()
	r.stubs[3] = stub{match: "Get-Disk -Number 3", out: `{"OperationalStatus":"Offline","PartitionStyle":"GPT"}`}
	r.stubs = append(r.stubs, stub{
		match: "Initialize-Disk",
		err:   errors.New("The disk has already been initialized."),
	})
	m := NewVDiskManager(r)

	if err := m.Provision(context.Background(), parent, child, access); err != nil {
		t.Fatalf("Provision should tolerate an initialized disk: %v", err)
	}
}

func TestProvisionFailsWhenParentUnreachable(t *testing.T) {
	r := onlineRunner()
	r.stubs[0].out = "False"
	m := NewVDiskManager(r)

	err := m.Provision(context.Background(), parent, child, access)
	if common.KindOf(err) != common.KindProvisioning {
		t.Fatalf("err = %v, want provisioning error", err)
	}
	var pe *common.PipelineError
	if !errors.As(err, &pe) || pe.Step != "create" {
		t.Errorf("step = %v, want create", err)
	}
	if r.commandLike("New-VHD") {
		t.Error("no disk may be created when the parent is unreachable")
	}
}

func TestProvisionFailsWhenTargetExists(t *testing.T) {
	r := onlineRunner()
	r.stubs[1].out = "True"
	m := NewVDiskManager(r)

	err := m.Provision(context.Background(), parent, child, access)
	if common.KindOf(err) != common.KindProvisioning {
		t.Fatalf("err = %v, want provisioning error", err)
	}
	if r.commandLike("New-VHD") {
		t.Error("an existing target must never be overwritten")
	}
}

func TestProvisionMountFailureCarriesStep(t *testing.T) {
	r := onlineRunner()
	r.stubs = append(r.stubs, stub{match: "Mount-VHD", err: errors.New("access denied")})
	m := NewVDiskManager(r)

	err := m.Provision(context.Background(), parent, child, access)
	var pe *common.PipelineError
	if !errors.As(err, &pe) || pe.Step != "mount" {
		t.Fatalf("err = %v, want mount step", err)
	}
}

func TestFileExists(t *testing.T) {
	r := &stubRunner{stubs: []stub{{match: "Test-Path", out: " True \n"}}}
	m := NewVDiskManager(r)

	ok, err := m.FileExists(context.Background(), `D:\clones`)
	if err != nil || !ok {
		t.Fatalf("FileExists = (%v, %v)", ok, err)
	}
	if !r.commandLike(`Test-Path -LiteralPath 'D:\clones'`) {
		t.Errorf("command = %v", r.ran)
	}
}

func TestListFiles(t *testing.T) {
	r := &stubRunner{stubs: []stub{{
		match: "Get-ChildItem",
		out:   "D:\\clones\\DB1_x\\DB1.mdf\r\nD:\\clones\\DB1_x\\DB1_log.ldf\r\n\r\n",
	}}}
	m := NewVDiskManager(r)

	files, err := m.ListFiles(context.Background(), access)
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	want := []string{`D:\clones\DB1_x\DB1.mdf`, `D:\clones\DB1_x\DB1_log.ldf`}
	if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
		t.Errorf("files = %v, want %v", files, want)
	}
}

func TestPsQuote(t *testing.T) {
	if got := psQuote(`D:\it's here`); got != `'D:\it''s here'` {
		t.Errorf("psQuote = %q", got)
	}
}
