// services/provision.go - clone lifecycle orchestrator.
//
// One invocation walks every (instance, database) pairing sequentially and
// runs the pipeline to completion for each: resolve parent image, derive
// names, pre-flight collision checks, provision the differencing disk,
// attach the exposed files, reconcile the host row, persist the clone
// record. A pairing failure never aborts its siblings, and nothing is
// rolled back; orphaned OS artifacts are logged for a reconciliation pass.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"dbclone/common"
	"dbclone/database"
	"dbclone/utils"
)

// Provisioner is the virtual-disk subsystem for one target host.
type Provisioner interface {
	Provision(ctx context.Context, parent, child, accessPath string) error
	FileExists(ctx context.Context, path string) (bool, error)
	ListFiles(ctx context.Context, dir string) ([]string, error)
}

// Instance is a connected SQL Server instance.
type Instance interface {
	DatabaseExists(ctx context.Context, name string) (bool, error)
	AttachDatabase(ctx context.Context, name string, files []string) error
	Close() error
}

// Store is the metadata persistence interface the pipeline needs.
type Store interface {
	LatestImageForDatabase(ctx context.Context, databaseName string) (common.Image, error)
	ImageIDByLocation(ctx context.Context, location string) (int64, error)
	EnsureHost(ctx context.Context, name, ipAddress, fqdn string) (int64, error)
	InsertClone(ctx context.Context, c common.Clone) (int64, error)
}

// CloneRequest is one provisioning invocation.
type CloneRequest struct {
	RequestID   string   `json:"request_id,omitempty"` // assigned when empty
	Instances   []string `json:"instances"`            // inventory names
	Databases   []string `json:"databases,omitempty"`
	ParentImage string   `json:"parent_image,omitempty"` // explicit parent; empty means latest-image mode
	Destination string   `json:"destination,omitempty"`  // overrides the target default
	CloneName   string   `json:"clone_name,omitempty"`
	Disabled    bool     `json:"disabled,omitempty"`
}

// PairingResult reports one (instance, database) pairing. Exactly one of
// Result and Error is set.
type PairingResult struct {
	Instance  string              `json:"instance"`
	Database  string              `json:"database"`
	Result    *common.CloneResult `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
	ErrorKind common.ErrorKind    `json:"error_kind,omitempty"`

	err error
}

// Err exposes the underlying pairing error.
func (p PairingResult) Err() error { return p.err }

// Orchestrator sequences the pipeline. Collaborators are injected so tests
// can run the full state machine against fakes.
type Orchestrator struct {
	store       Store
	connect     func(ctx context.Context, t InstanceTarget) (Instance, error)
	provisioner func(t InstanceTarget) Provisioner
	localHost   func() (utils.HostIdentity, error)
	events      *Broadcaster
}

// Orch is the process-wide orchestrator wired against the real store,
// runners and SQL driver. Set by InitOrchestrator.
var Orch *Orchestrator

// InitOrchestrator wires the production orchestrator.
func InitOrchestrator() {
	Orch = &Orchestrator{
		store:       pgStore{},
		connect:     connectTarget,
		provisioner: provisionerFor,
		localHost:   utils.LocalHostIdentity,
		events:      Events,
	}
}

// NewOrchestrator builds an orchestrator with explicit collaborators.
func NewOrchestrator(
	store Store,
	connect func(ctx context.Context, t InstanceTarget) (Instance, error),
	provisioner func(t InstanceTarget) Provisioner,
	localHost func() (utils.HostIdentity, error),
	events *Broadcaster,
) *Orchestrator {
	return &Orchestrator{store: store, connect: connect, provisioner: provisioner, localHost: localHost, events: events}
}

// CreateClones runs the batch. The returned error is non-nil only for
// pre-flight configuration failures; per-pairing failures are reported in
// the result list and never abort the batch.
func (o *Orchestrator) CreateClones(ctx context.Context, req CloneRequest) ([]PairingResult, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if len(req.Instances) == 0 {
		return nil, common.ConfigurationErr("no target instances given")
	}
	if len(req.Databases) == 0 && req.ParentImage == "" {
		return nil, common.ConfigurationErr("either databases or parent_image is required")
	}

	// Resolve every instance up front: an unknown inventory name or an
	// unresolvable destination is a configuration fault of the whole call.
	resolved := make([]InstanceTarget, 0, len(req.Instances))
	for _, name := range req.Instances {
		t, ok := LookupTarget(name)
		if !ok {
			return nil, common.ConfigurationErr("unknown instance %q (not in inventory)", name)
		}
		if req.Destination == "" && t.Destination == "" {
			return nil, common.ConfigurationErr("no destination for instance %q", name)
		}
		resolved = append(resolved, t)
	}

	// In explicit-parent mode without a database list, the pairing name
	// falls out of the image file name.
	databases := req.Databases
	if len(databases) == 0 {
		databases = []string{DeriveCloneName(req.ParentImage)}
	}

	var results []PairingResult
	for _, target := range resolved {
		inst, err := o.connect(ctx, target)
		if err != nil {
			connErr := common.ResolutionErr("instance %s unreachable: %w", target.Instance, err)
			for _, db := range databases {
				results = append(results, failedPairing(target.Name, db, connErr))
			}
			common.ErrorLog("provision: %v", connErr)
			continue
		}
		for _, db := range databases {
			// Per-pairing state is fully isolated: names, suffixes and
			// destinations are recomputed from the request each time.
			res, err := o.createOne(ctx, req, target, inst, db)
			if err != nil {
				common.ErrorLog("provision: %s/%s: %v", target.Name, db, err)
				results = append(results, failedPairing(target.Name, db, err))
				continue
			}
			results = append(results, PairingResult{Instance: target.Name, Database: db, Result: res})
		}
		inst.Close()
	}
	return results, nil
}

// createOne runs the pipeline for a single pairing.
func (o *Orchestrator) createOne(ctx context.Context, req CloneRequest, target InstanceTarget, inst Instance, db string) (*common.CloneResult, error) {
	step := func(name, status, msg string) {
		if o.events != nil {
			o.events.Publish(Event{RequestID: req.RequestID, Instance: target.Name, Database: db, Step: name, Status: status, Message: msg})
		}
	}

	dest := req.Destination
	if dest == "" {
		dest = target.Destination
	}
	dest = utils.NormalizeDestination(dest)
	if utils.IsNetworkPath(dest) {
		local, err := utils.UNCToLocal(dest)
		if err != nil {
			return nil, common.ResolutionErr("destination: %w", err)
		}
		common.DebugLog("provision: translated destination %s -> %s", dest, local)
		dest = local
	}

	// 1. resolve parent image
	step("resolve", "start", "")
	image, err := o.resolveImage(ctx, req, db)
	if err != nil {
		step("resolve", "error", err.Error())
		return nil, err
	}
	step("resolve", "ok", image.Location)

	// 2. derive naming; the suffix keeps concurrent runs off each other's
	// access paths
	cloneName := req.CloneName
	if cloneName == "" {
		cloneName = DeriveCloneName(image.Location)
	}
	cloneLocation := utils.WinJoin(dest, cloneName+utils.Ext(image.Location))
	accessPath := utils.WinJoin(dest, AccessDirName(cloneName))

	prov := o.provisioner(target)

	// 3. pre-flight: live server state, then destination artifact. Both must
	// fail before any disk exists.
	step("preflight", "start", "")
	exists, err := inst.DatabaseExists(ctx, cloneName)
	if err != nil {
		step("preflight", "error", err.Error())
		return nil, common.ResolutionErr("query databases on %s: %w", target.Instance, err)
	}
	if exists {
		step("preflight", "error", "database exists")
		return nil, common.CollisionErr("database %s already exists on %s", cloneName, target.Instance)
	}
	if present, err := prov.FileExists(ctx, cloneLocation); err != nil {
		step("preflight", "error", err.Error())
		return nil, common.ProvisioningErr("create", "probe %s: %w", cloneLocation, err)
	} else if present {
		step("preflight", "error", "destination file exists")
		return nil, common.CollisionErr("destination file %s already exists", cloneLocation)
	}
	if present, err := prov.FileExists(ctx, dest); err != nil {
		step("preflight", "error", err.Error())
		return nil, common.ProvisioningErr("destination", "probe %s: %w", dest, err)
	} else if !present {
		step("preflight", "error", "destination missing")
		return nil, common.ProvisioningErr("destination", "destination directory %s does not exist", dest)
	}
	step("preflight", "ok", "")

	// 4. provision the differencing disk
	step("provision", "start", cloneLocation)
	if err := prov.Provision(ctx, image.Location, cloneLocation, accessPath); err != nil {
		step("provision", "error", err.Error())
		common.WarnLog("provision: orphan candidates after failure: disk=%s access=%s", cloneLocation, accessPath)
		return nil, err
	}
	step("provision", "ok", accessPath)

	// 5. attach everything the disk exposes
	step("attach", "start", "")
	files, err := prov.ListFiles(ctx, accessPath)
	if err != nil {
		step("attach", "error", err.Error())
		common.WarnLog("provision: orphan candidates after failure: disk=%s access=%s", cloneLocation, accessPath)
		return nil, common.AttachmentErr("enumerate files under %s: %w", accessPath, err)
	}
	if err := inst.AttachDatabase(ctx, cloneName, files); err != nil {
		step("attach", "error", err.Error())
		common.WarnLog("provision: orphan candidates after failure: disk=%s access=%s", cloneLocation, accessPath)
		return nil, common.AttachmentErr("%w", err)
	}
	step("attach", "ok", cloneName)

	// 6. metadata sync; only after this returns does the clone exist
	step("persist", "start", "")
	result, err := o.persist(ctx, target, image, db, cloneName, cloneLocation, accessPath, !req.Disabled)
	if err != nil {
		step("persist", "error", err.Error())
		common.WarnLog("provision: clone %s is attached on %s but missing from the store (orphan)", cloneName, target.Instance)
		return nil, err
	}
	step("persist", "ok", "")
	return result, nil
}

func (o *Orchestrator) resolveImage(ctx context.Context, req CloneRequest, db string) (common.Image, error) {
	if req.ParentImage != "" {
		return common.Image{Location: req.ParentImage, DatabaseName: db}, nil
	}
	image, err := o.store.LatestImageForDatabase(ctx, db)
	if errors.Is(err, database.ErrNotFound) {
		return common.Image{}, common.ResolutionErr("no image found for database %s", db)
	}
	if err != nil {
		return common.Image{}, common.PersistenceErr("look up latest image for %s: %w", db, err)
	}
	return image, nil
}

func (o *Orchestrator) persist(ctx context.Context, target InstanceTarget, image common.Image, db, cloneName, cloneLocation, accessPath string, enabled bool) (*common.CloneResult, error) {
	var host utils.HostIdentity
	if target.Local {
		var err error
		if host, err = o.localHost(); err != nil {
			return nil, common.PersistenceErr("resolve local host identity: %w", err)
		}
	} else {
		host = utils.RemoteHostIdentity(target.Host)
	}
	hostID, err := o.store.EnsureHost(ctx, host.Name, host.IPAddress, host.FQDN)
	if err != nil {
		return nil, common.PersistenceErr("ensure host %s: %w", host.Name, err)
	}

	// The id is resolved by location at commit time: an image deleted
	// mid-pipeline fails the pairing here rather than holding a lock on the
	// row for the whole run.
	imageID, err := o.store.ImageIDByLocation(ctx, image.Location)
	if errors.Is(err, database.ErrNotFound) {
		return nil, common.ResolutionErr("image %s is not registered in the store", image.Location)
	}
	if err != nil {
		return nil, common.PersistenceErr("look up image %s: %w", image.Location, err)
	}

	if _, err := o.store.InsertClone(ctx, common.Clone{
		ImageID:      imageID,
		HostID:       hostID,
		Location:     cloneLocation,
		AccessPath:   accessPath,
		SQLInstance:  target.Instance,
		DatabaseName: db,
		IsEnabled:    enabled,
	}); err != nil {
		return nil, common.PersistenceErr("insert clone record: %w", err)
	}

	return &common.CloneResult{
		ImageID:       imageID,
		HostID:        hostID,
		CloneLocation: cloneLocation,
		AccessPath:    accessPath,
		InstanceID:    target.Instance,
		DatabaseName:  db,
		IsEnabled:     enabled,
	}, nil
}

func failedPairing(instance, db string, err error) PairingResult {
	return PairingResult{
		Instance:  instance,
		Database:  db,
		Error:     err.Error(),
		ErrorKind: common.KindOf(err),
		err:       err,
	}
}

// --- production wiring ---

// pgStore adapts the database package to the Store interface.
type pgStore struct{}

func (pgStore) LatestImageForDatabase(ctx context.Context, databaseName string) (common.Image, error) {
	return database.LatestImageForDatabase(ctx, databaseName)
}
func (pgStore) ImageIDByLocation(ctx context.Context, location string) (int64, error) {
	return database.ImageIDByLocation(ctx, location)
}
func (pgStore) EnsureHost(ctx context.Context, name, ipAddress, fqdn string) (int64, error) {
	return database.EnsureHost(ctx, name, ipAddress, fqdn)
}
func (pgStore) InsertClone(ctx context.Context, c common.Clone) (int64, error) {
	return database.InsertClone(ctx, c)
}

func connectTarget(ctx context.Context, t InstanceTarget) (Instance, error) {
	pass, err := common.ReadSecretMaybeFile(t.SQLPassword)
	if err != nil {
		return nil, fmt.Errorf("read SQL password for %s: %w", t.Name, err)
	}
	return utils.ConnectInstance(ctx, t.Instance, t.SQLUser, pass)
}

var (
	runnerMu   sync.Mutex
	sshRunners = map[string]*utils.SSHRunner{}
	localRun   = &utils.LocalRunner{}
)

// provisionerFor returns a disk manager bound to the target's host, reusing
// SSH connections per host across pairings.
func provisionerFor(t InstanceTarget) Provisioner {
	if t.Local {
		return utils.NewVDiskManager(localRun)
	}
	runnerMu.Lock()
	defer runnerMu.Unlock()
	key := t.SSHUser + "@" + t.Host
	r, ok := sshRunners[key]
	if !ok {
		r = &utils.SSHRunner{User: t.SSHUser, Addr: t.Host, KeyFile: t.SSHKeyFile}
		sshRunners[key] = r
	}
	return utils.NewVDiskManager(r)
}
