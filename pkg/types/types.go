package types

import (
	"fmt"
	"time"
)

const (
	// DefaultCluster is the cluster name every volume resolves to
	DefaultCluster = "ceph"
)

// Identity is the (cluster name, OSD id) pair produced by a successful activation
type Identity struct {
	Cluster string
	ID      string // Numeric OSD id, e.g. "0"
}

// Name returns the control-plane entity name for the OSD ("osd.0")
func (i Identity) Name() string {
	return "osd." + i.ID
}

// String returns the "{cluster}-{id}" form used for canonical directory names
func (i Identity) String() string {
	return fmt.Sprintf("%s-%s", i.Cluster, i.ID)
}

// IsZero reports whether the identity is unset
func (i Identity) IsZero() bool {
	return i.Cluster == "" && i.ID == ""
}

// InitSystem names the service supervisor a volume is tagged for
type InitSystem string

const (
	InitUpstart  InitSystem = "upstart"
	InitSysvinit InitSystem = "sysvinit"
	InitSystemd  InitSystem = "systemd"

	// InitAuto asks activation to pick the init system for the host
	InitAuto InitSystem = "auto"
)

// InitSystems lists every concrete init system, in the order tags are checked
var InitSystems = []InitSystem{InitUpstart, InitSysvinit, InitSystemd}

// ParseInitSystem validates an init system selection. An empty string means
// "do not tag".
func ParseInitSystem(s string) (InitSystem, error) {
	switch InitSystem(s) {
	case "", InitUpstart, InitSysvinit, InitSystemd, InitAuto:
		return InitSystem(s), nil
	default:
		return "", fmt.Errorf("unknown init system %q (want one of upstart, sysvinit, systemd, auto)", s)
	}
}

// VolumeKind classifies an activation target
type VolumeKind string

const (
	VolumeKindDevice    VolumeKind = "device"
	VolumeKindDirectory VolumeKind = "directory"
)

// ActivationResult is the outcome recorded for one activation run
type ActivationResult string

const (
	ActivationSucceeded ActivationResult = "succeeded"
	ActivationFailed    ActivationResult = "failed"
	// ActivationAlreadyMounted means another activation had already moved
	// the same device to its canonical path
	ActivationAlreadyMounted ActivationResult = "already-mounted"
)

// Activation is the ledger record of one activation run
type Activation struct {
	ID         string
	Target     string
	Kind       VolumeKind
	FSType     string // Block devices only
	Cluster    string
	OSDID      string
	Result     ActivationResult
	Error      string
	Steps      []string // State machine steps that ran (skipped steps are omitted)
	Hostname   string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration returns how long the run took
func (a *Activation) Duration() time.Duration {
	if a.FinishedAt.IsZero() {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

// Capability is one entity/grant pair attached to a registered key
type Capability struct {
	Entity string // "osd", "mon"
	Grant  string // "allow *"
}

// OSDCapabilities is the fixed capability set registered for every OSD key:
// full data-path access and read/write/execute on cluster metadata
var OSDCapabilities = []Capability{
	{Entity: "osd", Grant: "allow *"},
	{Entity: "mon", Grant: "allow rwx"},
}

// FormatRequest describes one mkfs of an OSD data directory
type FormatRequest struct {
	Cluster     string
	ID          string
	FSID        string // Per-OSD uuid
	DataPath    string
	MonmapPath  string // Membership snapshot written before formatting
	JournalPath string
	KeyringPath string // Generated by the format
}
