/*
Package types defines the data structures shared by every osd-activate package.

The types here are deliberately small. Volume state itself lives on the volume,
as marker files (see package marker); this package only carries the values
that flow between components once those markers have been read.

# Core Types

Identity:
  - Identity: the (cluster name, OSD id) pair an activation produces
  - Identity.Name: control-plane entity name ("osd.3")
  - Identity.String: canonical directory suffix ("ceph-3")

Init Systems:
  - InitSystem: upstart, sysvinit, systemd, or auto
  - InitSystems: the concrete supervisors, in tag lookup order
  - ParseInitSystem: validates a command-line or config selection

Ledger:
  - Activation: one recorded activation run (target, identity, result, steps)
  - VolumeKind: device or directory
  - ActivationResult: succeeded, failed, already-mounted

# Usage

	id := types.Identity{Cluster: types.DefaultCluster, ID: "0"}
	fmt.Println(id.Name())   // osd.0
	fmt.Println(id.String()) // ceph-0

	init, err := types.ParseInitSystem("systemd")
	if err != nil {
		return err
	}

# Cluster Name

Every volume currently resolves to DefaultCluster. The cluster fsid marker is
read and passed to provisioning but is never mapped to a configured cluster
name.
*/
package types
