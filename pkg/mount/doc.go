/*
Package mount brings an OSD block device online: it probes the filesystem
type, mounts the device on a scratch directory, and later moves that mount to
the OSD's canonical path.

# Lifecycle

	┌─────────────┐   blkid -p      ┌──────────────┐   mount(2)    ┌──────────────────────────────┐
	│ /dev/sdb1   │ ──────────────▶ │ DetectType   │ ────────────▶ │ /var/lib/ceph/tmp/mnt.<pid>.* │
	└─────────────┘                 └──────────────┘               └──────────────┬───────────────┘
	                                                                              │
	                       activation reads/writes markers on the scratch mount   │
	                                                                              ▼
	                                     ┌──────────────────────────────────────────────────┐
	                                     │ SameDevice(scratch, /var/lib/ceph/osd/ceph-N)?    │
	                                     └───────────┬───────────────────────┬──────────────┘
	                                            yes  │                       │ no
	                                                 ▼                       ▼
	                                        Unmount(scratch)        Move(scratch, canonical)
	                                                                  MS_MOVE, no remount

# Mount Options

ResolveOptions applies a fixed precedence: an explicit value (from the config
file or the cluster configuration), then DefaultOptions for the detected type,
then no options.

	btrfs   noatime,user_subvol_rm_allowed
	ext4    noatime,user_xattr
	xfs     noatime

Options are split on commas and handed to containerd's mount package, which
turns known flags (noatime, ro, ...) into mount flags and passes the rest to
the filesystem as data.

# Races

Two activations of the same physical device (two device paths, or a retry
racing a slow first attempt) each get their own scratch mount, because
scratch directories carry the process id. Whichever finishes second sees
SameDevice report true, unmounts its redundant scratch mount and reports
success with the identity it read. Only the final relocation is protected
this way; see package activate for the lock that serialises the marker
updates themselves.

# Errors

  - *TypeError: blkid failed, printed nothing, or printed more than one line
  - *MountError: mount or mount move failed
  - *UnmountError: unmount failed

Each keeps the underlying failure reachable through errors.Unwrap.
*/
package mount
