/*
Package osd is the top level of an activation: it classifies the target,
gets the volume into place at its canonical path and starts the daemon.

Block device:

	blkid ──▶ mount on /var/lib/ceph/tmp/mnt.<pid>.* ──▶ activate.Machine
	                                                           │
	            ┌─────────────── same device already ◀─────────┤
	            ▼                at canonical path?            ▼ no
	     unmount scratch                                 move mount to
	     (lost the race)                             /var/lib/ceph/osd/C-N

Directory: activate in place, then symlink /var/lib/ceph/osd/C-N to it.

Any failure after the scratch mount exists unmounts it again. Every run, good
or bad, is counted in the metrics and appended to the ledger when one is
configured.
*/
package osd
