/*
Package marker reads and writes the single-line state files stored on an OSD volume.

Every fact osd-activate records about a volume is a marker: a regular file in
the volume root holding exactly one newline-terminated line.

	magic       ceph osd volume v026
	ceph_fsid   cluster fsid
	fsid        per-OSD uuid
	whoami      OSD id assigned by the monitors
	ready       empty line, written once mkfs has completed
	active      "ok", written once the OSD key is registered

Read distinguishes three outcomes: the marker is present (ok=true), the marker
is absent (ok=false, nil error), or the file exists but breaks the format, in
which case a *CorruptError wraps ErrTruncated or ErrTooManyLines.

Write never leaves a half-written marker behind. The value goes to
"<name>.<pid>.tmp" in the same directory, is fsynced, and is renamed over the
target; the directory is fsynced afterwards so the rename itself survives a
crash.

Init-system tags (upstart, sysvinit, systemd) are empty files rather than
single-line markers; use Touch, Exists and Remove for them.
*/
package marker
