/*
Package activate drives a mounted OSD volume through its persisted lifecycle.

Every piece of progress is a marker file on the volume itself, so the volume
is its own state store and activation can be repeated or resumed at will:

	magic, ceph_fsid, fsid     written by the preparer, never modified here
	whoami                     allocate:    osd id obtained from the monitors
	ready                      initialize:  monmap fetched, object store formatted
	upstart|sysvinit|systemd   mark-init:   optional supervisor tag
	active                     authorize:   OSD key registered with the monitors

Machine.Activate reads all markers once into a State, validates it, then
walks the step table in order, running each step whose marker is missing.
A volume that does not carry the expected magic is rejected with a
*BadMagicError before any file on it is created. The whole activation holds an
advisory lock on the volume so concurrent activations of the same filesystem
serialize.

The cluster and the object store formatter are reached through the
ControlPlane and Formatter interfaces; see package cluster for the
implementations that shell out to the ceph tools.
*/
package activate
