/*
Package initsys starts an activated OSD's daemon through the init system its
volume is tagged for.

	upstart    initctl --no-wait emit ceph-osd cluster=C id=N   (fire and forget)
	sysvinit   service C start osd.N                            (waits for the script)
	systemd    StartUnit ceph-osd@N.service over D-Bus          (waits for the job)

The systemd path talks to the manager directly through
github.com/coreos/go-systemd/v22/dbus; tests substitute a DBusAPI fake.
*/
package initsys
