// Package command runs the external tools activation depends on (blkid,
// ceph, ceph-conf, ceph-osd, initctl, service) and turns their failures into
// *Error values carrying argv, exit status and stderr. Package commandtest
// provides a Runner that replays canned responses in tests.
package command
