/*
Package cluster is the control-plane side of OSD activation.

Client wraps the ceph command-line tools, authenticating as
client.bootstrap-osd with the bootstrap keyring:

	CreateIdentity         ceph osd create --concise <osd-fsid>
	GetMembershipSnapshot  ceph mon getmap
	RegisterCredential     ceph auth add osd.N -i <keyring> osd 'allow *' mon 'allow rwx'
	LookupConfigValue      ceph-conf --name=osd. --lookup <key>

Formatter runs ceph-osd --mkfs --mkkey against an OSD data directory.

Both go through a command.Runner, so tool failures surface as *command.Error
with the exit status and stderr attached, and tests can substitute a
commandtest.FakeRunner.
*/
package cluster
