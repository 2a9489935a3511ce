/*
Package storage provides the BoltDB-backed activation ledger.

Every activation run, successful or not, is appended to a single bucket as a
JSON-encoded types.Activation. Records are keyed by a version 7 UUID, so
iterating the bucket yields them in the order they were recorded:

	<ledger path>  (default /var/lib/ceph/osd-activate.db)
	└── activations
	    ├── 018e...  {"Target":"/dev/sdb1","Result":"succeeded",...}
	    └── 018f...  {"Target":"/dev/sdb1","Result":"already-mounted",...}

The ledger is history only; activation state itself lives in the marker
files on each volume. The database is opened with a short lock timeout so a
concurrent activation holding it makes the other run skip recording instead
of hanging.
*/
package storage
