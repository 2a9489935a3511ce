// Package config loads the optional YAML configuration file of osd-activate
// (default /etc/ceph/osd-activate.yaml). Command-line flags override it.
package config
