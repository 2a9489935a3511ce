/*
Package log provides structured logging for osd-activate using zerolog.

The package wraps zerolog with a small configuration type and a handful of
helpers for attaching context fields. There is no package-level logger: the
entry point builds one with New and hands it to each component constructor,
which derives a child logger with WithComponent.

# Usage

Building the logger:

	logger := log.New(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: false,
		Output:     os.Stderr,
	})

Component loggers:

	mountLog := log.WithComponent(logger, "mount")
	mountLog.Debug().Str("device", "/dev/sdb1").Msg("probing filesystem type")

	osdLog := log.WithOSD(mountLog, "ceph", "3")
	osdLog.Info().Msg("moved mount to canonical path")

Tests pass log.Nop() wherever a logger is required.

# Output

Console format (default):

	2024-10-13T10:30:00Z INF allocated osd id component=activate osd_id=0 path=/var/lib/ceph/tmp/mnt.4121.0bd2

JSON format (--log-json):

	{"level":"info","component":"activate","osd_id":"0","time":"2024-10-13T10:30:00Z","message":"allocated osd id"}

Logs go to stderr so that stdout stays free for command output. The verbose
flag switches the level to debug and changes nothing else.
*/
package log
