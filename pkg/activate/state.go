package activate

import (
	"regexp"

	"github.com/google/uuid"

	"github.com/cuemby/osd-activate/pkg/marker"
	"github.com/cuemby/osd-activate/pkg/types"
)

const (
	// Magic identifies a volume laid out by a compatible version
	Magic = "ceph osd volume v026"
)

var osdIDPattern = regexp.MustCompile(`^[0-9]+$`)

// Value is a marker read from a volume: its text, and whether it exists
type Value struct {
	Text    string
	Present bool
}

// State is everything the markers on a volume say about it, read once
type State struct {
	Path        string
	ClusterFSID Value
	FSID        Value
	WhoAmI      Value
	Ready       bool
	Active      bool
	InitTags    []types.InitSystem
}

// checkMagic fails with *BadMagicError unless the magic marker holds Magic
func checkMagic(dir string) error {
	magic, ok, err := marker.Read(dir, marker.Magic)
	if err != nil {
		return &Error{Err: err}
	}
	if !ok || magic != Magic {
		return &BadMagicError{Path: dir, Found: magic}
	}
	return nil
}

// Scan reads the markers of the volume at dir. The magic marker is checked
// first, so an unrecognised directory is rejected before anything else on it
// is read.
func Scan(dir string) (*State, error) {
	if err := checkMagic(dir); err != nil {
		return nil, err
	}

	s := &State{Path: dir}

	values := []struct {
		name string
		dst  *Value
	}{
		{marker.ClusterFSID, &s.ClusterFSID},
		{marker.FSID, &s.FSID},
		{marker.WhoAmI, &s.WhoAmI},
	}
	for _, v := range values {
		text, ok, err := marker.Read(dir, v.name)
		if err != nil {
			return nil, &Error{Err: err}
		}
		*v.dst = Value{Text: text, Present: ok}
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{marker.Ready, &s.Ready},
		{marker.Active, &s.Active},
	}
	for _, f := range flags {
		exists, err := marker.Exists(dir, f.name)
		if err != nil {
			return nil, &Error{Err: err}
		}
		*f.dst = exists
	}

	for _, initSys := range types.InitSystems {
		exists, err := marker.Exists(dir, string(initSys))
		if err != nil {
			return nil, &Error{Err: err}
		}
		if exists {
			s.InitTags = append(s.InitTags, initSys)
		}
	}

	return s, nil
}

// Validate checks that the markers form a state the forward-only sequence
// could have produced
func (s *State) Validate() error {
	if !s.ClusterFSID.Present {
		return errorf("no cluster uuid assigned")
	}
	if !s.FSID.Present {
		return errorf("no OSD uuid assigned")
	}
	if _, err := uuid.Parse(s.FSID.Text); err != nil {
		return wrap(err, "bad OSD uuid %q", s.FSID.Text)
	}

	if s.WhoAmI.Present && !ValidID(s.WhoAmI.Text) {
		return errorf("bad osd id %q", s.WhoAmI.Text)
	}
	if s.Ready && !s.WhoAmI.Present {
		return errorf("inconsistent volume: %s present without %s", marker.Ready, marker.WhoAmI)
	}
	if s.Active && !s.Ready {
		return errorf("inconsistent volume: %s present without %s", marker.Active, marker.Ready)
	}

	return nil
}

// Tagged reports whether the volume carries exactly the tag for init
func (s *State) Tagged(initSys types.InitSystem) bool {
	return len(s.InitTags) == 1 && s.InitTags[0] == initSys
}

// ValidID reports whether id is a well-formed OSD id
func ValidID(id string) bool {
	return osdIDPattern.MatchString(id)
}
