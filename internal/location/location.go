// Package location parses transfer endpoints of the form [user@]host:path.
package location

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Validation errors surfaced to the CLI. Exactly one endpoint of a
// transfer must be remote.
var (
	ErrBothRemote  = errors.New("Cannot copy from remote to remote")
	ErrBothLocal   = errors.New("At least one location must be remote")
	ErrMissingUser = errors.New("no user specified and USER environment variable is not set")
)

// Location is one endpoint of a transfer. A remote endpoint carries a
// user and host; a local endpoint is just a path.
type Location struct {
	User string
	Host string
	Path string
}

// Remote reports whether the location refers to a remote host.
func (l Location) Remote() bool {
	return l.Host != ""
}

func (l Location) String() string {
	if !l.Remote() {
		return l.Path
	}
	return fmt.Sprintf("%s@%s:%s", l.User, l.Host, l.Path)
}

// Parse interprets s as either a local path or [user@]host:path.
// A missing user falls back to the USER environment variable, an empty
// remote path defaults to ".". Empty user or host segments are rejected.
func Parse(s string) (Location, error) {
	if !strings.Contains(s, ":") {
		return Location{Path: s}, nil
	}

	userHost, path, _ := strings.Cut(s, ":")
	if path == "" {
		path = "."
	}

	if strings.HasPrefix(userHost, "@") || strings.HasSuffix(userHost, "@") {
		return Location{}, fmt.Errorf("invalid location %q: expected either a local path or user@host:path", s)
	}

	switch parts := strings.Split(userHost, "@"); len(parts) {
	case 1:
		user := os.Getenv("USER")
		if user == "" {
			return Location{}, ErrMissingUser
		}
		if parts[0] == "" {
			return Location{}, fmt.Errorf("invalid location %q: empty host", s)
		}
		return Location{User: user, Host: parts[0], Path: path}, nil
	case 2:
		return Location{User: parts[0], Host: parts[1], Path: path}, nil
	default:
		return Location{}, fmt.Errorf("invalid location %q: expected either a local path or user@host:path", s)
	}
}

// ValidatePair checks that exactly one of source and destination is remote
// and that local endpoints exist in the required shape: a push source must
// be a regular file, a pull destination must be a directory.
func ValidatePair(source, dest Location) error {
	switch {
	case source.Remote() && dest.Remote():
		return ErrBothRemote
	case !source.Remote() && !dest.Remote():
		return ErrBothLocal
	}

	if !source.Remote() {
		fi, err := os.Stat(source.Path)
		if err != nil {
			return fmt.Errorf("source file %q does not exist", source.Path)
		}
		if !fi.Mode().IsRegular() {
			return fmt.Errorf("source path %q is not a file", source.Path)
		}
	}

	if !dest.Remote() {
		fi, err := os.Stat(dest.Path)
		if err != nil {
			return fmt.Errorf("destination directory %q does not exist", dest.Path)
		}
		if !fi.IsDir() {
			return fmt.Errorf("destination path %q is not a directory", dest.Path)
		}
	}

	return nil
}
