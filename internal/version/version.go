// Package version carries the build version stamped into release binaries.
package version

// build is overridden at release time:
//
//	-ldflags "-X github.com/effective-security/xrpm/internal/version.build=0.3.1"
var build = "dev"

// Info is a printable build version.
type Info string

// Current returns the version of the running binary.
func Current() Info {
	return Info(build)
}

func (v Info) String() string {
	return string(v)
}
