package elvis

import (
	"strconv"

	"github.com/Masterminds/semver/v3"
)

const version = "1.4.0"

// Version is the version of this client.
var Version = semver.MustParse(version)

// UserAgent returns the User-Agent header sent with every request.
func UserAgent() string {
	return "elvis-go/" + Version.String()
}

// CompatibleWith reports whether state written by a client of version v can
// be used by this client. Releases sharing the major version are compatible.
func CompatibleWith(v string) bool {
	other, err := semver.NewVersion(v)
	if err != nil {
		return false
	}
	c, err := semver.NewConstraint("^" + strconv.FormatUint(Version.Major(), 10))
	if err != nil {
		return false
	}
	return c.Check(other)
}
