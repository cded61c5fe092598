package session

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/zeebo/blake3"
)

// Fingerprint is the set of stable host characteristics the token store key
// is derived from.
type Fingerprint struct {
	Hostname   string
	Username   string
	OS         string
	Arch       string
	Executable string
}

// HostFingerprint collects the fingerprint of the running process. Lookups
// that fail contribute an empty field rather than an error.
func HostFingerprint() Fingerprint {
	fp := Fingerprint{OS: runtime.GOOS, Arch: runtime.GOARCH}
	if h, err := os.Hostname(); err == nil {
		fp.Hostname = h
	}
	if u, err := user.Current(); err == nil {
		fp.Username = u.Username
	}
	if exe, err := os.Executable(); err == nil {
		fp.Executable = filepath.Base(exe)
	}
	return fp
}

// Digest is the BLAKE3 hash of the fingerprint fields.
func (f Fingerprint) Digest() [32]byte {
	joined := strings.Join([]string{f.Hostname, f.Username, f.OS, f.Arch, f.Executable}, "\x00")
	return blake3.Sum256([]byte(joined))
}
