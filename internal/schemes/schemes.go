// Package schemes lists the repository URI schemes TimeLocker recognizes
// (spec.md §6.5). It is a standalone package so both the configuration
// validator (C2) and the repository factory/registry (C5) can check a URI
// against the same list without importing one another.
package schemes

// Known is the set of backend scheme names the reference backend set
// registers at startup. A custom backend registered at runtime (C5's
// Open/Closed registry) may add to this set; Known only lists what ships
// built-in.
var Known = map[string]bool{
	"local":  true,
	"file":   true,
	"s3":     true,
	"b2":     true,
	"sftp":   true,
	"rest":   true,
	"rclone": true,
	"swift":  true,
	"azure":  true,
	"gs":     true,
}

// IsKnown reports whether scheme is one of the built-in registered schemes.
func IsKnown(scheme string) bool {
	return Known[scheme]
}
