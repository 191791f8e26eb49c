package asan

// Version information for the Pure-Go AddressSanitizer runtime core.
const (
	// Version is the current version of the sanitizer runtime.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about the sanitizer.
type Info struct {
	// Version is the runtime version string.
	Version string

	// Model is the checking model in use.
	Model string

	// Enabled indicates whether checking is active.
	Enabled bool
}

// GetInfo returns information about the sanitizer runtime.
//
// Example:
//
//	info := asan.GetInfo()
//	fmt.Printf("AddressSanitizer %s (%s)\n", info.Version, info.Model)
func GetInfo() Info {
	return Info{
		Version: Version,
		Model:   "shadow-poison interception",
		Enabled: true, // Always enabled when using this package
	}
}
