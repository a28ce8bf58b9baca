// Package version holds the release version stamped into builds.
package version

// Current is the module version, without a leading v.
const Current = "0.1.0"
