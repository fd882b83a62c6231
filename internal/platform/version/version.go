package version

import "runtime"

// This variables are injected at build time with -ldflags "-X ...".

// Version hosts the version of the app.
var Version = "development"

// Commit is the commit hash of the build
var Commit string

// BuildDate is the date it was built
var BuildDate string

// GoVersion is the go version that was used to compile this
var GoVersion = runtime.Version()
