package conveyor

// Version is the library release, overridable at build time with
// -ldflags "-X github.com/loopforge/conveyor.Version=...".
var Version = "0.1.0"
