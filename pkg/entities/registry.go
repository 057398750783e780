package entities

// Registry is a configured image registry credential, keyed by name in
// the environment description (spec.md §6). LoginTask matches an image's
// registry host against either a Registry's key or the host:port of its
// URL.
type Registry struct {
	Name     string
	URL      string
	Username string
	Password string
	Email    string
}
