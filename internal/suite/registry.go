package suite

const (
	NameBackend    = "backend"
	NameCompletion = "completion"
)

// Names lists the registered check tables.
func Names() []string {
	return []string{NameBackend, NameCompletion}
}
