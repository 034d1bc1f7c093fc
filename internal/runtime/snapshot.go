package runtime

// Snapshot is an immutable copy of a registry's declarations and options,
// produced by Registry.Snapshot. Broker connections, publishers, and
// reference documents are all built from a snapshot, never from the live
// registry.
type Snapshot struct {
	options      Options
	declarations []*Declaration
	byName       map[string]*Declaration
}

// Options returns the options frozen into the snapshot.
func (s *Snapshot) Options() Options {
	return s.options
}

// Declarations returns the frozen declarations in declare order. The slice
// must not be modified.
func (s *Snapshot) Declarations() []*Declaration {
	return s.declarations
}

// Get returns the declaration registered under name.
func (s *Snapshot) Get(name string) (*Declaration, bool) {
	d, ok := s.byName[name]
	return d, ok
}

// Len returns the number of declarations.
func (s *Snapshot) Len() int {
	return len(s.declarations)
}

// EffectiveExchangePrefix computes the prefix prepended to every exchange
// name, the same way for broker topology and reference documents. A
// username, when present, contributes an identity segment.
func (s *Snapshot) EffectiveExchangePrefix(username string) string {
	return effectiveExchangePrefix(s.options.ExchangePrefix, username)
}

func effectiveExchangePrefix(prefix, username string) string {
	if username == "" {
		return prefix
	}
	return "exchange/" + username + "/" + prefix
}
