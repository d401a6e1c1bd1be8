package cache

// ScopedKeyer prefixes every key of an inner Keyer. The CLI scopes keys by
// release so artifacts drawn by another version are never reused.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner (or the default keyer when nil) with prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// GraphKey implements [Keyer].
func (k *ScopedKeyer) GraphKey(backend, jobID, resultID string) string {
	return k.prefix + k.inner.GraphKey(backend, jobID, resultID)
}

// ArtifactKey implements [Keyer].
func (k *ScopedKeyer) ArtifactKey(graphHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(graphHash, opts)
}
