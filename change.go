package sitetheme

// Change is a message consumed by the engine's dispatcher.
// It is one of PersistedChange or InPageChange.
type Change interface {
	isChange()
}

// PersistedChange carries the text of a snapshot written by another context.
// The dispatcher parses it before applying.
type PersistedChange struct {
	Text string
}

// InPageChange carries an already structured configuration published in the
// same context. The dispatcher applies it without parsing.
type InPageChange struct {
	Config Config
}

// barrier is an internal message used by Engine.Sync.
type barrier struct {
	done chan struct{}
}

func (PersistedChange) isChange() {}
func (InPageChange) isChange()    {}
func (barrier) isChange()         {}

// ConfigChanged is the payload of the in-page "configChanged" notification.
type ConfigChanged struct {
	Config Config
}
