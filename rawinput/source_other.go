//go:build !windows

package rawinput

type unsupportedSource struct{}

// NewSource returns the platform raw mouse source. Only Windows has one.
func NewSource(o Options) Source {
	return unsupportedSource{}
}

func (unsupportedSource) Start(Sink) error { return ErrUnsupportedPlatform }

func (unsupportedSource) Stop() error { return nil }
