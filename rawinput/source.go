package rawinput

import "log/slog"

// Options configures a platform Source.
type Options struct {
	Logger  *slog.Logger
	Decoder Decoder
	// Tap, if set, sees every raw report before it is decoded.
	Tap Tap
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Decoder == nil {
		o.Decoder = NativeDecoder()
	}
}
