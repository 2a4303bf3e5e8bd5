package main

// KeyInjector is the keyboard synthesis capability consumed by the macro
// executor and the write-text action. Each call is a short, synchronous
// OS operation and each is independently fallible; callers log failures
// and carry on.
type KeyInjector interface {
	Press(k KeyStroke) error
	Release(k KeyStroke) error
	Type(text string) error
}

// nopInjector discards all injection calls. Used when the daemon runs on
// a host without a usable injection backend.
type nopInjector struct{}

func (nopInjector) Press(KeyStroke) error   { return nil }
func (nopInjector) Release(KeyStroke) error { return nil }
func (nopInjector) Type(string) error       { return nil }
