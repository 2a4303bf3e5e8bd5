//go:build !linux

package main

import "fmt"

// uinput only exists on Linux; other platforms must configure the "none"
// backend.
type uinputInjector struct{}

func newUinputInjector() (*uinputInjector, error) {
	return nil, fmt.Errorf("uinput key injection requires linux")
}

func (*uinputInjector) Press(KeyStroke) error   { return fmt.Errorf("uinput unavailable") }
func (*uinputInjector) Release(KeyStroke) error { return fmt.Errorf("uinput unavailable") }
func (*uinputInjector) Type(string) error       { return fmt.Errorf("uinput unavailable") }
func (*uinputInjector) Close() error            { return nil }
