//go:build linux

package main

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// ============================================================================
// uinput key injector
// ============================================================================
//
// Creates a virtual keyboard through /dev/uinput and synthesizes key
// events by writing input_event structs, the write-side mirror of the
// evdev read path. Requires access to /dev/uinput (root, or a udev rule
// granting the daemon's group).
// ============================================================================

// uinput ioctls and constants (from <linux/uinput.h>)
const (
	uiSetEvBit   = 0x40045564 // UI_SET_EVBIT
	uiSetKeyBit  = 0x40045565 // UI_SET_KEYBIT
	uiDevCreate  = 0x5501     // UI_DEV_CREATE
	uiDevDestroy = 0x5502     // UI_DEV_DESTROY

	busVirtual = 0x06

	uinputMaxNameSize = 80
	absSize           = 64
)

// inputID identifies the virtual device (struct input_id).
type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

// uinputUserDev is the legacy device setup block written to the uinput fd
// before UI_DEV_CREATE (struct uinput_user_dev).
type uinputUserDev struct {
	Name         [uinputMaxNameSize]byte
	ID           inputID
	FFEffectsMax uint32
	Absmax       [absSize]int32
	Absmin       [absSize]int32
	Absfuzz      [absSize]int32
	Absflat      [absSize]int32
}

// inputEvent is the kernel input event record (struct input_event on a
// 64-bit platform).
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// Event values for EV_KEY
const (
	evValueRelease = 0
	evValuePress   = 1
)

// uinputInjector is the production KeyInjector.
type uinputInjector struct {
	mu sync.Mutex
	fd int
}

// newUinputInjector opens /dev/uinput, registers every key code the
// keymap can produce and creates the virtual keyboard.
func newUinputInjector() (*uinputInjector, error) {
	fd, err := unix.Open("/dev/uinput", unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/uinput: %w (run as root or grant access via udev)", err)
	}

	if err := unix.IoctlSetInt(fd, uiSetEvBit, EV_KEY); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("UI_SET_EVBIT: %w", err)
	}

	for _, code := range injectableCodes() {
		if err := unix.IoctlSetInt(fd, uiSetKeyBit, int(code)); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("UI_SET_KEYBIT %d: %w", code, err)
		}
	}

	var setup uinputUserDev
	copy(setup.Name[:], "deckdriver virtual keyboard")
	setup.ID = inputID{Bustype: busVirtual, Vendor: 0x1d0f, Product: 0x1f01, Version: 1}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &setup); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("encode uinput setup: %w", err)
	}
	if _, err := unix.Write(fd, buf.Bytes()); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("write uinput setup: %w", err)
	}

	if err := unix.IoctlSetInt(fd, uiDevCreate, 0); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("UI_DEV_CREATE: %w", err)
	}

	// Give the kernel and listeners a moment to pick the device up
	// before the first injected event.
	time.Sleep(100 * time.Millisecond)

	return &uinputInjector{fd: fd}, nil
}

// injectableCodes collects every key code the keymap can emit, shift
// included.
func injectableCodes() []uint16 {
	seen := make(map[uint16]bool)
	var codes []uint16
	add := func(code uint16) {
		if !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}

	add(KEY_LEFTSHIFT)
	for _, code := range keyNames {
		add(code)
	}
	for _, st := range charStrokes {
		add(st.Code)
	}
	return codes
}

// Close destroys the virtual keyboard.
func (u *uinputInjector) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.fd < 0 {
		return nil
	}
	if err := unix.IoctlSetInt(u.fd, uiDevDestroy, 0); err != nil {
		unix.Close(u.fd)
		u.fd = -1
		return fmt.Errorf("UI_DEV_DESTROY: %w", err)
	}
	err := unix.Close(u.fd)
	u.fd = -1
	return err
}

// emit writes one event record followed by a SYN_REPORT.
func (u *uinputInjector) emit(typ, code uint16, value int32) error {
	now := time.Now()
	records := []inputEvent{
		{Sec: now.Unix(), Usec: int64(now.Nanosecond() / 1000), Type: typ, Code: code, Value: value},
		{Sec: now.Unix(), Usec: int64(now.Nanosecond() / 1000), Type: EV_SYN, Code: SYN_REPORT, Value: 0},
	}

	var buf bytes.Buffer
	for _, ev := range records {
		if err := binary.Write(&buf, binary.LittleEndian, &ev); err != nil {
			return fmt.Errorf("encode input event: %w", err)
		}
	}
	if _, err := unix.Write(u.fd, buf.Bytes()); err != nil {
		return fmt.Errorf("write input event: %w", err)
	}
	return nil
}

func (u *uinputInjector) Press(k KeyStroke) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.fd < 0 {
		return fmt.Errorf("injector closed")
	}
	if k.Shift {
		if err := u.emit(EV_KEY, KEY_LEFTSHIFT, evValuePress); err != nil {
			return err
		}
	}
	return u.emit(EV_KEY, k.Code, evValuePress)
}

func (u *uinputInjector) Release(k KeyStroke) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.fd < 0 {
		return fmt.Errorf("injector closed")
	}
	if err := u.emit(EV_KEY, k.Code, evValueRelease); err != nil {
		return err
	}
	if k.Shift {
		return u.emit(EV_KEY, KEY_LEFTSHIFT, evValueRelease)
	}
	return nil
}

// Type synthesizes a press/release pair per character, best-effort:
// characters outside the US-layout table are skipped and reported once
// at the end.
func (u *uinputInjector) Type(text string) error {
	skipped := 0
	for _, r := range text {
		st, ok := charStroke(r)
		if !ok {
			skipped++
			continue
		}
		if err := u.Press(st); err != nil {
			return fmt.Errorf("typing %q: %w", r, err)
		}
		if err := u.Release(st); err != nil {
			return fmt.Errorf("typing %q: %w", r, err)
		}
	}
	if skipped > 0 {
		return fmt.Errorf("%d character(s) not typeable on this layout", skipped)
	}
	return nil
}
