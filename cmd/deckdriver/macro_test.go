package main

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingInjector captures every injected stroke. Setting failCode makes
// Press and Release fail for that code, for testing error isolation.
type recordingInjector struct {
	presses  []KeyStroke
	releases []KeyStroke
	typed    []string
	failCode uint16
}

func (r *recordingInjector) Press(st KeyStroke) error {
	r.presses = append(r.presses, st)
	if r.failCode != 0 && st.Code == r.failCode {
		return fmt.Errorf("injected press failure for code %d", st.Code)
	}
	return nil
}

func (r *recordingInjector) Release(st KeyStroke) error {
	r.releases = append(r.releases, st)
	if r.failCode != 0 && st.Code == r.failCode {
		return fmt.Errorf("injected release failure for code %d", st.Code)
	}
	return nil
}

func (r *recordingInjector) Type(text string) error {
	r.typed = append(r.typed, text)
	return nil
}

// TestParseMacro_Sections tests the basic section/token split
func TestParseMacro_Sections(t *testing.T) {
	macro := parseMacro("ctrl+shift+a,delay1.5,b")

	if len(macro) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(macro))
	}

	keys := macro[0]
	if keys.isDelay {
		t.Fatalf("section 0 should be a key section")
	}
	if len(keys.keys) != 3 {
		t.Fatalf("expected 3 keys in section 0, got %d", len(keys.keys))
	}
	if !keys.keys[0].known || keys.keys[0].code != KEY_LEFTCTRL {
		t.Errorf("expected ctrl -> KEY_LEFTCTRL, got %+v", keys.keys[0])
	}
	if !keys.keys[1].known || keys.keys[1].code != KEY_LEFTSHIFT {
		t.Errorf("expected shift -> KEY_LEFTSHIFT, got %+v", keys.keys[1])
	}
	if keys.keys[2].known {
		t.Errorf("expected 'a' to resolve as a literal character, got %+v", keys.keys[2])
	}

	delay := macro[1]
	if !delay.isDelay {
		t.Fatalf("section 1 should be a delay")
	}
	if delay.delay != 1500*time.Millisecond {
		t.Errorf("expected 1.5s delay, got %v", delay.delay)
	}
	if !delay.explicit {
		t.Errorf("expected delay to be marked explicit")
	}

	if macro[2].isDelay || len(macro[2].keys) != 1 {
		t.Fatalf("section 2 should be a single-key section, got %+v", macro[2])
	}
}

// TestParseMacro_BareDelay tests that "delay" alone uses the default pause
func TestParseMacro_BareDelay(t *testing.T) {
	macro := parseMacro("delay")

	if len(macro) != 1 {
		t.Fatalf("expected 1 section, got %d", len(macro))
	}
	s := macro[0]
	if !s.isDelay {
		t.Fatalf("expected a delay section, got %+v", s)
	}
	if s.delay != defaultMacroDelay {
		t.Errorf("expected default delay %v, got %v", defaultMacroDelay, s.delay)
	}
	if s.explicit {
		t.Errorf("bare delay should not be marked explicit")
	}
}

// TestParseMacro_BadDelay tests that an unparseable delay degrades to zero
func TestParseMacro_BadDelay(t *testing.T) {
	macro := parseMacro("delayXYZ")

	if len(macro) != 1 {
		t.Fatalf("expected 1 section, got %d", len(macro))
	}
	s := macro[0]
	if !s.isDelay || !s.badDelay {
		t.Fatalf("expected a bad delay section, got %+v", s)
	}
	if s.delay != 0 {
		t.Errorf("expected zero delay for bad suffix, got %v", s.delay)
	}
	if s.rawDelay != "xyz" {
		t.Errorf("expected raw suffix 'xyz', got %q", s.rawDelay)
	}
}

// TestParseMacro_SpecialKeys tests the plus/comma escapes
func TestParseMacro_SpecialKeys(t *testing.T) {
	macro := parseMacro("plus+comma")

	if len(macro) != 1 {
		t.Fatalf("expected 1 section, got %d", len(macro))
	}
	keys := macro[0].keys
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(keys))
	}
	if keys[0].name != "+" {
		t.Errorf("expected literal '+', got %q", keys[0].name)
	}
	if keys[1].name != "," {
		t.Errorf("expected literal ',', got %q", keys[1].name)
	}
}

// TestParseMacro_WhitespaceInsignificant tests whitespace stripping
func TestParseMacro_WhitespaceInsignificant(t *testing.T) {
	spaced := parseMacro(" ctrl + a ,\tb ")
	plain := parseMacro("ctrl+a,b")

	if len(spaced) != len(plain) {
		t.Fatalf("expected %d sections, got %d", len(plain), len(spaced))
	}
	for i := range plain {
		if len(spaced[i].keys) != len(plain[i].keys) {
			t.Fatalf("section %d: key count differs", i)
		}
		for j := range plain[i].keys {
			if spaced[i].keys[j] != plain[i].keys[j] {
				t.Errorf("section %d key %d: got %+v, want %+v", i, j, spaced[i].keys[j], plain[i].keys[j])
			}
		}
	}
}

// TestParseMacro_Empty tests that blank input yields no sections
func TestParseMacro_Empty(t *testing.T) {
	if m := parseMacro(""); m != nil {
		t.Errorf("expected nil macro for empty input, got %+v", m)
	}
	if m := parseMacro("   "); m != nil {
		t.Errorf("expected nil macro for whitespace input, got %+v", m)
	}
}

// TestRunMacro_PressBeforeRelease tests section ordering: all presses in a
// section happen before any release
func TestRunMacro_PressBeforeRelease(t *testing.T) {
	inj := &recordingInjector{}
	runMacro(parseMacro("ctrl+a"), inj, discardLogger())

	if len(inj.presses) != 2 || len(inj.releases) != 2 {
		t.Fatalf("expected 2 presses and 2 releases, got %d/%d", len(inj.presses), len(inj.releases))
	}
	if inj.presses[0].Code != KEY_LEFTCTRL || inj.presses[1].Code != KEY_A {
		t.Errorf("unexpected press order: %+v", inj.presses)
	}
	if inj.releases[0].Code != KEY_LEFTCTRL || inj.releases[1].Code != KEY_A {
		t.Errorf("unexpected release order: %+v", inj.releases)
	}
}

// TestRunMacro_FailedPressDoesNotAbort tests that a failing key never
// prevents the rest of the macro, and its release is still attempted
func TestRunMacro_FailedPressDoesNotAbort(t *testing.T) {
	inj := &recordingInjector{failCode: KEY_LEFTCTRL}
	runMacro(parseMacro("ctrl+a,b"), inj, discardLogger())

	if len(inj.presses) != 3 {
		t.Fatalf("expected 3 press attempts, got %d", len(inj.presses))
	}
	if len(inj.releases) != 3 {
		t.Fatalf("expected 3 release attempts, got %d", len(inj.releases))
	}
}

// TestRunMacro_UnknownKeySkipped tests that an unresolvable token is
// skipped while the rest of its section runs
func TestRunMacro_UnknownKeySkipped(t *testing.T) {
	inj := &recordingInjector{}
	runMacro(parseMacro("nosuchkey+a"), inj, discardLogger())

	if len(inj.presses) != 1 || inj.presses[0].Code != KEY_A {
		t.Fatalf("expected only 'a' pressed, got %+v", inj.presses)
	}
	if len(inj.releases) != 1 || inj.releases[0].Code != KEY_A {
		t.Fatalf("expected only 'a' released, got %+v", inj.releases)
	}
}

// TestRunMacro_BadDelayRunsImmediately tests that a zero (bad) delay does
// not pause execution
func TestRunMacro_BadDelayRunsImmediately(t *testing.T) {
	inj := &recordingInjector{}

	start := time.Now()
	runMacro(parseMacro("a,delaybogus,b"), inj, discardLogger())
	elapsed := time.Since(start)

	if elapsed > 100*time.Millisecond {
		t.Errorf("macro with bad delay should run immediately, took %v", elapsed)
	}
	if len(inj.presses) != 2 {
		t.Fatalf("expected both keys pressed, got %+v", inj.presses)
	}
}

// TestRunMacro_ShiftedLiteral tests that an uppercase literal carries shift
func TestRunMacro_ShiftedLiteral(t *testing.T) {
	inj := &recordingInjector{}
	runMacro(parseMacro("A"), inj, discardLogger())

	if len(inj.presses) != 1 {
		t.Fatalf("expected 1 press, got %d", len(inj.presses))
	}
	if inj.presses[0] != (KeyStroke{Code: KEY_A, Shift: true}) {
		t.Errorf("expected shifted KEY_A, got %+v", inj.presses[0])
	}
}

// TestTypeText_Delegates tests that typeText passes the text through
func TestTypeText_Delegates(t *testing.T) {
	inj := &recordingInjector{}
	typeText("hello world", inj, discardLogger())

	if len(inj.typed) != 1 || inj.typed[0] != "hello world" {
		t.Errorf("expected text passed through, got %+v", inj.typed)
	}
}
