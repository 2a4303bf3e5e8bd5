package main

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// Macro parsing and execution
// ============================================================================
//
// A macro string describes a sequence of comma-separated sections. A key
// section ("ctrl+shift+a") presses all of its keys together and releases
// them together; a delay section ("delay1.5", or bare "delay" for the
// default) pauses execution between sections.
//
// Parsing is total: malformed input degrades to a best-effort token and
// the problem is surfaced at execution time or in the log, never as an
// error to the caller.
// ============================================================================

// macroToken is a single key within a key section. Names found in the
// static keymap carry their resolved code; anything else is kept verbatim
// and resolved as a literal character at execution time.
type macroToken struct {
	name  string
	code  uint16
	known bool
}

// macroSection is one comma-delimited unit of a macro: either a set of
// keys pressed and released together, or a single delay.
type macroSection struct {
	keys []macroToken

	isDelay bool
	delay   time.Duration
	// explicit records whether the user supplied the delay duration, as
	// opposed to the bare-"delay" default.
	explicit bool
	// badDelay marks a delay whose duration suffix failed to parse. The
	// delay collapses to zero and the failure is logged.
	badDelay bool
	// rawDelay keeps the unparseable suffix for the log message.
	rawDelay string
}

type parsedMacro []macroSection

// replaceSpecialKeys substitutes the keyword escapes for the characters
// that cannot appear literally inside a macro because they delimit it.
func replaceSpecialKeys(name string) string {
	switch strings.ToLower(name) {
	case "plus":
		return "+"
	case "comma":
		return ","
	}
	return name
}

// parseMacro turns a user-authored key-combo string into an ordered list
// of sections. It never fails; whitespace is insignificant.
func parseMacro(raw string) parsedMacro {
	stripped := strings.Join(strings.Fields(raw), "")
	if stripped == "" {
		return nil
	}

	var macro parsedMacro
	for _, segment := range strings.Split(stripped, ",") {
		lower := strings.ToLower(segment)
		if strings.HasPrefix(lower, "delay") {
			macro = append(macro, parseDelaySection(lower[len("delay"):]))
			continue
		}

		var keys []macroToken
		for _, name := range strings.Split(segment, "+") {
			name = replaceSpecialKeys(name)
			code, known := lookupKeyName(name)
			keys = append(keys, macroToken{name: name, code: code, known: known})
		}
		macro = append(macro, macroSection{keys: keys})
	}
	return macro
}

// parseDelaySection parses the duration suffix of a "delay..." segment.
// No suffix means the default pause; a suffix that is not a number means
// no pause at all, flagged for the log.
func parseDelaySection(suffix string) macroSection {
	if suffix == "" {
		return macroSection{isDelay: true, delay: defaultMacroDelay}
	}

	seconds, err := strconv.ParseFloat(suffix, 64)
	if err != nil {
		return macroSection{isDelay: true, explicit: true, badDelay: true, rawDelay: suffix}
	}
	return macroSection{
		isDelay:  true,
		explicit: true,
		delay:    time.Duration(seconds * float64(time.Second)),
	}
}

// strokeFor resolves a token to an injectable stroke. Unknown names fall
// through to the literal single-character table.
func strokeFor(tok macroToken) (KeyStroke, error) {
	if tok.known {
		return KeyStroke{Code: tok.code}, nil
	}
	runes := []rune(tok.name)
	if len(runes) == 1 {
		if st, ok := charStroke(runes[0]); ok {
			return st, nil
		}
	}
	return KeyStroke{}, fmt.Errorf("no key code for %q", tok.name)
}

// runMacro executes a parsed macro against the injector, strictly in
// section order. For every key section all presses happen before any
// release, and a failing key never prevents the remaining keys in its
// section (or later sections) from being attempted. Once started, the
// macro always runs to completion.
//
// Delay sections genuinely block the calling goroutine. The dispatcher
// runs macros on its own worker, so a long delay stalls only the key
// event that asked for it.
func runMacro(macro parsedMacro, injector KeyInjector, logger *slog.Logger) {
	for _, section := range macro {
		if section.isDelay {
			if section.badDelay {
				logger.Warn("could not parse macro delay", "suffix", section.rawDelay)
			}
			if section.delay > 0 {
				time.Sleep(section.delay)
			}
			continue
		}

		for _, tok := range section.keys {
			st, err := strokeFor(tok)
			if err != nil {
				logger.Warn("could not press key", "key", tok.name, "error", err)
				continue
			}
			if err := injector.Press(st); err != nil {
				logger.Warn("could not press key", "key", tok.name, "error", err)
			}
		}

		for _, tok := range section.keys {
			st, err := strokeFor(tok)
			if err != nil {
				logger.Warn("could not release key", "key", tok.name, "error", err)
				continue
			}
			if err := injector.Release(st); err != nil {
				logger.Warn("could not release key", "key", tok.name, "error", err)
			}
		}
	}
}

// typeText types literal text through the injector, best-effort.
func typeText(text string, injector KeyInjector, logger *slog.Logger) {
	if err := injector.Type(text); err != nil {
		logger.Warn("could not type text", "error", err)
	}
}
