// Package filter implements the streaming terminal control-sequence
// filter at the heart of ttymon: it re-emits every escape sequence it
// sees byte-for-byte, except the window-title-setting OSC 0 sequence,
// which it captures instead of forwarding, and the outbound title it is
// asked to synthesize, which it injects at safe flush boundaries.
package filter

import (
	"bytes"
	"unicode/utf8"
)

const (
	esc = 0x1B
	bel = 0x07
)

// state is the filter's position in the escape-sequence state machine.
type state int

const (
	stGround state = iota
	stEscape
	stCSI
	stOSC
	stOSCEsc
	stDCS
	stDCSPassthrough
	stDCSPassthroughEsc
)

// defaultInboundTitle is the title reported before any OSC 0 has been seen.
const defaultInboundTitle = "ttymon"

// Filter is a streaming terminal control-sequence filter. It is not
// safe for concurrent use; the event loop that owns it runs single
// threaded.
type Filter struct {
	state state

	out []byte

	inTitle  string
	outTitle string

	outPending string
	hasPending bool
	inDCS      bool

	escIntermediates []byte
	csiRaw           []byte
	oscRaw           []byte
	dcsRaw           []byte
}

// New returns a Filter ready to receive bytes, with the inbound title
// defaulted to "ttymon" per the wire-format contract.
func New() *Filter {
	return &Filter{inTitle: defaultInboundTitle}
}

// Feed consumes arbitrary bytes, appending transparently-forwarded
// output to the internal output buffer. It never fails: malformed
// sequences are forwarded in best-effort form.
func (f *Filter) Feed(data []byte) {
	for _, b := range data {
		f.step(b)
	}
}

// Output returns the bytes accumulated since the last ClearOutput.
func (f *Filter) Output() []byte {
	return f.out
}

// ClearOutput discards the accumulated output buffer.
func (f *Filter) ClearOutput() {
	f.out = f.out[:0]
}

// InboundTitle returns the most recently captured OSC 0 title.
func (f *Filter) InboundTitle() string {
	return f.inTitle
}

// SetOutboundTitle requests that title become the new outbound window
// title. It is a no-op if title equals the last-emitted outbound
// title. If a Device Control String is in progress, emission is
// deferred until the DCS ends (unhook); injecting an OSC mid-DCS
// corrupts DCS state on some terminals.
func (f *Filter) SetOutboundTitle(title string) {
	if title == f.outTitle {
		return
	}
	if f.inDCS {
		f.outPending = title
		f.hasPending = true
		return
	}
	f.emitTitle(title)
}

func (f *Filter) emitTitle(title string) {
	f.out = append(f.out, esc, ']', '0', ';')
	f.out = append(f.out, title...)
	f.out = append(f.out, esc, '\\')
	f.outTitle = title
}

func (f *Filter) step(b byte) {
	switch f.state {
	case stGround:
		f.stepGround(b)
	case stEscape:
		f.stepEscape(b)
	case stCSI:
		f.stepCSI(b)
	case stOSC:
		f.stepOSC(b)
	case stOSCEsc:
		f.stepOSCEsc(b)
	case stDCS:
		f.stepDCS(b)
	case stDCSPassthrough:
		f.stepDCSPassthrough(b)
	case stDCSPassthroughEsc:
		f.stepDCSPassthroughEsc(b)
	}
}

func (f *Filter) stepGround(b byte) {
	if b == esc {
		f.state = stEscape
		f.escIntermediates = f.escIntermediates[:0]
		return
	}
	// Printable characters and C0 control bytes alike are forwarded
	// verbatim: the bytes are already correctly UTF-8 encoded on the
	// wire, and C0 execution bytes pass through untouched.
	f.out = append(f.out, b)
}

func (f *Filter) stepEscape(b byte) {
	switch b {
	case '[':
		f.state = stCSI
		f.csiRaw = f.csiRaw[:0]
	case ']':
		f.state = stOSC
		f.oscRaw = f.oscRaw[:0]
	case 'P':
		f.state = stDCS
		f.inDCS = true
		f.dcsRaw = f.dcsRaw[:0]
	default:
		if b >= 0x20 && b <= 0x2F {
			f.escIntermediates = append(f.escIntermediates, b)
			return
		}
		// esc_dispatch: emit the canonical prefix, intermediates, final byte.
		f.out = append(f.out, esc)
		f.out = append(f.out, f.escIntermediates...)
		f.out = append(f.out, b)
		f.state = stGround
	}
}

func (f *Filter) stepCSI(b byte) {
	if b >= 0x40 && b <= 0x7E {
		f.out = append(f.out, esc, '[')
		f.out = append(f.out, f.csiRaw...)
		f.out = append(f.out, b)
		f.state = stGround
		return
	}
	f.csiRaw = append(f.csiRaw, b)
}

func (f *Filter) stepOSC(b byte) {
	switch b {
	case bel:
		f.dispatchOSC(true)
		f.state = stGround
	case esc:
		f.state = stOSCEsc
	default:
		f.oscRaw = append(f.oscRaw, b)
	}
}

func (f *Filter) stepOSCEsc(b byte) {
	if b == '\\' {
		f.dispatchOSC(false)
		f.state = stGround
		return
	}
	// Not a string terminator after all: the ESC was data.
	f.oscRaw = append(f.oscRaw, esc)
	f.state = stOSC
	f.step(b)
}

// dispatchOSC handles the OSC payload collected in f.oscRaw.
// bellTerminated records which terminator the input used, so non-title
// OSCs are re-emitted with the same terminator they arrived with.
func (f *Filter) dispatchOSC(bellTerminated bool) {
	parts := bytes.SplitN(f.oscRaw, []byte{';'}, 3)
	if len(parts) == 2 && string(parts[0]) == "0" {
		if utf8.Valid(parts[1]) {
			f.inTitle = string(parts[1])
		}
		// Invalid UTF-8 silently leaves the title unchanged.
		return
	}
	// Any other OSC dispatch is re-emitted verbatim with its original
	// terminator.
	f.out = append(f.out, esc, ']')
	f.out = append(f.out, f.oscRaw...)
	if bellTerminated {
		f.out = append(f.out, bel)
	} else {
		f.out = append(f.out, esc, '\\')
	}
}

func (f *Filter) stepDCS(b byte) {
	if b >= 0x40 && b <= 0x7E {
		// hook: emit the DCS prefix now, then pass payload through
		// verbatim until unhook.
		f.out = append(f.out, esc, 'P')
		f.out = append(f.out, f.dcsRaw...)
		f.out = append(f.out, b)
		f.state = stDCSPassthrough
		return
	}
	f.dcsRaw = append(f.dcsRaw, b)
}

func (f *Filter) stepDCSPassthrough(b byte) {
	if b == esc {
		f.state = stDCSPassthroughEsc
		return
	}
	f.out = append(f.out, b)
}

func (f *Filter) stepDCSPassthroughEsc(b byte) {
	if b == '\\' {
		f.unhook()
		return
	}
	f.out = append(f.out, esc)
	f.state = stDCSPassthrough
	f.step(b)
}

// unhook ends the DCS, emitting the string terminator and flushing any
// outbound title that was deferred while the DCS was in progress.
func (f *Filter) unhook() {
	f.out = append(f.out, esc, '\\')
	f.inDCS = false
	f.state = stGround
	if f.hasPending {
		f.hasPending = false
		f.emitTitle(f.outPending)
	}
}
