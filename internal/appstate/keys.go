package appstate

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/mobile/event/key"

	"github.com/example/defectmark/internal/editor"
)

// KeyShortcut describes a keyboard combination that triggers an action.
// Either Rune or Code is set.
type KeyShortcut struct {
	Rune      rune
	Code      key.Code
	Modifiers key.Modifiers
}

func (k KeyShortcut) String() string {
	var parts []string
	if k.Modifiers&key.ModControl != 0 {
		parts = append(parts, "Ctrl")
	}
	if k.Modifiers&key.ModShift != 0 {
		parts = append(parts, "Shift")
	}
	switch {
	case k.Rune == ' ':
		parts = append(parts, "Space")
	case k.Rune != 0:
		parts = append(parts, strings.ToUpper(string(k.Rune)))
	default:
		parts = append(parts, codeNames[k.Code])
	}
	return strings.Join(parts, "+")
}

var codeNames = map[key.Code]string{
	key.CodeEscape:          "Esc",
	key.CodeReturnEnter:     "Enter",
	key.CodeTab:             "Tab",
	key.CodeDeleteBackspace: "Backspace",
	key.CodeDeleteForward:   "Del",
}

// Action names shared by keyboard shortcuts and buttons.
const (
	actPen         = "pen"
	actArrow       = "arrow"
	actRect        = "rect"
	actEllipse     = "ellipse"
	actText        = "text"
	actPan         = "pan"
	actUndo        = "undo"
	actClear       = "clear"
	actDelete      = "delete"
	actZoomIn      = "zoomin"
	actZoomOut     = "zoomout"
	actZoomReset   = "zoomreset"
	actNext        = "next"
	actPrev        = "prev"
	actRemoveImage = "removeimage"
	actRemoveBG    = "removebg"
	actCancelBG    = "cancelbg"
	actThinner     = "thinner"
	actThicker     = "thicker"
	actPaste       = "paste"
	actCopy        = "copy"
	actCamera      = "camera"
	actCapture     = "capture"
	actSwitch      = "switch"
	actDone        = "done"
	actSave        = "save"
	actQuit        = "quit"
	actEscape      = "escape"
	actTextDone    = "textdone"
	actTextCancel  = "textcancel"
	actYes         = "yes"
	actNo          = "no"
	// actColor, actWidth and actFont are followed by a preset index, as
	// in "color:2".
	actColor = "color:"
	actWidth = "width:"
	actFont  = "font:"
)

type binding struct {
	keys   []KeyShortcut
	action string
	hint   string
}

var quitBinding = binding{keys: []KeyShortcut{{Rune: 'q', Modifiers: key.ModControl}}, action: actQuit, hint: "quit"}

var bindings = map[editor.State][]binding{
	editor.StateInitial: {
		{keys: []KeyShortcut{{Rune: 'c'}}, action: actCamera, hint: "camera"},
		{keys: []KeyShortcut{{Rune: 'v', Modifiers: key.ModControl}}, action: actPaste, hint: "paste"},
		{keys: []KeyShortcut{{Code: key.CodeEscape}}, action: actQuit, hint: "cancel"},
		quitBinding,
	},
	editor.StateCamera: {
		{keys: []KeyShortcut{{Rune: ' '}}, action: actCapture, hint: "capture"},
		{keys: []KeyShortcut{{Code: key.CodeTab}}, action: actSwitch, hint: "switch"},
		{keys: []KeyShortcut{{Code: key.CodeReturnEnter}, {Code: key.CodeEscape}}, action: actDone, hint: "done"},
		quitBinding,
	},
	editor.StateEditor: {
		{keys: []KeyShortcut{{Rune: 'p'}}, action: actPen},
		{keys: []KeyShortcut{{Rune: 'a'}}, action: actArrow},
		{keys: []KeyShortcut{{Rune: 'r'}}, action: actRect},
		{keys: []KeyShortcut{{Rune: 'e'}}, action: actEllipse},
		{keys: []KeyShortcut{{Rune: 't'}}, action: actText},
		{keys: []KeyShortcut{{Rune: 'h'}}, action: actPan},
		{keys: []KeyShortcut{{Rune: 'z', Modifiers: key.ModControl}}, action: actUndo, hint: "undo"},
		{keys: []KeyShortcut{{Code: key.CodeDeleteForward}, {Code: key.CodeDeleteBackspace}}, action: actDelete, hint: "delete label"},
		{keys: []KeyShortcut{{Code: key.CodeDeleteBackspace, Modifiers: key.ModControl}}, action: actClear},
		{keys: []KeyShortcut{{Rune: '+'}, {Rune: '='}}, action: actZoomIn, hint: "zoom"},
		{keys: []KeyShortcut{{Rune: '-'}}, action: actZoomOut},
		{keys: []KeyShortcut{{Rune: '0'}}, action: actZoomReset},
		{keys: []KeyShortcut{{Code: key.CodeTab}}, action: actNext},
		{keys: []KeyShortcut{{Code: key.CodeTab, Modifiers: key.ModShift}}, action: actPrev},
		{keys: []KeyShortcut{{Rune: 'd', Modifiers: key.ModControl}}, action: actRemoveImage},
		{keys: []KeyShortcut{{Rune: 'b'}}, action: actRemoveBG, hint: "remove background"},
		{keys: []KeyShortcut{{Rune: '['}}, action: actThinner},
		{keys: []KeyShortcut{{Rune: ']'}}, action: actThicker},
		{keys: []KeyShortcut{{Rune: 'v', Modifiers: key.ModControl}}, action: actPaste},
		{keys: []KeyShortcut{{Rune: 'c', Modifiers: key.ModControl}}, action: actCopy},
		{keys: []KeyShortcut{{Rune: 'c'}}, action: actCamera},
		{keys: []KeyShortcut{{Rune: 's', Modifiers: key.ModControl}}, action: actSave, hint: "save"},
		{keys: []KeyShortcut{{Code: key.CodeEscape}}, action: actEscape},
		quitBinding,
	},
	editor.StateRemovingBackground: {
		{keys: []KeyShortcut{{Code: key.CodeEscape}}, action: actCancelBG, hint: "cancel"},
		quitBinding,
	},
}

var promptBindings = []binding{
	{keys: []KeyShortcut{{Code: key.CodeReturnEnter}}, action: actTextDone, hint: "place"},
	{keys: []KeyShortcut{{Code: key.CodeEscape}}, action: actTextCancel, hint: "cancel"},
}

var confirmBindings = []binding{
	{keys: []KeyShortcut{{Rune: 'y'}, {Code: key.CodeReturnEnter}}, action: actYes, hint: "yes"},
	{keys: []KeyShortcut{{Rune: 'n'}, {Code: key.CodeEscape}}, action: actNo, hint: "no"},
}

// normalize turns a key event into the shortcut it can match. Runes are
// lowercased and shift is dropped from them, since shift is what produced
// the rune in the first place.
func normalize(e key.Event) KeyShortcut {
	mods := e.Modifiers & (key.ModControl | key.ModShift)
	if e.Rune > 0 && unicode.IsPrint(e.Rune) {
		return KeyShortcut{Rune: unicode.ToLower(e.Rune), Modifiers: mods &^ key.ModShift}
	}
	return KeyShortcut{Code: e.Code, Modifiers: mods}
}

func lookup(list []binding, e key.Event) (string, bool) {
	ks := normalize(e)
	for _, b := range list {
		for _, k := range b.keys {
			if k == ks {
				return b.action, true
			}
		}
	}
	return "", false
}

// keyAction resolves a key press in the current mode. An open confirmation
// takes every key, then the text prompt, then the editor state's table.
// Digits pick palette colours while editing.
func keyAction(st editor.State, prompt, confirm bool, e key.Event) (string, bool) {
	switch {
	case confirm:
		return lookup(confirmBindings, e)
	case prompt:
		return lookup(promptBindings, e)
	}
	if action, ok := lookup(bindings[st], e); ok {
		return action, true
	}
	ks := normalize(e)
	if st == editor.StateEditor && ks.Modifiers == 0 && ks.Rune >= '1' && ks.Rune <= '9' {
		return fmt.Sprintf("%s%d", actColor, ks.Rune-'1'), true
	}
	return "", false
}

// hints lists the shortcuts shown in the status bar.
func hints(list []binding) []binding {
	out := make([]binding, 0, len(list))
	for _, b := range list {
		if b.hint != "" {
			out = append(out, b)
		}
	}
	return out
}
