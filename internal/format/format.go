// Package format implements the BBC BASIC format register backed by @%:
// byte 0 is field width, byte 1 significant places, byte 2 the form
// (0 normal, 1 scientific, 2 fixed).
package format

import "bbasic/internal/value"

const DefaultAt = 0x0000090A // width 10, places 9, form normal

// Register derives the width/places/form triple used to stringify
// numeric values from @%. @% itself lives in the symbol table's resident
// integer vector (it is slot 0 there, spec.md §4.3); Register is handed a
// pointer into that slot rather than owning a copy, so the one value is
// shared between "resident integer @%" and "the format register".
type Register struct {
	at *int32
}

func NewRegister(atSlot *int32) *Register {
	*atSlot = DefaultAt
	return &Register{at: atSlot}
}

func (r *Register) Get() int32  { return *r.at }
func (r *Register) Set(v int32) { *r.at = v }

// Options derives the current FormatOptions from @%.
func (r *Register) Options() value.FormatOptions {
	raw := uint32(*r.at)
	width := int(raw & 0xFF)
	places := int((raw >> 8) & 0xFF)
	form := int((raw >> 16) & 0xFF)

	if places < 1 {
		places = 1
	}
	if places > 10 {
		places = 10
	}

	var f value.Form
	switch form {
	case 1:
		f = value.FormScientific
	case 2:
		f = value.FormFixed
	default:
		f = value.FormNormal
	}

	return value.FormatOptions{Width: width, Places: places, Form: f}
}

// StringifyForPrint renders v the way PRINT does: field width applied.
func (r *Register) StringifyForPrint(v value.Value) string {
	return v.ToString(r.Options(), true)
}

// StringifyForSTR renders v the way STR$ does: same places/form, no width.
func (r *Register) StringifyForSTR(v value.Value) string {
	return v.ToString(r.Options(), false)
}
