package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.lsp.dev/protocol"
)

func TestLineIndexASCII(t *testing.T) {
	li := newLineIndex("int foo;\nint bar;\n")

	pos := li.Position(13) // the 'b' of bar
	assert.Equal(t, protocol.Position{Line: 1, Character: 4}, pos)

	assert.Equal(t, uint32(13), li.Offset(protocol.Position{Line: 1, Character: 4}))
}

func TestLineIndexMultiByte(t *testing.T) {
	// "café" is 4 runes, 5 bytes (é is 2 bytes in UTF-8, 1 UTF-16 unit).
	li := newLineIndex("café\nbar\n")

	pos := li.Position(5) // byte offset right after café, start of "\n"
	assert.Equal(t, uint32(0), pos.Line)
	assert.Equal(t, uint32(4), pos.Character)

	assert.Equal(t, uint32(5), li.Offset(protocol.Position{Line: 0, Character: 4}))
}

func TestLineIndexAstralPlane(t *testing.T) {
	// U+1F600 encodes to 4 UTF-8 bytes and a UTF-16 surrogate pair (2 units),
	// exercising utf16UnitsFor's r > 0xFFFF branch.
	text := "\U0001F600x\n"
	li := newLineIndex(text)

	// offset 4 is right after the emoji, before "x".
	pos := li.Position(4)
	assert.Equal(t, uint32(0), pos.Line)
	assert.Equal(t, uint32(2), pos.Character)

	assert.Equal(t, uint32(4), li.Offset(protocol.Position{Line: 0, Character: 2}))
}

func TestLineIndexPositionPastEndOfLineClamps(t *testing.T) {
	li := newLineIndex("abc\n")
	offset := li.Offset(protocol.Position{Line: 0, Character: 100})
	assert.Equal(t, uint32(4), offset)
}

func TestLineIndexLastLineNoTrailingNewline(t *testing.T) {
	li := newLineIndex("abc")
	offset := li.Offset(protocol.Position{Line: 0, Character: 100})
	assert.Equal(t, uint32(3), offset)
}
