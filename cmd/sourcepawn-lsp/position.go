package main

import (
	"unicode/utf8"

	"go.lsp.dev/protocol"
)

// lineIndex maps between byte offsets into text and UTF-16 LSP positions.
// Nothing under internal/ needs this conversion — the core speaks byte
// offsets exclusively (SPEC_FULL.md's own non-goal: "rendering of results to
// LSP types" belongs to the transport layer) — so it is built fresh here
// rather than adapted from a teacher file, grounded on the general
// requirement every go.lsp.dev/protocol-based server has to satisfy
// (positions are UTF-16 code unit counts per the LSP spec, not bytes or
// runes).
type lineIndex struct {
	text        string
	lineOffsets []uint32 // byte offset of the start of each line
}

func newLineIndex(text string) *lineIndex {
	offsets := []uint32{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			offsets = append(offsets, uint32(i+1))
		}
	}
	return &lineIndex{text: text, lineOffsets: offsets}
}

// Position converts a byte offset into text to an LSP (line, UTF-16
// character) position.
func (li *lineIndex) Position(offset uint32) protocol.Position {
	line := li.lineFor(offset)
	lineStart := li.lineOffsets[line]
	if int(offset) > len(li.text) {
		offset = uint32(len(li.text))
	}
	char := utf16Len(li.text[lineStart:offset])
	return protocol.Position{Line: uint32(line), Character: char}
}

// Offset converts an LSP position back to a byte offset into text.
func (li *lineIndex) Offset(pos protocol.Position) uint32 {
	line := int(pos.Line)
	if line < 0 {
		line = 0
	}
	if line >= len(li.lineOffsets) {
		return uint32(len(li.text))
	}
	lineStart := li.lineOffsets[line]
	lineEnd := uint32(len(li.text))
	if line+1 < len(li.lineOffsets) {
		lineEnd = li.lineOffsets[line+1]
	}
	return lineStart + byteOffsetForUTF16(li.text[lineStart:lineEnd], pos.Character)
}

func (li *lineIndex) lineFor(offset uint32) int {
	lo, hi := 0, len(li.lineOffsets)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if li.lineOffsets[mid] <= offset {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// utf16Len returns how many UTF-16 code units s encodes to: one per rune at
// or below U+FFFF, two (a surrogate pair) above it.
func utf16Len(s string) uint32 {
	var n uint32
	for _, r := range s {
		n += utf16UnitsFor(r)
	}
	return n
}

func utf16UnitsFor(r rune) uint32 {
	if r > 0xFFFF {
		return 2
	}
	return 1
}

// byteOffsetForUTF16 returns the byte offset into line reached after
// consuming units UTF-16 code units, clamped to len(line) if units overruns
// the line (a client describing a position past end-of-line).
func byteOffsetForUTF16(line string, units uint32) uint32 {
	var consumed uint32
	i := 0
	for i < len(line) {
		if consumed >= units {
			return uint32(i)
		}
		r, size := utf8.DecodeRuneInString(line[i:])
		consumed += utf16UnitsFor(r)
		i += size
	}
	return uint32(len(line))
}
