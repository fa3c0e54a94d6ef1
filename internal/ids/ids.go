// Package ids defines the opaque identifiers threaded through every layer of
// the analysis engine: file identity and the monotonic revision counter used
// to invalidate memoized query results.
package ids

// FileID is an opaque, process-lifetime-stable file identity assigned by the
// VFS. The core never stores paths — only FileIDs — so that renames and
// virtual/in-memory documents are handled uniformly.
type FileID uint32

// Invalid is the zero value, never assigned to a real file.
const Invalid FileID = 0

// Revision is a monotonic counter bumped once per file mutation. Every
// memoized query result records the revision of each file it read; a result
// is valid iff every one of those files is still at its recorded revision.
type Revision uint64

// ByteRange is a half-open [Start, End) byte range into some buffer. Ranges
// are compared and ordered by Start, then End, which is what SourceMap
// binary search and AstPtr descent both rely on.
type ByteRange struct {
	Start uint32
	End   uint32
}

// Len returns the number of bytes the range spans.
func (r ByteRange) Len() uint32 { return r.End - r.Start }

// IsEmpty reports whether the range spans zero bytes (used to mark
// synthesized/expanded tokens that have no direct original-text footprint).
func (r ByteRange) IsEmpty() bool { return r.Start == r.End }

// Contains reports whether pos falls within [Start, End).
func (r ByteRange) Contains(pos uint32) bool { return pos >= r.Start && pos < r.End }

// ContainsInclusive reports whether pos falls within [Start, End], allowing
// the end boundary — used when locating the token immediately preceding a
// cursor placed at an expansion/token seam.
func (r ByteRange) ContainsInclusive(pos uint32) bool { return pos >= r.Start && pos <= r.End }

// FilePosition locates an offset inside a specific file's original text.
type FilePosition struct {
	File   FileID
	Offset uint32
}

// FileRange locates a byte range inside a specific file's original text.
type FileRange struct {
	File  FileID
	Start uint32
	End   uint32
}
