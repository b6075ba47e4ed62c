package fs

import (
	"bytes"
	"unicode/utf8"

	"evd-go/internal/evd"
)

// sniffLen is how many leading bytes the intake gate inspects.
const sniffLen = 512

type signature struct {
	offset int
	magic  []byte
	ct     evd.ContentType
}

// signatures covers the primary accepted content types: documents, images,
// and audio/video containers. Order matters only where prefixes overlap.
var signatures = []signature{
	{0, []byte("%PDF"), evd.ContentType{MIME: "application/pdf", Ext: "pdf"}},
	{0, []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, evd.ContentType{MIME: "image/png", Ext: "png"}},
	{0, []byte{0xFF, 0xD8, 0xFF}, evd.ContentType{MIME: "image/jpeg", Ext: "jpg"}},
	{0, []byte("GIF87a"), evd.ContentType{MIME: "image/gif", Ext: "gif"}},
	{0, []byte("GIF89a"), evd.ContentType{MIME: "image/gif", Ext: "gif"}},
	{0, []byte{'I', 'I', 0x2A, 0x00}, evd.ContentType{MIME: "image/tiff", Ext: "tiff"}},
	{0, []byte{'M', 'M', 0x00, 0x2A}, evd.ContentType{MIME: "image/tiff", Ext: "tiff"}},
	{0, []byte{'P', 'K', 0x03, 0x04}, evd.ContentType{MIME: "application/zip", Ext: "zip"}},
	{0, []byte{0x1A, 0x45, 0xDF, 0xA3}, evd.ContentType{MIME: "video/x-matroska", Ext: "mkv"}},
	{4, []byte("ftyp"), evd.ContentType{MIME: "video/mp4", Ext: "mp4"}},
	{0, []byte("ID3"), evd.ContentType{MIME: "audio/mpeg", Ext: "mp3"}},
	{0, []byte("OggS"), evd.ContentType{MIME: "audio/ogg", Ext: "ogg"}},
	{0, []byte("fLaC"), evd.ContentType{MIME: "audio/flac", Ext: "flac"}},
}

// DetectContentType classifies leading bytes. ok is false when the bytes
// match none of the accepted types; such files are rejected before entering
// the pipeline.
func DetectContentType(head []byte) (evd.ContentType, bool) {
	if len(head) == 0 {
		return evd.ContentType{}, false
	}

	for _, s := range signatures {
		end := s.offset + len(s.magic)
		if len(head) >= end && bytes.Equal(head[s.offset:end], s.magic) {
			return s.ct, true
		}
	}

	// RIFF containers carry the format tag at offset 8.
	if len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) {
		switch string(head[8:12]) {
		case "WAVE":
			return evd.ContentType{MIME: "audio/wav", Ext: "wav"}, true
		case "AVI ":
			return evd.ContentType{MIME: "video/x-msvideo", Ext: "avi"}, true
		}
		return evd.ContentType{}, false
	}

	if isPlainText(head) {
		return evd.ContentType{MIME: "text/plain", Ext: "txt"}, true
	}

	return evd.ContentType{}, false
}

// isPlainText accepts valid UTF-8 with no NUL bytes. Dispatch logs and
// agency responses frequently arrive as bare text.
func isPlainText(head []byte) bool {
	if bytes.IndexByte(head, 0x00) >= 0 {
		return false
	}
	// The window may end mid-rune; trim up to 3 trailing bytes until the
	// remainder validates.
	for trim := 0; trim <= 3 && trim < len(head); trim++ {
		if utf8.Valid(head[:len(head)-trim]) {
			return true
		}
	}
	return false
}
