package evd

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// maxSlugLen keeps canonical filenames browsable; longer titles are
// truncated, not rejected.
const maxSlugLen = 48

// Slugify reduces a title to the lowercase token set used in canonical
// filenames: ASCII letters, digits and single hyphens.
func Slugify(title string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case unicode.IsSpace(r), r == '-', r == '_', r == '.':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "untitled"
	}
	return slug
}

// CanonicalName builds the deterministic canonical path for an evidence
// file: <case>/<date>_<type>_<slug>.<ext>. seq >= 2 appends a collision
// suffix to the slug so distinct bytes with identical metadata still get
// distinct paths.
func CanonicalName(caseIdent string, date time.Time, docType DocumentType, title, ext string, seq int) string {
	slug := Slugify(title)
	if seq >= 2 {
		slug = fmt.Sprintf("%s-%d", slug, seq)
	}
	return fmt.Sprintf("%s/%s_%s_%s.%s", caseIdent, date.Format("2006-01-02"), docType, slug, ext)
}
