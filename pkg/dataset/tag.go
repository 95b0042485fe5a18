package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag identifies a single data element by its DICOM group and element numbers.
type Tag struct {
	Group   uint16
	Element uint16
}

// Well-known tags used by the anonymization policy and the grouping contract.
var (
	TagCommandLengthToEnd       = Tag{0x0000, 0x0008} // structural, removed outright
	TagInstitutionName          = Tag{0x0008, 0x0080}
	TagInstitutionAddress       = Tag{0x0008, 0x0081}
	TagReferringPhysicianName   = Tag{0x0008, 0x0090}
	TagReferringPhysicianAddr   = Tag{0x0008, 0x0092}
	TagReferringPhysicianPhone  = Tag{0x0008, 0x0094}
	TagPatientName              = Tag{0x0010, 0x0010}
	TagPatientID                = Tag{0x0010, 0x0020}
	TagPatientBirthDate         = Tag{0x0010, 0x0030}
	TagPatientSex               = Tag{0x0010, 0x0040}
	TagOtherPatientIDs          = Tag{0x0010, 0x1000}
	TagOtherPatientNames        = Tag{0x0010, 0x1001}
	TagSeriesInstanceUID        = Tag{0x0020, 0x000E}
)

// String renders the tag in the DICOM JSON Model key form "GGGGEEEE".
func (t Tag) String() string {
	return fmt.Sprintf("%04X%04X", t.Group, t.Element)
}

// Compare orders tags by group, then element.
func (t Tag) Compare(other Tag) int {
	if t.Group != other.Group {
		if t.Group < other.Group {
			return -1
		}
		return 1
	}
	if t.Element != other.Element {
		if t.Element < other.Element {
			return -1
		}
		return 1
	}
	return 0
}

// ParseTag parses an 8-hex-digit tag key ("GGGGEEEE", case-insensitive).
func ParseTag(s string) (Tag, error) {
	if len(s) != 8 {
		return Tag{}, fmt.Errorf("invalid tag %q: expected 8 hex digits", s)
	}
	group, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return Tag{}, fmt.Errorf("invalid tag %q: bad group: %w", s, err)
	}
	element, err := strconv.ParseUint(s[4:], 16, 16)
	if err != nil {
		return Tag{}, fmt.Errorf("invalid tag %q: bad element: %w", s, err)
	}
	return Tag{Group: uint16(group), Element: uint16(element)}, nil
}

// MustTag parses a tag key and panics on failure. Intended for package-level
// tables of well-known tags.
func MustTag(s string) Tag {
	t, err := ParseTag(strings.ToUpper(s))
	if err != nil {
		panic(err)
	}
	return t
}
