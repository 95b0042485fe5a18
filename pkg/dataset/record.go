package dataset

import (
	"fmt"
	"sort"
	"strings"
)

// Element is a single data element: a value representation and its values.
// Values are scalar (string, number, bool) or nil; sequence (SQ) payloads are
// out of scope for the de-identification core.
type Element struct {
	VR    string
	Value []any
}

// NewStringElement builds a single-valued string element with the given VR.
func NewStringElement(vr, value string) Element {
	return Element{VR: vr, Value: []any{value}}
}

// FirstString returns the element's first value rendered as a string.
// Missing or nil values render as the empty string.
func (e Element) FirstString() string {
	if len(e.Value) == 0 || e.Value[0] == nil {
		return ""
	}
	switch v := e.Value[0].(type) {
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Record is one imaging record: a mutable mapping from tag to element.
// A Record is not safe for concurrent mutation; the pipeline gives each
// worker its own copy.
type Record struct {
	elements map[Tag]Element
}

// New returns an empty record.
func New() *Record {
	return &Record{elements: make(map[Tag]Element)}
}

// Set stores an element under the given tag, replacing any existing value.
func (r *Record) Set(tag Tag, elem Element) {
	r.elements[tag] = elem
}

// Get returns the element stored under the tag, if present.
func (r *Record) Get(tag Tag) (Element, bool) {
	elem, ok := r.elements[tag]
	return elem, ok
}

// Has reports whether the record contains the tag.
func (r *Record) Has(tag Tag) bool {
	_, ok := r.elements[tag]
	return ok
}

// Delete removes the tag from the record, if present.
func (r *Record) Delete(tag Tag) {
	delete(r.elements, tag)
}

// Len returns the number of elements in the record.
func (r *Record) Len() int {
	return len(r.elements)
}

// Tags returns all tags in canonical (group, element) order.
func (r *Record) Tags() []Tag {
	tags := make([]Tag, 0, len(r.elements))
	for tag := range r.elements {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Compare(tags[j]) < 0 })
	return tags
}

// StringValue returns the trimmed first value of the tag as a string, or ""
// if the tag is absent.
func (r *Record) StringValue(tag Tag) string {
	elem, ok := r.elements[tag]
	if !ok {
		return ""
	}
	return strings.TrimSpace(elem.FirstString())
}

// SeriesKey returns the record's grouping key (series instance UID).
// Grouping is consumed by the conversion collaborator, not by this core.
func (r *Record) SeriesKey() string {
	return r.StringValue(TagSeriesInstanceUID)
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	out := &Record{elements: make(map[Tag]Element, len(r.elements))}
	for tag, elem := range r.elements {
		values := make([]any, len(elem.Value))
		copy(values, elem.Value)
		out.elements[tag] = Element{VR: elem.VR, Value: values}
	}
	return out
}

// Equal reports whether two records contain the same tags, VRs, and values.
func (r *Record) Equal(other *Record) bool {
	if r.Len() != other.Len() {
		return false
	}
	for tag, elem := range r.elements {
		otherElem, ok := other.elements[tag]
		if !ok || elem.VR != otherElem.VR || len(elem.Value) != len(otherElem.Value) {
			return false
		}
		for i := range elem.Value {
			if fmt.Sprint(elem.Value[i]) != fmt.Sprint(otherElem.Value[i]) {
				return false
			}
		}
	}
	return true
}
