// Package codec converts Things to and from the self-describing JSON wire
// form.
//
// Every Thing encodes to a flat object of property names plus the implicit
// "key". Each value is one of:
//
//	literal                         int, float, boolean, str and key values
//	{"key": "/a/b"}                 a reference
//	{"type": "/type/text", ...}     any other literal, tagged with its type
//	[...]                           a homogeneous list of the above
//
// Decoding infers datatypes from that shape without a schema lookup. Two
// quirks are load-bearing for data already persisted in this form and are
// kept on purpose: an empty list decodes to no field at all, and a list
// takes the datatype of its first element. The key datatype is written as
// a bare string and therefore reads back as str.
package codec
