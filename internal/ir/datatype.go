package ir

// Datatype is the internal tag governing how a property value is encoded
// and interpreted.
type Datatype string

// The closed set of datatypes.
const (
	DatatypeKey      Datatype = "key"
	DatatypeString   Datatype = "str"
	DatatypeText     Datatype = "text"
	DatatypeInt      Datatype = "int"
	DatatypeFloat    Datatype = "float"
	DatatypeBoolean  Datatype = "boolean"
	DatatypeDatetime Datatype = "datetime"
	DatatypeRef      Datatype = "ref"
)

// Abstract type keys of the primitive types.
const (
	TypeKey      = "/type/key"
	TypeString   = "/type/string"
	TypeText     = "/type/text"
	TypeInt      = "/type/int"
	TypeFloat    = "/type/float"
	TypeBoolean  = "/type/boolean"
	TypeDatetime = "/type/datetime"
)

// PrimitiveTypes lists the abstract types whose values are literals.
var PrimitiveTypes = []string{
	TypeKey,
	TypeString,
	TypeText,
	TypeInt,
	TypeFloat,
	TypeBoolean,
	TypeDatetime,
}

var typeDatatypes = map[string]Datatype{
	TypeKey:      DatatypeKey,
	TypeString:   DatatypeString,
	TypeText:     DatatypeText,
	TypeInt:      DatatypeInt,
	TypeFloat:    DatatypeFloat,
	TypeBoolean:  DatatypeBoolean,
	TypeDatetime: DatatypeDatetime,
}

// datatypeTypes is the inverse of typeDatatypes minus int: ints are always
// written as bare literals, so no tagged form is ever produced for them.
var datatypeTypes = func() map[Datatype]string {
	m := make(map[Datatype]string, len(typeDatatypes))
	for t, dt := range typeDatatypes {
		if dt == DatatypeInt {
			continue
		}
		m[dt] = t
	}
	return m
}()

// TypeToDatatype returns the datatype for an abstract type key.
// Any type that is not primitive is a reference:
//
//	TypeToDatatype("/type/int")  == DatatypeInt
//	TypeToDatatype("/type/page") == DatatypeRef
func TypeToDatatype(typeKey string) Datatype {
	if dt, ok := typeDatatypes[typeKey]; ok {
		return dt
	}
	return DatatypeRef
}

// DatatypeToType returns the abstract type key for a datatype. It is
// defined for key, str, text, float, boolean and datetime; int and ref
// report false.
func DatatypeToType(dt Datatype) (string, bool) {
	t, ok := datatypeTypes[dt]
	return t, ok
}

// IsValid reports whether dt is one of the known datatypes.
func (dt Datatype) IsValid() bool {
	switch dt {
	case DatatypeKey, DatatypeString, DatatypeText, DatatypeInt,
		DatatypeFloat, DatatypeBoolean, DatatypeDatetime, DatatypeRef:
		return true
	default:
		return false
	}
}

// IsNativeLiteral reports whether values of dt are written as bare JSON
// literals on the wire. Other literal datatypes are wrapped in a
// {"type", "value"} object.
func (dt Datatype) IsNativeLiteral() bool {
	switch dt {
	case DatatypeInt, DatatypeBoolean, DatatypeFloat, DatatypeString, DatatypeKey:
		return true
	default:
		return false
	}
}
