package pdfoutline

import (
	"fmt"
	"reflect"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Kind classifies a low-level PDF object.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindName
	KindString
	KindArray
	KindDict
	KindRef
	KindStream
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindName:
		return "name"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindDict:
		return "dict"
	case KindRef:
		return "ref"
	case KindStream:
		return "stream"
	default:
		return "other"
	}
}

// KindOf reports the variant of o without resolving references.
func KindOf(o types.Object) Kind {
	switch o.(type) {
	case nil:
		return KindNull
	case types.Boolean:
		return KindBool
	case types.Integer, types.Float:
		return KindNumber
	case types.Name:
		return KindName
	case types.StringLiteral, types.HexLiteral:
		return KindString
	case types.Array:
		return KindArray
	case types.Dict:
		return KindDict
	case types.IndirectRef, *types.IndirectRef:
		return KindRef
	case types.StreamDict:
		return KindStream
	default:
		return KindOther
	}
}

// Visitor receives one callback per object variant.
type Visitor interface {
	Null()
	Bool(v bool)
	Number(v float64)
	Name(v string)
	String(v string, ok bool)
	Array(v types.Array)
	Dict(v types.Dict)
	Ref(v types.IndirectRef)
	Stream(v types.StreamDict)
	Other(v types.Object)
}

// Visit dispatches o to the matching Visitor method. References are not followed.
func Visit(o types.Object, v Visitor) {
	switch KindOf(o) {
	case KindNull:
		v.Null()
	case KindBool:
		v.Bool(bool(o.(types.Boolean)))
	case KindNumber:
		n, _ := asNumber(o)
		v.Number(n)
	case KindName:
		v.Name(string(o.(types.Name)))
	case KindString:
		s, ok := decodeText(o)
		v.String(s, ok)
	case KindArray:
		v.Array(o.(types.Array))
	case KindDict:
		v.Dict(o.(types.Dict))
	case KindRef:
		ref, _ := asRef(o)
		v.Ref(ref)
	case KindStream:
		v.Stream(o.(types.StreamDict))
	default:
		v.Other(o)
	}
}

func asDict(o types.Object) (types.Dict, bool) {
	switch v := o.(type) {
	case types.Dict:
		return v, true
	case types.StreamDict:
		return v.Dict, true
	}
	return nil, false
}

func asArray(o types.Object) (types.Array, bool) {
	a, ok := o.(types.Array)
	return a, ok
}

func asNumber(o types.Object) (float64, bool) {
	switch v := o.(type) {
	case types.Integer:
		return float64(v), true
	case types.Float:
		return float64(v), true
	}
	return 0, false
}

func asRef(o types.Object) (types.IndirectRef, bool) {
	switch v := o.(type) {
	case types.IndirectRef:
		return v, true
	case *types.IndirectRef:
		if v != nil {
			return *v, true
		}
	}
	return types.IndirectRef{}, false
}

func refString(r types.IndirectRef) string {
	return fmt.Sprintf("%d %d R", r.ObjectNumber, r.GenerationNumber)
}

// sameDict reports whether a and b are the same dictionary instance.
func sameDict(a, b types.Dict) bool {
	if a == nil || b == nil {
		return false
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

func dictID(d types.Dict) uintptr {
	return reflect.ValueOf(d).Pointer()
}
