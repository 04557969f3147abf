package bridge

import (
	"fmt"
)

// ArgKind identifies the variant held by an [Arg].
type ArgKind uint8

const (
	// ArgInt is a status code or byte count.
	ArgInt ArgKind = iota + 1
	// ArgBytes is a payload owned by the receiver.
	ArgBytes
	// ArgError is an engine error.
	ArgError
)

func (k ArgKind) String() string {
	switch k {
	case ArgInt:
		return "int"
	case ArgBytes:
		return "bytes"
	case ArgError:
		return "error"
	default:
		return fmt.Sprintf("ArgKind(%d)", uint8(k))
	}
}

// Arg is a single callback argument, converted to a host value by the
// [Host] implementation.
type Arg struct {
	Err   error
	Bytes []byte
	Int   int
	Kind  ArgKind
}

func IntArg(v int) Arg {
	return Arg{Kind: ArgInt, Int: v}
}

// BytesArg wraps b, which must not be retained by the caller.
func BytesArg(b []byte) Arg {
	return Arg{Kind: ArgBytes, Bytes: b}
}

func ErrorArg(err error) Arg {
	return Arg{Kind: ArgError, Err: err}
}
