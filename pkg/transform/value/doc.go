// Package value defines the closed value domain shared by the schema parser,
// the expression evaluator and the transformers.
//
// Every value flowing through a transformation is one of:
//
//	nil            null
//	bool           boolean
//	int64          integer
//	float64        floating point number
//	string         string
//	[]any          list (produced by list nodes)
//	Tuple          fixed-size sequence (produced by tuple nodes)
//	*Map           insertion-ordered mapping with string keys
//	capability     any value implementing Attributer or Caller
//
// Host values entering the engine (caller supplied context, plugin return
// values) are brought into this domain with Normalize. ToNative performs the
// reverse conversion for hosts that want plain maps and slices.
package value
