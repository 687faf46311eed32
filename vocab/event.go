package vocab

import "fmt"

// TypeBPE is the synthetic category assigned to merged tokens. Every other
// category name comes from the upstream event schema.
const TypeBPE = "BPE"

// Event is a typed, timed musical occurrence prior to tokenization.
// Events are immutable value objects; two events are the same token-wise
// iff they share (Type, Value).
type Event struct {
	Type  string
	Time  int
	Value string
	Desc  string
}

// Descriptor returns the canonical string key for this event, of the form
// "<Type>_<Value>". Merged tokens use Type "BPE" and pack their succession
// and decomposition into Value (see descriptor.go).
func (e Event) Descriptor() string {
	return e.Type + "_" + e.Value
}

func (e Event) String() string {
	return fmt.Sprintf("Event(%s_%s, t=%d)", e.Type, e.Value, e.Time)
}
