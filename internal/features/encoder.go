package features

// Encoder is a bijective mapping between category values and dense integer
// codes, assigned in the order values are first seen. An Encoder is built per
// pipeline run; codes are not stable across runs.
type Encoder struct {
	codes  map[string]int
	values []string
}

// NewEncoder returns an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{codes: make(map[string]int)}
}

// Encode returns the code for v, assigning the next free code on first sight.
func (e *Encoder) Encode(v string) int {
	if code, ok := e.codes[v]; ok {
		return code
	}
	code := len(e.values)
	e.codes[v] = code
	e.values = append(e.values, v)
	return code
}

// Code returns the code assigned to v without assigning a new one.
func (e *Encoder) Code(v string) (int, bool) {
	code, ok := e.codes[v]
	return code, ok
}

// Decode returns the value assigned to code.
func (e *Encoder) Decode(code int) (string, bool) {
	if code < 0 || code >= len(e.values) {
		return "", false
	}
	return e.values[code], true
}

func (e *Encoder) Len() int { return len(e.values) }

// Values returns the categories in code order.
func (e *Encoder) Values() []string {
	out := make([]string, len(e.values))
	copy(out, e.values)
	return out
}
