package protocol

// Message is one control frame: a flat JSON object. Request and response
// shapes are loose by design; typed accessors absorb the cross-language
// number encoding (JSON numbers decode as float64).
type Message map[string]any

// Str returns the string value for key, or "" when absent or not a string.
func (m Message) Str(key string) string {
	s, _ := m[key].(string)
	return s
}

// Int returns the integer value for key, accepting float64 (the default
// JSON decoding) and int. Returns 0 when absent.
func (m Message) Int(key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	}
	return 0
}

// Bool returns the boolean value for key, or false when absent.
func (m Message) Bool(key string) bool {
	b, _ := m[key].(bool)
	return b
}

// Has reports whether key is present at all.
func (m Message) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Sub returns a nested object value for key, or nil.
func (m Message) Sub(key string) Message {
	if v, ok := m[key].(map[string]any); ok {
		return Message(v)
	}
	return nil
}

// OK returns a success response.
func OK() Message {
	return Message{"success": true}
}

// OKMsg returns a success response with a human-readable message.
func OKMsg(text string) Message {
	return Message{"success": true, "message": text}
}

// Fail returns a failure response carrying the machine tag and human text.
func Fail(tag, text string) Message {
	return Message{"success": false, "error": tag, "message": text}
}

// With adds a field and returns the message for chaining.
func (m Message) With(key string, value any) Message {
	m[key] = value
	return m
}
