package domain

import "encoding/json"

// Source keeps the upstream body a record was decoded from, so that fields
// the structs do not model can still be served to API clients.
type Source struct {
	raw json.RawMessage
}

func (s *Source) SetSource(body []byte) {
	s.raw = body
}

// SourceJSON is the validated upstream body, or nil when the record was
// built locally.
func (s *Source) SourceJSON() json.RawMessage {
	return s.raw
}
