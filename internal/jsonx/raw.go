package jsonx

import stdjson "encoding/json"

// RawMessage is a raw encoded JSON value. Both codecs pass it through verbatim.
type RawMessage = stdjson.RawMessage
