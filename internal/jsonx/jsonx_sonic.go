//go:build !nojsonsimd

// Package jsonx is the JSON codec used on hot paths. Build with -tags nojsonsimd
// to fall back to encoding/json.
package jsonx

import (
	"reflect"

	"github.com/bytedance/sonic"
)

var fastJSON = sonic.ConfigDefault

func Marshal(v any) ([]byte, error) {
	return fastJSON.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return fastJSON.Unmarshal(data, v)
}

// Pretouch compiles codecs for the given types ahead of the first request.
// Failures are ignored; the codec falls back to lazy compilation.
func Pretouch(values ...any) {
	for _, v := range values {
		_ = sonic.Pretouch(reflect.TypeOf(v))
	}
}
