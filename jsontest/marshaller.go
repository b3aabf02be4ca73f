package jsontest

import (
	"encoding/json"

	gojson "github.com/goccy/go-json"
	jsoniter "github.com/json-iterator/go"
)

// Marshaller converts values to and from JSON.
type Marshaller interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Collaborator names used by AutoConfigure.
const (
	StdJSONName  = "json"
	GoJSONName   = "gojson"
	JsoniterName = "jsoniter"
)

// StdJSON is the encoding/json marshaller.
type StdJSON struct{}

func (StdJSON) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (StdJSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// GoJSON is the github.com/goccy/go-json marshaller.
type GoJSON struct{}

func (GoJSON) Marshal(v any) ([]byte, error)      { return gojson.Marshal(v) }
func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }

// Jsoniter is a github.com/json-iterator/go marshaller. The zero value uses the
// encoding/json compatible configuration.
type Jsoniter struct {
	API jsoniter.API
}

func (j Jsoniter) api() jsoniter.API {
	if j.API == nil {
		return jsoniter.ConfigCompatibleWithStandardLibrary
	}
	return j.API
}

func (j Jsoniter) Marshal(v any) ([]byte, error)      { return j.api().Marshal(v) }
func (j Jsoniter) Unmarshal(data []byte, v any) error { return j.api().Unmarshal(data, v) }
