package catalog

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// Decoder turns a structured-data blob into generic JSON values.
type Decoder interface {
	Decode(data []byte) (any, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(data []byte) (any, error)

// Decode implements Decoder.
func (f DecoderFunc) Decode(data []byte) (any, error) { return f(data) }

// StrictDecoder decodes standard JSON.
var StrictDecoder Decoder = DecoderFunc(func(data []byte) (any, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
})

// RelaxedDecoder accepts JSON5: single quotes, unquoted keys, trailing commas, comments.
var RelaxedDecoder Decoder = DecoderFunc(func(data []byte) (any, error) {
	var v any
	if err := json5.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
})

// TwoStageDecoder tries Strict first and falls back to Relaxed.
// A nil Relaxed disables the fallback.
type TwoStageDecoder struct {
	Strict  Decoder
	Relaxed Decoder
}

// DefaultDecoder is strict JSON with a JSON5 fallback.
func DefaultDecoder() TwoStageDecoder {
	return TwoStageDecoder{Strict: StrictDecoder, Relaxed: RelaxedDecoder}
}

// Decode implements Decoder.
func (d TwoStageDecoder) Decode(data []byte) (any, error) {
	strict := d.Strict
	if strict == nil {
		strict = StrictDecoder
	}
	v, err := strict.Decode(data)
	if err == nil {
		return v, nil
	}
	if d.Relaxed == nil {
		return nil, err
	}
	v, rerr := d.Relaxed.Decode(data)
	if rerr != nil {
		return nil, fmt.Errorf("relaxed decode: %w", errors.Join(err, rerr))
	}
	return v, nil
}
