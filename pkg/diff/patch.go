package diff

import (
	"bytes"
	"encoding/json"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/wI2L/jsondiff"
)

// JSONPatch returns the RFC 6902 operations turning previous into current,
// or nil when there is nothing to change.
func JSONPatch(previous, current map[string]any) ([]byte, error) {
	before, err := marshalSnapshot(previous)
	if err != nil {
		return nil, err
	}
	after, err := marshalSnapshot(current)
	if err != nil {
		return nil, err
	}
	patch, err := jsondiff.CompareJSON(before, after)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, nil
	}
	return json.Marshal(patch)
}

// Apply replays a stored patch on doc and returns the resulting snapshot.
// Numbers in the result are json.Number so they round-trip without precision loss.
func Apply(doc map[string]any, patch []byte) (map[string]any, error) {
	before, err := marshalSnapshot(doc)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return decodeSnapshot(before)
	}
	p, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return nil, err
	}
	after, err := p.Apply(before)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(after)
}

func marshalSnapshot(m map[string]any) ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func decodeSnapshot(b []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	out := map[string]any{}
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
