package state

import (
	"encoding/json"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/rschaeff/dpamengine/pkg/dpamerrors"
	"github.com/rschaeff/dpamengine/pkg/protein"
)

// encodeProteinRecord serializes rec to JSON, then re-injects rec.Extra's
// top-level keys via sjson so fields this package doesn't model survive a
// rewrite unchanged.
func encodeProteinRecord(rec *ProteinRecord) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindStateIOError, err, "marshal protein record")
	}
	for k, v := range rec.Extra {
		raw, err = sjson.SetBytes(raw, k, v)
		if err != nil {
			return nil, dpamerrors.Wrapf(dpamerrors.KindStateIOError, err, "preserve extra field %q", k)
		}
	}
	return raw, nil
}

// decodeProteinRecord parses raw into the modeled fields and captures every
// unmodeled top-level key into Extra, so round-tripping through this package
// never loses information an external tool may have written.
func decodeProteinRecord(raw []byte) (*ProteinRecord, error) {
	var rec ProteinRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindStateIOError, err, "unmarshal protein record")
	}
	if rec.Steps == nil {
		rec.Steps = make(map[protein.StepID]*StepRecord)
	}
	rec.Extra = extraTopLevelFields(raw, knownProteinFields)
	return &rec, nil
}

func encodeBatchRecord(rec *BatchRecord) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindStateIOError, err, "marshal batch record")
	}
	for k, v := range rec.Extra {
		raw, err = sjson.SetBytes(raw, k, v)
		if err != nil {
			return nil, dpamerrors.Wrapf(dpamerrors.KindStateIOError, err, "preserve extra field %q", k)
		}
	}
	return raw, nil
}

func decodeBatchRecord(raw []byte) (*BatchRecord, error) {
	var rec BatchRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, dpamerrors.Wrap(dpamerrors.KindStateIOError, err, "unmarshal batch record")
	}
	rec.Extra = extraTopLevelFields(raw, knownBatchFields)
	return &rec, nil
}

var knownProteinFields = map[string]bool{
	"protein_id":            true,
	"steps":                 true,
	"critical_failure_step": true,
}

var knownBatchFields = map[string]bool{
	"batch_id":          true,
	"protein_ids":       true,
	"last_started_step": true,
	"completed":         true,
	"created_at":        true,
	"updated_at":        true,
}

// extraTopLevelFields uses gjson to walk raw's top-level object keys and
// returns every key not in known, each mapped to its parsed value.
func extraTopLevelFields(raw []byte, known map[string]bool) map[string]interface{} {
	result := gjson.ParseBytes(raw)
	if !result.IsObject() {
		return nil
	}
	var extra map[string]interface{}
	result.ForEach(func(key, value gjson.Result) bool {
		k := key.String()
		if known[k] {
			return true
		}
		if extra == nil {
			extra = make(map[string]interface{})
		}
		extra[k] = value.Value()
		return true
	})
	return extra
}
