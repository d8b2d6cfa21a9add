package utils

import (
	"encoding/json"

	"tutorlink_go/models"
)

// DecodeJSONArray decodes an array column into out, tolerating legacy
// double-encoded values.
func DecodeJSONArray(raw []byte, out interface{}) error {
	arr, err := models.UnwrapJSONArray(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(arr, out)
}

// DecodeStringArray is DecodeJSONArray for []string columns. Undecodable
// input yields an empty slice and the error.
func DecodeStringArray(raw []byte) ([]string, error) {
	out := []string{}
	if err := DecodeJSONArray(raw, &out); err != nil {
		return []string{}, err
	}
	return out, nil
}

// CanonicalJSONArray rewrites raw to a canonical array. Anything that cannot
// be read as an array becomes []. changed reports whether the bytes differ.
func CanonicalJSONArray(raw []byte) (canonical []byte, changed bool) {
	arr, err := models.UnwrapJSONArray(raw)
	if err != nil {
		return []byte("[]"), true
	}
	var v []interface{}
	if err := json.Unmarshal(arr, &v); err != nil {
		return []byte("[]"), true
	}
	if v == nil {
		v = []interface{}{}
	}
	out, err := json.Marshal(v)
	if err != nil {
		return []byte("[]"), true
	}
	return out, models.ClassifyJSONArray(raw) != models.JSONKindArray
}
