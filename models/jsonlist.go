package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// JSON column shapes reported by ClassifyJSONArray.
const (
	JSONKindArray         = "array"
	JSONKindNull          = "null"
	JSONKindObject        = "object"
	JSONKindDoubleEncoded = "double_encoded"
	JSONKindScalar        = "scalar"
	JSONKindInvalid       = "invalid"
)

// ClassifyJSONArray reports what a column that should hold a JSON array
// actually contains.
func ClassifyJSONArray(raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return JSONKindNull
	}
	if !json.Valid(trimmed) {
		return JSONKindInvalid
	}
	switch trimmed[0] {
	case '[':
		return JSONKindArray
	case '{':
		return JSONKindObject
	case '"':
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err == nil {
			it := bytes.TrimSpace([]byte(inner))
			if len(it) > 0 && it[0] == '[' && json.Valid(it) {
				return JSONKindDoubleEncoded
			}
		}
	}
	return JSONKindScalar
}

// UnwrapJSONArray returns the array bytes held by raw, peeling one level of
// string encoding if present. Null or empty input yields [].
func UnwrapJSONArray(raw []byte) ([]byte, error) {
	switch ClassifyJSONArray(raw) {
	case JSONKindArray:
		return bytes.TrimSpace(raw), nil
	case JSONKindNull:
		return []byte("[]"), nil
	case JSONKindDoubleEncoded:
		var inner string
		if err := json.Unmarshal(bytes.TrimSpace(raw), &inner); err != nil {
			return nil, err
		}
		return bytes.TrimSpace([]byte(inner)), nil
	default:
		return nil, fmt.Errorf("value is not a JSON array")
	}
}

// JSONList is a JSON array column. It is stored like datatypes.JSON but
// always serializes as an array: legacy double-encoded rows are unwrapped
// and anything unreadable comes out as [].
type JSONList datatypes.JSON

// JSONArray marshals v for a JSON column. A nil slice is stored as [] so the
// column never holds null.
func JSONArray(v interface{}) JSONList {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return JSONList("[]")
	}
	return JSONList(b)
}

func (j JSONList) MarshalJSON() ([]byte, error) {
	arr, err := UnwrapJSONArray(j)
	if err != nil {
		return []byte("[]"), nil
	}
	return arr, nil
}

func (j *JSONList) UnmarshalJSON(b []byte) error {
	return (*datatypes.JSON)(j).UnmarshalJSON(b)
}

func (j JSONList) Value() (driver.Value, error) {
	return datatypes.JSON(j).Value()
}

func (j *JSONList) Scan(value interface{}) error {
	return (*datatypes.JSON)(j).Scan(value)
}

func (JSONList) GormDataType() string {
	return "json"
}

func (JSONList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	return datatypes.JSON{}.GormDBDataType(db, field)
}
