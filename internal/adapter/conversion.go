package adapter

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	"github.com/koustreak/sqlbridge/internal/errs"
)

// ColumnType is the normalised type of a result column.
type ColumnType int

const (
	// ColumnTypeUnknown is both "not declared" on RawResult and the inferred
	// type of a column whose values are all NULL.
	ColumnTypeUnknown ColumnType = iota
	ColumnTypeInt32
	ColumnTypeInt64
	ColumnTypeFloat
	ColumnTypeDouble
	ColumnTypeNumeric
	ColumnTypeBoolean
	ColumnTypeText
	ColumnTypeDate
	ColumnTypeTime
	ColumnTypeDateTime
	ColumnTypeJson
	ColumnTypeBytes
	ColumnTypeUuid
)

var columnTypeNames = [...]string{
	ColumnTypeUnknown:  "Unknown",
	ColumnTypeInt32:    "Int32",
	ColumnTypeInt64:    "Int64",
	ColumnTypeFloat:    "Float",
	ColumnTypeDouble:   "Double",
	ColumnTypeNumeric:  "Numeric",
	ColumnTypeBoolean:  "Boolean",
	ColumnTypeText:     "Text",
	ColumnTypeDate:     "Date",
	ColumnTypeTime:     "Time",
	ColumnTypeDateTime: "DateTime",
	ColumnTypeJson:     "Json",
	ColumnTypeBytes:    "Bytes",
	ColumnTypeUuid:     "Uuid",
}

func (t ColumnType) String() string {
	if int(t) < 0 || int(t) >= len(columnTypeNames) {
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
	return columnTypeNames[t]
}

func (t ColumnType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// InferColumnTypes returns one type per column. A declared type is trusted;
// otherwise the first non-nil value in that column, scanning all rows,
// decides. Columns that are NULL in every row stay ColumnTypeUnknown.
func InferColumnTypes(declared []ColumnType, rows [][]any) []ColumnType {
	n := len(declared)
	for _, row := range rows {
		if len(row) > n {
			n = len(row)
		}
	}

	types := make([]ColumnType, n)
	copy(types, declared)

	for col := range types {
		if types[col] != ColumnTypeUnknown {
			continue
		}
		for _, row := range rows {
			if col >= len(row) || row[col] == nil {
				continue
			}
			types[col] = inferValueType(row[col])
			break
		}
	}
	return types
}

func inferValueType(v any) ColumnType {
	switch v.(type) {
	case int8, int16, int32, uint8, uint16:
		return ColumnTypeInt32
	case int, int64, uint, uint32, uint64:
		return ColumnTypeInt64
	case float32:
		return ColumnTypeFloat
	case float64:
		return ColumnTypeDouble
	case decimal.Decimal:
		return ColumnTypeNumeric
	case bool:
		return ColumnTypeBoolean
	case string:
		return ColumnTypeText
	case time.Time:
		return ColumnTypeDateTime
	case json.RawMessage, map[string]any, []any:
		return ColumnTypeJson
	case []byte:
		return ColumnTypeBytes
	case uuid.UUID, [16]byte:
		return ColumnTypeUuid
	default:
		return ColumnTypeUnknown
	}
}

// MapRows normalises every row against types. It fails as a whole: either
// every value converts or none of the rows are returned.
func MapRows(rows [][]any, types []ColumnType) ([][]any, error) {
	out := make([][]any, len(rows))
	for i, row := range rows {
		mapped, err := MapRow(row, types)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindConversion, fmt.Sprintf("row %d", i), err)
		}
		out[i] = mapped
	}
	return out, nil
}

// MapRow converts the raw driver values of one row into the Go type
// associated with each column's type:
//
//	Int32 → int32, Int64 → int64, Float → float32, Double → float64,
//	Numeric → decimal.Decimal, Boolean → bool, Text → string,
//	Date/Time/DateTime → time.Time or string as reported,
//	Json → json.RawMessage, Bytes → []byte, Uuid → uuid.UUID.
//
// NULL stays nil. Values in ColumnTypeUnknown columns pass through.
func MapRow(row []any, types []ColumnType) ([]any, error) {
	out := make([]any, len(row))
	for i, v := range row {
		if v == nil {
			continue
		}
		t := ColumnTypeUnknown
		if i < len(types) {
			t = types[i]
		}
		mapped, err := normalize(v, t)
		if err != nil {
			return nil, fmt.Errorf("column %d (%s): %w", i, t, err)
		}
		out[i] = mapped
	}
	return out, nil
}

func normalize(v any, t ColumnType) (any, error) {
	if dv, ok := v.(driver.Valuer); ok && !isNative(v) {
		raw, err := dv.Value()
		if err != nil {
			return nil, err
		}
		if raw == nil {
			return nil, nil
		}
		v = raw
	}

	switch t {
	case ColumnTypeInt32:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return nil, fmt.Errorf("value %d overflows int32", n)
		}
		return int32(n), nil
	case ColumnTypeInt64:
		return toInt64(v)
	case ColumnTypeFloat:
		f, err := toFloat64(v)
		return float32(f), err
	case ColumnTypeDouble:
		return toFloat64(v)
	case ColumnTypeNumeric:
		return toDecimal(v)
	case ColumnTypeBoolean:
		return toBool(v)
	case ColumnTypeText:
		return toText(v), nil
	case ColumnTypeDate, ColumnTypeTime, ColumnTypeDateTime:
		if b, ok := v.([]byte); ok {
			return string(b), nil
		}
		return v, nil
	case ColumnTypeJson:
		return toJSON(v)
	case ColumnTypeBytes:
		switch b := v.(type) {
		case []byte:
			return b, nil
		case string:
			return []byte(b), nil
		}
		return nil, fmt.Errorf("cannot convert %T to bytes", v)
	case ColumnTypeUuid:
		return toUUID(v)
	default:
		return v, nil
	}
}

// isNative lists Valuer implementations that normalize handles directly.
func isNative(v any) bool {
	switch v.(type) {
	case decimal.Decimal, uuid.UUID, json.RawMessage:
		return true
	}
	return false
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", n)
		}
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", n)
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("value %v is not integral", n)
		}
		return int64(n), nil
	case bool:
		if n {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %T to integer", v)
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case decimal.Decimal:
		return n.InexactFloat64(), nil
	case []byte:
		return strconv.ParseFloat(string(n), 64)
	case string:
		return strconv.ParseFloat(n, 64)
	}
	i, err := toInt64(v)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %T to float", v)
	}
	return float64(i), nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case []byte:
		return decimal.NewFromString(string(n))
	case string:
		return decimal.NewFromString(n)
	}
	i, err := toInt64(v)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("cannot convert %T to numeric", v)
	}
	return decimal.NewFromInt(i), nil
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case []byte:
		return strconv.ParseBool(string(b))
	case string:
		return strconv.ParseBool(b)
	}
	i, err := toInt64(v)
	if err != nil {
		return false, fmt.Errorf("cannot convert %T to boolean", v)
	}
	return i != 0, nil
}

func toText(v any) any {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprint(v)
}

func toJSON(v any) (any, error) {
	var raw []byte
	switch j := v.(type) {
	case json.RawMessage:
		raw = j
	case []byte:
		raw = j
	case string:
		raw = []byte(j)
	default:
		b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(j)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(b), nil
	}
	if !jsoniter.ConfigFastest.Valid(raw) {
		return nil, fmt.Errorf("invalid JSON value")
	}
	return json.RawMessage(raw), nil
}

func toUUID(v any) (any, error) {
	switch u := v.(type) {
	case uuid.UUID:
		return u, nil
	case [16]byte:
		return uuid.UUID(u), nil
	case []byte:
		if len(u) == 16 {
			return uuid.FromBytes(u)
		}
		return uuid.ParseBytes(u)
	case string:
		return uuid.Parse(u)
	}
	return nil, fmt.Errorf("cannot convert %T to uuid", v)
}
