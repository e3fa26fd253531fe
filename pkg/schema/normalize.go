package schema

import "strings"

// Normalized type vocabulary. Raw catalog types outside the lookup table
// pass through uppercased so the mapping is total.
const (
	TypeInteger   = "INTEGER"
	TypeDecimal   = "DECIMAL"
	TypeString    = "STRING"
	TypeText      = "TEXT"
	TypeTimestamp = "TIMESTAMP"
	TypeDate      = "DATE"
	TypeTime      = "TIME"
	TypeBoolean   = "BOOLEAN"
	TypeJSON      = "JSON"
	TypeArray     = "ARRAY"
)

// typeLookup maps lower-cased raw catalog type names to the normalized
// vocabulary. Keys cover the postgres, mysql/mariadb, and sqlite type
// names we expect from the catalog queries.
var typeLookup = map[string]string{
	// integers
	"smallint":  TypeInteger,
	"integer":   TypeInteger,
	"int":       TypeInteger,
	"int2":      TypeInteger,
	"int4":      TypeInteger,
	"int8":      TypeInteger,
	"bigint":    TypeInteger,
	"mediumint": TypeInteger,
	"tinyint":   TypeInteger,
	"serial":    TypeInteger,
	"bigserial": TypeInteger,
	"year":      TypeInteger,

	// decimals / floats
	"numeric":          TypeDecimal,
	"decimal":          TypeDecimal,
	"real":             TypeDecimal,
	"float":            TypeDecimal,
	"float4":           TypeDecimal,
	"float8":           TypeDecimal,
	"double":           TypeDecimal,
	"double precision": TypeDecimal,
	"money":            TypeDecimal,

	// short strings
	"character varying": TypeString,
	"varchar":           TypeString,
	"character":         TypeString,
	"char":              TypeString,
	"bpchar":            TypeString,
	"nvarchar":          TypeString,
	"nchar":             TypeString,
	"uuid":              TypeString,
	"enum":              TypeString,
	"set":               TypeString,

	// long text
	"text":       TypeText,
	"tinytext":   TypeText,
	"mediumtext": TypeText,
	"longtext":   TypeText,
	"clob":       TypeText,

	// temporal
	"timestamp":                   TypeTimestamp,
	"timestamptz":                 TypeTimestamp,
	"timestamp without time zone": TypeTimestamp,
	"timestamp with time zone":    TypeTimestamp,
	"datetime":                    TypeTimestamp,
	"date":                        TypeDate,
	"time":                        TypeTime,
	"timetz":                      TypeTime,
	"time without time zone":      TypeTime,
	"time with time zone":         TypeTime,

	// booleans
	"boolean": TypeBoolean,
	"bool":    TypeBoolean,
	"bit":     TypeBoolean,

	// structured
	"json":  TypeJSON,
	"jsonb": TypeJSON,
	"array": TypeArray,
}

// NormalizeType maps a raw catalog type string to the normalized
// vocabulary. The mapping is total: unknown types pass through uppercased
// and the empty string normalizes to STRING. It never fails.
func NormalizeType(rawType string) string {
	raw := strings.ToLower(strings.TrimSpace(rawType))
	if raw == "" {
		return TypeString
	}

	// Strip length/precision suffixes such as varchar(255) or numeric(10,2).
	if i := strings.IndexByte(raw, '('); i > 0 {
		raw = strings.TrimSpace(raw[:i])
	}

	if normalized, ok := typeLookup[raw]; ok {
		return normalized
	}

	// Postgres reports array columns as "ARRAY" or as "_elem" internal names.
	if strings.HasPrefix(raw, "_") || strings.HasSuffix(raw, "[]") {
		return TypeArray
	}

	return strings.ToUpper(raw)
}

// IsNumericType reports whether a normalized type holds numbers.
func IsNumericType(normalizedType string) bool {
	return normalizedType == TypeInteger || normalizedType == TypeDecimal
}

// IsTemporalType reports whether a normalized type holds dates or times.
func IsTemporalType(normalizedType string) bool {
	switch normalizedType {
	case TypeTimestamp, TypeDate, TypeTime:
		return true
	}
	return false
}
