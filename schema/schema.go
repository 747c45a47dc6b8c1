package schema

// ============================================================================
// SCHEMA — Describes the shape of a dataset for the loader + engine
// ============================================================================
// Discovered from the parsed CSV. The dataset package uses it to turn rows
// into engine records; the analysis steps use it to decide which columns
// are numeric, temporal, or binary before computing anything.
// ============================================================================

// Dtype is the inferred storage type of a column.
type Dtype string

const (
	DtypeInt64   Dtype = "int64"
	DtypeFloat64 Dtype = "float64"
	DtypeBool    Dtype = "bool"
	DtypeObject  Dtype = "object"
)

// IsNumeric reports whether values of this dtype can be aggregated.
func (d Dtype) IsNumeric() bool {
	return d == DtypeInt64 || d == DtypeFloat64
}

// Role is how the engine reads a column.
type Role string

const (
	RoleDimension Role = "dimension" // string field used for grouping/filtering
	RoleMeasure   Role = "measure"   // numeric field used for aggregation
)

// Config describes the complete shape of a dataset.
type Config struct {
	Name    string       `json:"name"`
	Columns []ColumnMeta `json:"columns"` // header order

	DiscoveredFrom string `json:"discoveredFrom,omitempty"`
	DiscoveredAt   string `json:"discoveredAt,omitempty"`
}

// ColumnMeta describes one column.
type ColumnMeta struct {
	Key             string   `json:"key"`
	Dtype           Dtype    `json:"dtype"`
	Role            Role     `json:"role"`
	NullCount       int      `json:"nullCount"`
	UniqueCount     int      `json:"uniqueCount"`
	SampleValues    []string `json:"sampleValues"`
	IsTemporal      bool     `json:"isTemporal,omitempty"`
	TemporalFormat  string   `json:"temporalFormat,omitempty"`
	IsBinary        bool     `json:"isBinary,omitempty"`        // exactly two distinct values
	CardinalityHint string   `json:"cardinalityHint,omitempty"` // "low", "medium", "high"
}

// Column returns the column with the given key.
func (c Config) Column(key string) (ColumnMeta, bool) {
	for _, col := range c.Columns {
		if col.Key == key {
			return col, true
		}
	}
	return ColumnMeta{}, false
}

// KeepTypes copies dtype, role and temporal format from prev for every
// column present in both. Counts and samples stay as discovered.
func (c *Config) KeepTypes(prev *Config) {
	if prev == nil {
		return
	}
	for i := range c.Columns {
		old, ok := prev.Column(c.Columns[i].Key)
		if !ok {
			continue
		}
		c.Columns[i].Dtype = old.Dtype
		c.Columns[i].Role = old.Role
		c.Columns[i].IsTemporal = old.IsTemporal
		c.Columns[i].TemporalFormat = old.TemporalFormat
	}
}

// Has reports whether a column exists.
func (c Config) Has(key string) bool {
	_, ok := c.Column(key)
	return ok
}

// IsNumeric reports whether a column exists and holds numbers.
func (c Config) IsNumeric(key string) bool {
	col, ok := c.Column(key)
	return ok && col.Dtype.IsNumeric()
}

// DimensionKeys returns all dimension keys in header order.
func (c Config) DimensionKeys() []string {
	return c.keysWithRole(RoleDimension)
}

// MeasureKeys returns all measure keys in header order.
func (c Config) MeasureKeys() []string {
	return c.keysWithRole(RoleMeasure)
}

func (c Config) keysWithRole(role Role) []string {
	keys := make([]string, 0, len(c.Columns))
	for _, col := range c.Columns {
		if col.Role == role {
			keys = append(keys, col.Key)
		}
	}
	return keys
}

// TemporalKeys returns columns that look like dates or periods.
func (c Config) TemporalKeys() []string {
	var keys []string
	for _, col := range c.Columns {
		if col.IsTemporal {
			keys = append(keys, col.Key)
		}
	}
	return keys
}

// DtypeCount is the number of columns with a given dtype.
type DtypeCount struct {
	Dtype Dtype
	Count int
}

// DtypeCounts returns column counts per dtype, in alphabetical dtype order.
func (c Config) DtypeCounts() []DtypeCount {
	counts := make(map[Dtype]int)
	for _, col := range c.Columns {
		counts[col.Dtype]++
	}
	var out []DtypeCount
	for _, d := range []Dtype{DtypeBool, DtypeFloat64, DtypeInt64, DtypeObject} {
		if n := counts[d]; n > 0 {
			out = append(out, DtypeCount{Dtype: d, Count: n})
		}
	}
	return out
}
