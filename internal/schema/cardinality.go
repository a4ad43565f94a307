package schema

// CardinalityClass describes the distribution shape of a column's values.
type CardinalityClass string

const (
	CardinalityUnknown         CardinalityClass = "unknown"
	CardinalityUnique          CardinalityClass = "unique"
	CardinalityNearUnique      CardinalityClass = "near_unique"
	CardinalityHighCardinality CardinalityClass = "high_cardinality"
	CardinalityLowCardinality  CardinalityClass = "low_cardinality"
	CardinalityEnumLike        CardinalityClass = "enum_like"
)

// ClassifyCardinality determines the cardinality class from the distinct
// count and the number of non-null rows.
func ClassifyCardinality(distinct, rows int64) CardinalityClass {
	if rows <= 0 {
		return CardinalityUnknown
	}
	if distinct == rows {
		return CardinalityUnique
	}
	if float64(distinct)/float64(rows) >= 0.9 {
		return CardinalityNearUnique
	}

	switch {
	case distinct <= 20:
		return CardinalityEnumLike
	case distinct <= 200:
		return CardinalityLowCardinality
	default:
		return CardinalityHighCardinality
	}
}

// Cardinality classifies the column from its profile, or returns
// CardinalityUnknown when the counts were not collected.
func (c *Column) Cardinality() CardinalityClass {
	p := c.Profile
	if p == nil || p.DistinctCount == nil || p.NonNullCount == nil {
		return CardinalityUnknown
	}
	return ClassifyCardinality(*p.DistinctCount, *p.NonNullCount)
}
