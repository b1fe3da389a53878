package domain

// SegmentAggregate is one row of a group-by/mean table
type SegmentAggregate struct {
	Key   string  `json:"key" csv:"key"`
	Mean  float64 `json:"mean" csv:"mean"`
	Count int     `json:"count" csv:"count" validate:"gte=1"`
}

// AggregateTable is a named, ordered set of segment aggregates
type AggregateTable struct {
	Name        string             `json:"name" validate:"required,filename"`
	KeyColumn   string             `json:"key_column" validate:"required"`
	ValueColumn string             `json:"value_column" validate:"required"`
	Rows        []SegmentAggregate `json:"rows" validate:"dive"`
}
