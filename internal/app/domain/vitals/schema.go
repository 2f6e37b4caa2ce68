package vitals

// FieldType distinguishes integer fields (rendered as JSON numbers) from
// fixed-precision decimal fields (rendered as strings, matching the wire
// format of NUMERIC columns).
type FieldType int

const (
	FieldInt FieldType = iota
	FieldDecimal
)

// Field describes one numeric column of a record family.
type Field struct {
	Name      string
	Type      FieldType
	Precision int
	Scale     int
	Required  bool
}

// Schema is the table descriptor for one record family. All SQL, validation,
// and JSON rendering for the family is driven off this descriptor.
type Schema struct {
	Kind   Kind
	Table  string
	Fields []Field
}

var schemas = map[Kind]Schema{
	KindBloodPressure: {
		Kind:  KindBloodPressure,
		Table: "blood_pressure",
		Fields: []Field{
			{Name: "systolic", Type: FieldInt, Required: true},
			{Name: "diastolic", Type: FieldInt, Required: true},
		},
	},
	KindWeight: {
		Kind:  KindWeight,
		Table: "weight_entries",
		Fields: []Field{
			{Name: "weight", Type: FieldDecimal, Precision: 6, Scale: 2, Required: true},
		},
	},
	KindTemperature: {
		Kind:  KindTemperature,
		Table: "temperature_entries",
		Fields: []Field{
			{Name: "temperature", Type: FieldDecimal, Precision: 4, Scale: 1, Required: true},
		},
	},
}

// SchemaFor returns the descriptor for a kind.
func SchemaFor(kind Kind) (Schema, bool) {
	s, ok := schemas[kind]
	return s, ok
}

// Kinds lists the record families in a stable order.
func Kinds() []Kind {
	return []Kind{KindBloodPressure, KindWeight, KindTemperature}
}

// FieldNames returns the schema's numeric column names in declaration order.
func (s Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		names = append(names, f.Name)
	}
	return names
}
