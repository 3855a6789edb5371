package models

// Field names a key of the quote document that extraction may write.
type Field string

const (
	FieldPrice             Field = "price"
	FieldYear              Field = "year"
	FieldVIN               Field = "vin"
	FieldMileage           Field = "mileage"
	FieldEngineShort       Field = "engineShort"
	FieldEngineFull        Field = "engineFull"
	FieldTransmissionShort Field = "transmissionShort"
	FieldTransmissionFull  Field = "transmissionFull"
	FieldSuspensionShort   Field = "suspensionShort"
	FieldSuspensionFull    Field = "suspensionFull"
	FieldTowingCapacity    Field = "towingCapacity"
	FieldModel             Field = "model"
	FieldBrand             Field = "brand"
)

// Vocabulary is the closed set of fields extraction can produce, in extractor order.
var Vocabulary = []Field{
	FieldPrice,
	FieldYear,
	FieldVIN,
	FieldMileage,
	FieldEngineShort,
	FieldEngineFull,
	FieldTransmissionShort,
	FieldTransmissionFull,
	FieldSuspensionShort,
	FieldSuspensionFull,
	FieldTowingCapacity,
	FieldModel,
	FieldBrand,
}

var vocabularySet = func() map[Field]struct{} {
	set := make(map[Field]struct{}, len(Vocabulary))
	for _, f := range Vocabulary {
		set[f] = struct{}{}
	}
	return set
}()

// Valid reports whether f belongs to the extraction vocabulary.
func (f Field) Valid() bool {
	_, ok := vocabularySet[f]
	return ok
}

// FieldCandidate is one value proposed by an extractor, with the text it came from.
type FieldCandidate struct {
	Field  Field
	Value  string
	Source string
}

// FieldUpdateMap holds the extracted values keyed by field. Values are strings,
// except price which is a float64.
type FieldUpdateMap map[Field]any

// Count returns the number of extracted fields.
func (m FieldUpdateMap) Count() int {
	return len(m)
}

// String returns the value of f when it is a string.
func (m FieldUpdateMap) String(f Field) (string, bool) {
	v, ok := m[f].(string)
	return v, ok
}

// Price returns the extracted price, if any.
func (m FieldUpdateMap) Price() (float64, bool) {
	v, ok := m[FieldPrice].(float64)
	return v, ok
}
