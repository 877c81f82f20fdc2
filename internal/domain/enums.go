package domain

// OperationKind identifies the store operation a hook runs for.
type OperationKind string

const (
	OpSave             OperationKind = "save"
	OpUpdateOne        OperationKind = "updateOne"
	OpFindOneAndUpdate OperationKind = "findOneAndUpdate"
	OpUpdate           OperationKind = "update"
	OpUpdateMany       OperationKind = "updateMany"
)

// QueryUpdateOps lists every query-based partial update operation.
var QueryUpdateOps = []OperationKind{
	OpUpdateOne,
	OpFindOneAndUpdate,
	OpUpdate,
	OpUpdateMany,
}

// IsMulti reports whether the operation targets every matching document
// rather than the first match.
func (k OperationKind) IsMulti() bool {
	return k == OpUpdateMany
}

// Valid reports whether k is a known operation.
func (k OperationKind) Valid() bool {
	switch k {
	case OpSave, OpUpdateOne, OpFindOneAndUpdate, OpUpdate, OpUpdateMany:
		return true
	}
	return false
}

// FieldKind is the storage kind of a field registered on a document type.
type FieldKind string

const (
	FieldKindArray FieldKind = "array"
)
