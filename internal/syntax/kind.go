package syntax

// Kind identifies the syntactic form a Node represents. The set is closed:
// parser adapters map every grammar node onto one of these values, falling
// back to KindOther for forms no rule inspects.
type Kind int

const (
	KindOther Kind = iota
	KindSourceFile
	KindError
	KindIdentifier

	// Expressions.
	KindBinaryExpression
	KindSatisfiesExpression

	// Declarations.
	KindClassDeclaration
	KindClassBody
	KindClassStaticBlock
	KindPropertyDeclaration
	KindMethodDeclaration
	KindImportDeclaration
	KindImportSpecifier
	KindImportAttributes

	// Types.
	KindTypeParameter
	KindInferType
	KindConstructorType
	KindTemplateLiteralType
	KindMappedType
	KindTupleType
	KindNamedTupleMember

	kindCount
)

var kindNames = [kindCount]string{
	KindOther:               "Other",
	KindSourceFile:          "SourceFile",
	KindError:               "Error",
	KindIdentifier:          "Identifier",
	KindBinaryExpression:    "BinaryExpression",
	KindSatisfiesExpression: "SatisfiesExpression",
	KindClassDeclaration:    "ClassDeclaration",
	KindClassBody:           "ClassBody",
	KindClassStaticBlock:    "ClassStaticBlock",
	KindPropertyDeclaration: "PropertyDeclaration",
	KindMethodDeclaration:   "MethodDeclaration",
	KindImportDeclaration:   "ImportDeclaration",
	KindImportSpecifier:     "ImportSpecifier",
	KindImportAttributes:    "ImportAttributes",
	KindTypeParameter:       "TypeParameter",
	KindInferType:           "InferType",
	KindConstructorType:     "ConstructorType",
	KindTemplateLiteralType: "TemplateLiteralType",
	KindMappedType:          "MappedType",
	KindTupleType:           "TupleType",
	KindNamedTupleMember:    "NamedTupleMember",
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "Kind(?)"
	}
	return kindNames[k]
}

// Valid reports whether k is a member of the enumeration.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// Kinds returns every member of the enumeration in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}
