package syntax

// Token is a keyword or operator attached to a node: a modifier in a
// modifier list, or the operator of a binary expression.
type Token int

const (
	TokenUnknown Token = iota

	// Modifiers.
	TokenAbstract
	TokenAccessor
	TokenAsync
	TokenConst
	TokenDeclare
	TokenIn
	TokenOut
	TokenOverride
	TokenPrivate
	TokenProtected
	TokenPublic
	TokenReadonly
	TokenStatic

	// Assignment operators.
	TokenEquals
	TokenPlusEquals
	TokenMinusEquals
	TokenAsteriskEquals
	TokenSlashEquals
	TokenPercentEquals
	TokenAsteriskAsteriskEquals
	TokenAmpersandEquals
	TokenBarEquals
	TokenCaretEquals
	TokenLessThanLessThanEquals
	TokenGreaterThanGreaterThanEquals
	TokenGreaterThanGreaterThanGreaterThanEquals
	TokenAmpersandAmpersandEquals
	TokenBarBarEquals
	TokenQuestionQuestionEquals

	// Binary operators.
	TokenAmpersandAmpersand
	TokenBarBar
	TokenQuestionQuestion
	TokenPlus
	TokenMinus
	TokenAsterisk
	TokenSlash
	TokenPercent
	TokenAsteriskAsterisk
	TokenAmpersand
	TokenBar
	TokenCaret
	TokenLessThanLessThan
	TokenGreaterThanGreaterThan
	TokenGreaterThanGreaterThanGreaterThan
	TokenEqualsEquals
	TokenEqualsEqualsEquals
	TokenExclamationEquals
	TokenExclamationEqualsEquals
	TokenLessThan
	TokenLessThanEquals
	TokenGreaterThan
	TokenGreaterThanEquals
	TokenInstanceOf
	TokenInKeyword
)

// Source spellings. Modifier keywords and operators share only "in", which
// the caller disambiguates by choosing LookupModifier or LookupOperator.
var modifierText = map[string]Token{
	"abstract":  TokenAbstract,
	"accessor":  TokenAccessor,
	"async":     TokenAsync,
	"const":     TokenConst,
	"declare":   TokenDeclare,
	"in":        TokenIn,
	"out":       TokenOut,
	"override":  TokenOverride,
	"private":   TokenPrivate,
	"protected": TokenProtected,
	"public":    TokenPublic,
	"readonly":  TokenReadonly,
	"static":    TokenStatic,
}

var operatorText = map[string]Token{
	"=":          TokenEquals,
	"+=":         TokenPlusEquals,
	"-=":         TokenMinusEquals,
	"*=":         TokenAsteriskEquals,
	"/=":         TokenSlashEquals,
	"%=":         TokenPercentEquals,
	"**=":        TokenAsteriskAsteriskEquals,
	"&=":         TokenAmpersandEquals,
	"|=":         TokenBarEquals,
	"^=":         TokenCaretEquals,
	"<<=":        TokenLessThanLessThanEquals,
	">>=":        TokenGreaterThanGreaterThanEquals,
	">>>=":       TokenGreaterThanGreaterThanGreaterThanEquals,
	"&&=":        TokenAmpersandAmpersandEquals,
	"||=":        TokenBarBarEquals,
	"??=":        TokenQuestionQuestionEquals,
	"&&":         TokenAmpersandAmpersand,
	"||":         TokenBarBar,
	"??":         TokenQuestionQuestion,
	"+":          TokenPlus,
	"-":          TokenMinus,
	"*":          TokenAsterisk,
	"/":          TokenSlash,
	"%":          TokenPercent,
	"**":         TokenAsteriskAsterisk,
	"&":          TokenAmpersand,
	"|":          TokenBar,
	"^":          TokenCaret,
	"<<":         TokenLessThanLessThan,
	">>":         TokenGreaterThanGreaterThan,
	">>>":        TokenGreaterThanGreaterThanGreaterThan,
	"==":         TokenEqualsEquals,
	"===":        TokenEqualsEqualsEquals,
	"!=":         TokenExclamationEquals,
	"!==":        TokenExclamationEqualsEquals,
	"<":          TokenLessThan,
	"<=":         TokenLessThanEquals,
	">":          TokenGreaterThan,
	">=":         TokenGreaterThanEquals,
	"instanceof": TokenInstanceOf,
	"in":         TokenInKeyword,
}

// LookupModifier returns the modifier token spelled s.
func LookupModifier(s string) (Token, bool) {
	t, ok := modifierText[s]
	return t, ok
}

// LookupOperator returns the operator token spelled s.
func LookupOperator(s string) (Token, bool) {
	t, ok := operatorText[s]
	return t, ok
}

var tokenNames = func() map[Token]string {
	m := make(map[Token]string, len(modifierText)+len(operatorText))
	for s, t := range operatorText {
		m[t] = s
	}
	for s, t := range modifierText {
		m[t] = s
	}
	return m
}()

func (t Token) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return "unknown"
}
