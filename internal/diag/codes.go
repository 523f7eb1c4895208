package diag

import (
	"fmt"
)

// Code identifies a diagnostic kind. Ranges follow the error-kind families:
// lexical (1000-1499), syntactic (1500-1999), semantic/construction
// (2000-2499), SSA-verify (2500-2999), pass (3000-3499), runtime
// (3500-3999), I/O and tooling (4000s).
type Code uint16

const (
	UnknownCode Code = 0

	// Lexical.
	LexInfo               Code = 1000
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexBadNumber          Code = 1003
	LexTokenTooLong       Code = 1004

	// Syntactic.
	SynInfo                 Code = 1500
	SynUnexpectedToken      Code = 1501
	SynExpectSemicolon      Code = 1502
	SynExpectIdentifier     Code = 1503
	SynExpectColon          Code = 1504
	SynExpectType           Code = 1505
	SynUnclosedDelimiter    Code = 1506
	SynMalformedPhiList     Code = 1507
	SynMalformedType        Code = 1508
	SynUnexpectedTerminator Code = 1509

	// Semantic / construction.
	SemInfo                  Code = 2000
	SemUndefinedSymbol       Code = 2001
	SemDuplicateDefinition   Code = 2002
	SemTypeMismatch          Code = 2003
	SemArityMismatch         Code = 2004
	SemMalformedPhiPred      Code = 2005
	SemMissingTerminator     Code = 2006
	SemUnknownBlockLabel     Code = 2007
	SemDuplicateBlock        Code = 2008
	SemInstructionMisplaced  Code = 2009
	SemUnreachableBlock      Code = 2010
	SemUndefinedFunctionCall Code = 2011

	// SSA verification.
	SSAInfo                Code = 2500
	SSANonUniqueDefinition Code = 2501
	SSAUseBeforeDefinition Code = 2502
	SSADominanceViolation  Code = 2503
	SSAIncompletePhi       Code = 2504
	SSATerminatorMisplaced Code = 2505
	SSAPhiNotLeading       Code = 2506

	// Pass driver.
	PassInfo              Code = 3000
	PassBudgetExceeded    Code = 3001
	PassInternalInvariant Code = 3002

	// Runtime (interpreter).
	RtInfo              Code = 3500
	RtNullDereference   Code = 3501
	RtOutOfBounds       Code = 3502
	RtStackOverflow     Code = 3503
	RtDivisionByZero    Code = 3504
	RtUndefinedFunction Code = 3505

	// I/O and tooling.
	IOLoadFileError Code = 4000
	CfgInvalid      Code = 4001
	CacheCorrupt    Code = 4002
)

var codeDescription = map[Code]string{
	UnknownCode: "unknown error",

	LexInfo:               "lexical information",
	LexUnknownChar:        "unknown character",
	LexUnterminatedString: "unterminated literal",
	LexBadNumber:          "malformed integer literal",
	LexTokenTooLong:       "token too long",

	SynInfo:                "syntax information",
	SynUnexpectedToken:      "unexpected token",
	SynExpectSemicolon:      "expected ';'",
	SynExpectIdentifier:     "expected identifier",
	SynExpectColon:          "expected ':'",
	SynExpectType:           "expected a type",
	SynUnclosedDelimiter:    "unclosed delimiter",
	SynMalformedPhiList:     "malformed phi operand list",
	SynMalformedType:        "malformed type",
	SynUnexpectedTerminator: "unexpected terminator",

	SemInfo:                  "semantic information",
	SemUndefinedSymbol:       "undefined symbol",
	SemDuplicateDefinition:   "duplicate definition",
	SemTypeMismatch:          "type mismatch",
	SemArityMismatch:         "arity mismatch",
	SemMalformedPhiPred:      "malformed phi predecessor list",
	SemMissingTerminator:     "block is missing a terminator",
	SemUnknownBlockLabel:     "branch to unknown block",
	SemDuplicateBlock:        "duplicate block label",
	SemInstructionMisplaced:  "instruction in wrong position",
	SemUnreachableBlock:      "unreachable block",
	SemUndefinedFunctionCall: "call to undefined function",

	SSAInfo:                "SSA verification information",
	SSANonUniqueDefinition: "non-unique definition",
	SSAUseBeforeDefinition: "use before definition",
	SSADominanceViolation:  "dominance violation",
	SSAIncompletePhi:       "incomplete phi",
	SSATerminatorMisplaced: "terminator misplaced",
	SSAPhiNotLeading:       "phi instruction does not lead its block",

	PassInfo:              "pass driver information",
	PassBudgetExceeded:    "pass budget exceeded",
	PassInternalInvariant: "pass internal invariant violated",

	RtInfo:              "runtime information",
	RtNullDereference:   "null pointer dereference",
	RtOutOfBounds:       "out-of-bounds memory access",
	RtStackOverflow:     "stack overflow",
	RtDivisionByZero:    "division by zero",
	RtUndefinedFunction: "call to undefined function",

	IOLoadFileError: "I/O error loading file",
	CfgInvalid:      "invalid project configuration",
	CacheCorrupt:    "disk cache payload is corrupt or stale",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 1500:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 1500 && ic < 2000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 2000 && ic < 2500:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 2500 && ic < 3000:
		return fmt.Sprintf("SSA%04d", ic)
	case ic >= 3000 && ic < 3500:
		return fmt.Sprintf("PASS%04d", ic)
	case ic >= 3500 && ic < 4000:
		return fmt.Sprintf("RT%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
