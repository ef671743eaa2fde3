// Package config consumes an already-tokenized directive/value stream and
// materializes it into the policy and location registries (spec §4.6:
// "semantic contract only" — configuration-file tokenization itself is an
// external collaborator's job). It also owns process configuration
// (state/config directories, CLI-flag-backed fields) and the printers-file
// stanza grammar.
package config

// Kind enumerates every directive this core understands, replacing a
// string-compare dispatch with a table keyed by enum value (per the
// "config directives dispatched by string compare" redesign note: this
// also makes the forbidden-environment-variable lists total-enumerated).
type Kind int

const (
	KindLocationOpen Kind = iota
	KindLocationClose
	KindDefaultPrinterOpen // <DefaultPrinter name> style stanza, printers file
	KindPolicyOpen
	KindPolicyClose
	KindLimitMethodsOpen // nested <Limit methods> inside a Location
	KindLimitOpsOpen     // nested <Limit op op...> inside a Policy
	KindLimitClose

	KindAllow
	KindDeny
	KindOrder
	KindAuthType
	KindRequire
	KindSatisfy
	KindEncryption
	KindBrowseLocalProtocols
	KindDefaultPolicy
	KindSetEnv
	KindPassEnv

	KindUnknownTolerated // Filter, Prefilter, Product: silently tolerated
	KindUnknownWarn      // anything else unrecognized
)

func (k Kind) String() string {
	switch k {
	case KindLocationOpen:
		return "Location"
	case KindLocationClose:
		return "/Location"
	case KindDefaultPrinterOpen:
		return "DefaultPrinter"
	case KindPolicyOpen:
		return "Policy"
	case KindPolicyClose:
		return "/Policy"
	case KindLimitMethodsOpen:
		return "Limit(methods)"
	case KindLimitOpsOpen:
		return "Limit(ops)"
	case KindLimitClose:
		return "/Limit"
	case KindAllow:
		return "Allow"
	case KindDeny:
		return "Deny"
	case KindOrder:
		return "Order"
	case KindAuthType:
		return "AuthType"
	case KindRequire:
		return "Require"
	case KindSatisfy:
		return "Satisfy"
	case KindEncryption:
		return "Encryption"
	case KindBrowseLocalProtocols:
		return "BrowseLocalProtocols"
	case KindDefaultPolicy:
		return "DefaultPolicy"
	case KindSetEnv:
		return "SetEnv"
	case KindPassEnv:
		return "PassEnv"
	case KindUnknownTolerated:
		return "(tolerated)"
	default:
		return "(unknown)"
	}
}

// Directive is one already-tokenized line from the config stream: a kind
// plus its argument tokens, exactly as the (out-of-scope) tokenizer
// collaborator would hand it to this core.
type Directive struct {
	Kind Kind
	Args []string
}
