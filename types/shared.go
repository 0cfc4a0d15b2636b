package types

// Token is a vocabulary entry id as it appears in a tokenized shard. Ids are
// opaque keys; the full uint64 range is accepted.
type Token uint64
type Tokens []Token

// TokenCounts maps a token id to the number of times it was observed.
type TokenCounts map[Token]uint64

// TokenCount is one entry of a TokenCounts, used when an ordering is needed.
type TokenCount struct {
	Token Token
	Count uint64
}
