package domain

// Turn is a single logged conversation exchange: the inbound text and
// the reply that was produced for it.
type Turn struct {
	PK            string
	SK            string
	Correspondent string
	Inbound       string
	Reply         string
	TTL           int64
}
