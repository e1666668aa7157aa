package aggregates

// WriteTxOwnership names who opens and commits the write transaction.
type WriteTxOwnership string

const (
	// WriteTxOwnedByAggregate: the aggregate opens, commits and rolls back its own transaction.
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
)

// ReadPolicy bounds which reads an aggregate performs.
type ReadPolicy string

const (
	// ReadPolicyInvariantScoped: only the reads an invariant decision needs, taken inside the write transaction.
	ReadPolicyInvariantScoped ReadPolicy = "invariant_scoped_reads"
)

// Contract is the published write boundary of an imaging aggregate.
type Contract struct {
	Name             string
	WriteTxOwnership WriteTxOwnership
	ReadPolicy       ReadPolicy
	Notes            string
}

type Aggregate interface {
	Contract() Contract
}

func (c Contract) RequiresAggregateOwnedTx() bool {
	return c.WriteTxOwnership == WriteTxOwnedByAggregate
}
