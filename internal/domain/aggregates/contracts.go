package aggregates

// WriteTxOwnership says who opens the transaction around an aggregate write.
type WriteTxOwnership string

const (
	WriteTxOwnedByAggregate WriteTxOwnership = "aggregate_owned"
)

// ReadPolicy says where list/queue reads live.
type ReadPolicy string

const (
	// ReadPolicyTableRepoQueries keeps queue and listing queries on table repos,
	// outside the aggregate.
	ReadPolicyTableRepoQueries ReadPolicy = "table_repo_queries"
)

// Contract names the row an aggregate guards and the columns its
// compare-and-set writes check.
type Contract struct {
	Name             string
	Table            string
	StateColumn      string
	TombstoneColumn  string
	WriteTxOwnership WriteTxOwnership
	ReadPolicy       ReadPolicy
	Notes            string
}

type Aggregate interface {
	Contract() Contract
}
