package aggregates_test

import (
	"testing"

	"github.com/yungbote/radflow-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/radflow-backend/internal/domain/aggregates"
)

func TestImagingAggregatesOwnTheirTransactions(t *testing.T) {
	all := []domainagg.Aggregate{
		aggregates.NewOrderValidationGate(aggregates.OrderGateDeps{}),
		aggregates.NewHierarchyIngestor(aggregates.IngestionDeps{}),
		aggregates.NewStudySignoffAggregate(aggregates.SignoffDeps{}),
	}
	seen := map[string]bool{}
	for _, agg := range all {
		c := agg.Contract()
		if c.Name == "" || seen[c.Name] {
			t.Fatalf("contract name missing or duplicated: %q", c.Name)
		}
		seen[c.Name] = true
		if !c.RequiresAggregateOwnedTx() {
			t.Fatalf("%s: want aggregate-owned tx got=%s", c.Name, c.WriteTxOwnership)
		}
		if c.ReadPolicy != domainagg.ReadPolicyInvariantScoped {
			t.Fatalf("%s: read policy %s", c.Name, c.ReadPolicy)
		}
	}
}
