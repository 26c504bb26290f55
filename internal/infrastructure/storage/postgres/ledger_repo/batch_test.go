package ledger_repo

import (
	"strings"
	"testing"

	"stockledger/internal/core/id"
	"stockledger/internal/domain/ledger"
)

func TestBatchColumns_FlattenLocation(t *testing.T) {
	want := map[string]bool{
		"id": true, "item_id": true, "batch_no": true,
		"location_type": true, "location_id": true,
		"current_qty": true, "rate_per_unit": true,
	}
	got := map[string]bool{}
	for _, c := range batchColumns {
		if got[c] {
			t.Fatalf("duplicate column %q", c)
		}
		got[c] = true
	}
	for c := range want {
		if !got[c] {
			t.Errorf("missing column %q in %v", c, batchColumns)
		}
	}
}

func TestEntryColumns_IncludeAuditFields(t *testing.T) {
	got := map[string]bool{}
	for _, c := range entryColumns {
		got[c] = true
	}
	for _, c := range []string{"created_by", "user_role", "ip_address", "reversal_of", "system_generated"} {
		if !got[c] {
			t.Errorf("missing column %q in %v", c, entryColumns)
		}
	}
}

func TestBuildList_Filters(t *testing.T) {
	repo := NewBatchRepo(nil)

	itemID := id.New()
	locType := ledger.LocationCentralStore

	tests := []struct {
		name     string
		filter   ledger.BatchFilter
		wantSQL  []string
		wantArgs int
	}{
		{
			name:     "no filter",
			filter:   ledger.BatchFilter{},
			wantSQL:  []string{"FROM stk_batches", "ORDER BY batch_no"},
			wantArgs: 0,
		},
		{
			name:     "by item",
			filter:   ledger.BatchFilter{ItemID: &itemID},
			wantSQL:  []string{"item_id = $1"},
			wantArgs: 1,
		},
		{
			name:     "by location excluding zero",
			filter:   ledger.BatchFilter{LocationType: &locType, ExcludeZero: true},
			wantSQL:  []string{"location_type = $1", "current_qty <> $2"},
			wantArgs: 2,
		},
		{
			name:     "paged",
			filter:   ledger.BatchFilter{Limit: 20, Offset: 40},
			wantSQL:  []string{"LIMIT 20", "OFFSET 40"},
			wantArgs: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := repo.buildList(tt.filter).ToSql()
			if err != nil {
				t.Fatalf("ToSql failed: %v", err)
			}
			for _, fragment := range tt.wantSQL {
				if !strings.Contains(sql, fragment) {
					t.Errorf("SQL missing %q\ngot: %s", fragment, sql)
				}
			}
			if len(args) != tt.wantArgs {
				t.Errorf("args count: want %d, got %d", tt.wantArgs, len(args))
			}
		})
	}
}
