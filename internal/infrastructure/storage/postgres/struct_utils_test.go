package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockledger/internal/core/id"
)

type mockAudit struct {
	CreatedBy string `db:"created_by" json:"createdBy"`
	UserRole  string `db:"user_role" json:"userRole"`
}

type mockEntry struct {
	ID id.ID `db:"id" json:"id"`
	mockAudit
	BatchNo   string    `db:"batch_no" json:"batchNo"`
	Location  string    `db:"-" json:"location"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

func TestExtractDBColumns_EmbeddedAndSkipped(t *testing.T) {
	cols := ExtractDBColumns[mockEntry]()

	expectedCols := []string{
		"id", "created_by", "user_role", "batch_no", "created_at",
	}

	for _, expected := range expectedCols {
		assert.Contains(t, cols, expected)
	}

	// db:"-" fields never become columns
	assert.NotContains(t, cols, "location")
	assert.NotContains(t, cols, "-")
}

func TestStructToMap_EmbeddedAndSkipped(t *testing.T) {
	now := time.Now().UTC()
	e := mockEntry{
		ID: id.New(),
		mockAudit: mockAudit{
			CreatedBy: "tech-42",
			UserRole:  "technician",
		},
		BatchNo:   "CBL-2026-001",
		Location:  "not persisted",
		CreatedAt: now,
	}

	m := StructToMap(e)

	assert.Equal(t, e.ID, m["id"])
	assert.Equal(t, "tech-42", m["created_by"])
	assert.Equal(t, "technician", m["user_role"])
	assert.Equal(t, "CBL-2026-001", m["batch_no"])
	assert.Equal(t, now, m["created_at"])
	assert.NotContains(t, m, "location")
}
