package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeDefaults(t *testing.T) {
	pg := Pagination{}.Normalize()
	assert.Equal(t, 1, pg.Page)
	assert.Equal(t, 10, pg.Limit)
	assert.Equal(t, "created_at", pg.Sort)
	assert.Equal(t, "desc", pg.Order)
	assert.Equal(t, 0, pg.Offset())
}

func TestNormalizeClampsLimit(t *testing.T) {
	pg := Pagination{Page: 1, Limit: 500}.Normalize()
	assert.Equal(t, 100, pg.Limit)

	pg = Pagination{Page: 1, Limit: -3}.Normalize()
	assert.Equal(t, 10, pg.Limit)
}

func TestNormalizeOrder(t *testing.T) {
	assert.Equal(t, "asc", Pagination{Order: "ASC"}.Normalize().Order)
	assert.Equal(t, "desc", Pagination{Order: "DESC"}.Normalize().Order)
	assert.Equal(t, "desc", Pagination{Order: "sideways"}.Normalize().Order)
	assert.Equal(t, "desc", Pagination{}.Normalize().Order)
}

func TestNormalizeRestrictsSortColumn(t *testing.T) {
	assert.Equal(t, "name", Pagination{Sort: "name"}.Normalize().Sort)
	assert.Equal(t, "updated_at", Pagination{Sort: " Updated_At "}.Normalize().Sort)

	// anything that is not a plain allow-listed column is coerced, so no
	// client-supplied expression can reach ORDER BY
	assert.Equal(t, "created_at", Pagination{Sort: "password_hash"}.Normalize().Sort)
	assert.Equal(t, "created_at", Pagination{Sort: "created_at; DROP TABLE users"}.Normalize().Sort)
	assert.Equal(t,
		"created_at",
		Pagination{Sort: "(CASE WHEN (SELECT password_hash FROM users LIMIT 1) = 'x' THEN id END)"}.Normalize().Sort,
	)
}

func TestOffset(t *testing.T) {
	pg := Pagination{Page: 3, Limit: 20}.Normalize()
	assert.Equal(t, 40, pg.Offset())
	assert.Equal(t, "created_at desc", pg.OrderClause())
}
