package postgres

import (
	"testing"

	"github.com/leapstack-labs/medallion/pkg/adapter"
	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  adapter.Config
		want string
	}{
		{
			name: "defaults",
			cfg:  adapter.Config{Database: "warehouse"},
			want: "host=localhost port=5432 dbname=warehouse sslmode=disable",
		},
		{
			name: "full config",
			cfg: adapter.Config{
				Host:     "db.internal",
				Port:     5433,
				Database: "analytics",
				Username: "etl",
				Password: "secret",
				Options:  map[string]string{"sslmode": "require"},
			},
			want: "host=db.internal port=5433 dbname=analytics sslmode=require user=etl password=secret",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildDSN(tt.cfg))
		})
	}
}

func TestDialect(t *testing.T) {
	d := dialect{}
	assert.Equal(t, "postgres", d.Name())
	assert.Equal(t, "public", d.DefaultSchema())
	assert.Equal(t, "INITCAP(TRIM(name))", d.InitCap("TRIM(name)"))
	assert.Equal(t, "email ~ '^x+$'", d.RegexMatch("email", "^x+$"))
	assert.Equal(t, "$2", d.Placeholder(2))
}

func TestBuildInsert(t *testing.T) {
	a := New(nil)
	got := a.buildInsert("bronze.customers", []string{"customer_id", "name", "email"})
	assert.Equal(t, "INSERT INTO bronze.customers (customer_id, name, email) VALUES ($1, $2, $3)", got)
}

func TestJSONValue(t *testing.T) {
	assert.Equal(t, int64(7), jsonValue(float64(7)))
	assert.Equal(t, 7.5, jsonValue(7.5))
	assert.Equal(t, "abc", jsonValue("abc"))
	assert.Nil(t, jsonValue(nil))
}
