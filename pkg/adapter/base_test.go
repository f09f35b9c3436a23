package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDialect is a minimal dialect for exercising shared helpers.
type testDialect struct{}

func (testDialect) Name() string                  { return "test" }
func (testDialect) DefaultSchema() string         { return "main" }
func (testDialect) InitCap(expr string) string    { return "INITCAP(" + expr + ")" }
func (testDialect) RegexMatch(c, p string) string { return c + " ~ '" + p + "'" }
func (testDialect) Placeholder(n int) string      { return "?" }

func TestBaseSQLAdapter_Close(t *testing.T) {
	tests := []struct {
		name    string
		setupDB bool
	}{
		{name: "close with nil DB", setupDB: false},
		{name: "close with open DB", setupDB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := &BaseSQLAdapter{}

			if tt.setupDB {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				mock.ExpectClose()
				base.DB = db
			}

			assert.NoError(t, base.Close())
		})
	}
}

func TestBaseSQLAdapter_Exec(t *testing.T) {
	tests := []struct {
		name      string
		setupDB   bool
		setupMock func(mock sqlmock.Sqlmock)
		sql       string
		expectErr bool
		errMsg    string
	}{
		{
			name:      "exec without connection",
			setupDB:   false,
			sql:       "SELECT 1",
			expectErr: true,
			errMsg:    "warehouse connection not established",
		},
		{
			name:    "exec success",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("CREATE SCHEMA silver").WillReturnResult(sqlmock.NewResult(0, 0))
			},
			sql:       "CREATE SCHEMA silver",
			expectErr: false,
		},
		{
			name:    "exec with error",
			setupDB: true,
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INVALID SQL").WillReturnError(assert.AnError)
			},
			sql:       "INVALID SQL",
			expectErr: true,
			errMsg:    "failed to execute SQL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			base := &BaseSQLAdapter{}

			var mock sqlmock.Sqlmock
			if tt.setupDB {
				db, m, err := sqlmock.New()
				require.NoError(t, err)
				mock = m
				base.DB = db
				defer func() { _ = db.Close() }()
			}
			if tt.setupMock != nil {
				tt.setupMock(mock)
			}

			err := base.Exec(ctx, tt.sql)
			if tt.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
				assert.NoError(t, mock.ExpectationsWereMet())
			}
		})
	}
}

func TestBaseSQLAdapter_ExecAll(t *testing.T) {
	t.Run("commits when every statement succeeds", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectExec("DROP TABLE IF EXISTS gold.top_products").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("ALTER TABLE gold.top_products__staging RENAME").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		base := &BaseSQLAdapter{DB: db}
		err = base.ExecAll(context.Background(), []string{
			"DROP TABLE IF EXISTS gold.top_products",
			"ALTER TABLE gold.top_products__staging RENAME TO top_products",
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on first failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		mock.ExpectBegin()
		mock.ExpectExec("DROP TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("ALTER TABLE").WillReturnError(assert.AnError)
		mock.ExpectRollback()

		base := &BaseSQLAdapter{DB: db}
		err = base.ExecAll(context.Background(), []string{
			"DROP TABLE old",
			"ALTER TABLE staging RENAME TO old",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to execute")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("without connection", func(t *testing.T) {
		base := &BaseSQLAdapter{}
		err := base.ExecAll(context.Background(), []string{"SELECT 1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "warehouse connection not established")
	})
}

func TestBaseSQLAdapter_QueryCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))

	base := &BaseSQLAdapter{DB: db}
	n, err := base.QueryCount(context.Background(), "SELECT COUNT(*) FROM bronze.customers")
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestParseQualifiedName(t *testing.T) {
	tests := []struct {
		input      string
		wantSchema string
		wantName   string
	}{
		{"silver.sales_enriched", "silver", "sales_enriched"},
		{"customers", "main", "customers"},
		{"gold.top_products", "gold", "top_products"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			schema, name := ParseQualifiedName(tt.input, testDialect{})
			assert.Equal(t, tt.wantSchema, schema)
			assert.Equal(t, tt.wantName, name)
		})
	}
}

func TestBaseSQLAdapter_GetTableMetadataCommon(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	cols := sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}).
		AddRow("customer_id", "INTEGER", "YES", 1).
		AddRow("email", "VARCHAR", "YES", 2)
	mock.ExpectQuery("information_schema.columns").
		WithArgs("bronze", "customers").
		WillReturnRows(cols)
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(10))

	base := &BaseSQLAdapter{DB: db}
	meta, err := base.GetTableMetadataCommon(context.Background(), "bronze.customers", testDialect{})
	require.NoError(t, err)
	assert.Equal(t, "bronze", meta.Schema)
	assert.Equal(t, "customers", meta.Name)
	assert.Len(t, meta.Columns, 2)
	assert.Equal(t, int64(10), meta.RowCount)
	assert.True(t, meta.Columns[0].Nullable)
}

func TestBaseSQLAdapter_GetTableMetadataCommon_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("information_schema.columns").
		WithArgs("bronze", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "is_nullable", "ordinal_position"}))

	base := &BaseSQLAdapter{DB: db}
	_, err = base.GetTableMetadataCommon(context.Background(), "bronze.missing", testDialect{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
