package db

import (
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
)

// Flavor identifica o motor do analytics store.
// Writer e query engine só diferem por placeholder e expressão de bucket.
type Flavor string

const (
	FlavorClickHouse Flavor = "clickhouse"
	FlavorPostgres   Flavor = "postgres"
	FlavorSQLite     Flavor = "sqlite3"
)

func (f Flavor) Validate() error {
	switch f {
	case FlavorClickHouse, FlavorPostgres, FlavorSQLite:
		return nil
	}
	return fmt.Errorf("unknown analytics flavor %q", string(f))
}

// DriverName retorna o nome registrado em database/sql
func (f Flavor) DriverName() string { return string(f) }

// Dialect retorna o dialeto goqu; ClickHouse usa o dialeto default ("?" e aspas duplas)
func (f Flavor) Dialect() goqu.DialectWrapper {
	switch f {
	case FlavorPostgres:
		return goqu.Dialect("postgres")
	case FlavorSQLite:
		return goqu.Dialect("sqlite3")
	}
	return goqu.Dialect("default")
}

// TruncExpr retorna a expressão SQL que trunca a coluna de tempo para o bucket.
// unit: "hour" | "day"
func (f Flavor) TruncExpr(unit, column string) (string, error) {
	if unit != "hour" && unit != "day" {
		return "", fmt.Errorf("unsupported bucket %q", unit)
	}
	switch f {
	case FlavorClickHouse:
		if unit == "hour" {
			return fmt.Sprintf("toStartOfHour(%s)", column), nil
		}
		return fmt.Sprintf("toStartOfDay(%s)", column), nil
	case FlavorPostgres:
		return fmt.Sprintf("date_trunc('%s', %s)", unit, column), nil
	case FlavorSQLite:
		if unit == "hour" {
			return fmt.Sprintf("strftime('%%Y-%%m-%%d %%H:00:00', %s)", column), nil
		}
		return fmt.Sprintf("strftime('%%Y-%%m-%%d 00:00:00', %s)", column), nil
	}
	return "", f.Validate()
}

// SQLiteTimeLayout ordena lexicograficamente e é aceito pelas funções de data do sqlite
const SQLiteTimeLayout = "2006-01-02 15:04:05.000"

// WallClock converte o instante para o formato de parâmetro esperado pelo store (sempre UTC)
func (f Flavor) WallClock(t time.Time) any {
	t = t.UTC()
	if f == FlavorSQLite {
		return t.Format(SQLiteTimeLayout)
	}
	return t
}
