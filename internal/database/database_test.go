package database

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
)

func TestDSN(t *testing.T) {
	dsn := DSN("app", "p@ss", "db", "3306", "travel")
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		t.Fatalf("ParseDSN(%q): %v", dsn, err)
	}
	if cfg.User != "app" || cfg.Passwd != "p@ss" || cfg.Addr != "db:3306" || cfg.DBName != "travel" || !cfg.ParseTime {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Loc != time.UTC {
		t.Fatalf("Loc = %v", cfg.Loc)
	}
	// Column defaults are written in the session zone; it must match Loc.
	if got := cfg.Params["time_zone"]; got != "'+00:00'" {
		t.Fatalf("time_zone = %q", got)
	}
}

func TestMigrateRunsEveryStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	for range schema {
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS")).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestMigrateStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("access denied"))
	err = Migrate(context.Background(), db)
	if err == nil || !strings.Contains(err.Error(), "access denied") {
		t.Fatalf("want migration error, got %v", err)
	}
}
