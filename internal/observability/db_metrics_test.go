package observability

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveDBRecordsOutcomes(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	err := p.ObserveDB("users.list", func() error { return nil })

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := testutil.CollectAndCount(p.DbQueryDuration); got == 0 {
		t.Fatal("query duration not observed")
	}

	wantErr := &pgconn.PgError{Code: "23505"}

	err = p.ObserveDB("users.create", func() error { return wantErr })

	if !errors.Is(err, wantErr) {
		t.Fatalf("error not passed through: %v", err)
	}

	got := testutil.ToFloat64(p.DbErrorsTotal.WithLabelValues("users.create", "unique_violation"))

	if got != 1 {
		t.Fatalf("got %v unique_violation errors, want 1", got)
	}
}

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unique_violation", &pgconn.PgError{Code: "23505"}, "unique_violation"},
		{"serialization", &pgconn.PgError{Code: "40001"}, "serialization_failure"},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, "deadlock"},
		{"canceled", &pgconn.PgError{Code: "57014"}, "query_canceled"},
		{"other_pg", &pgconn.PgError{Code: "42601"}, "pg_42601"},
		{"timeout", errors.New("context deadline exceeded"), "timeout"},
		{"connection", errors.New("connection refused"), "connection"},
		{"unknown", errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			if got := classifyDBErr(tt.err); got != tt.want {
				t.Fatalf("classifyDBErr(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
