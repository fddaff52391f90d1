package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestClassify(t *testing.T) {
	classifier := NewPostgresErrorClassifier()

	tests := []struct {
		name string
		err  error
		want ErrorClassification
	}{
		{"nil", nil, NonRetryable},
		{"plain error", errors.New("boom"), NonRetryable},
		{"deadlock", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}, Retryable},
		{"serialization failure", &pgconn.PgError{Code: pgerrcode.SerializationFailure}, Retryable},
		{"connection failure", &pgconn.PgError{Code: pgerrcode.ConnectionFailure}, Retryable},
		{"unique violation", &pgconn.PgError{Code: pgerrcode.UniqueViolation}, NonRetryable},
		{"syntax error", &pgconn.PgError{Code: pgerrcode.SyntaxError}, NonRetryable},
		{"wrapped pg error", fmt.Errorf("outer: %w", &pgconn.PgError{Code: pgerrcode.DeadlockDetected}), Retryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifier.Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestConstraintError_Message(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           pgerrcode.UniqueViolation,
		ConstraintName: "users_email_key",
		Detail:         "Key (email)=(a@b.c) already exists.",
	}

	cerr := newConstraintError(pgErr)
	if cerr.Constraint != "users_email_key" {
		t.Errorf("expected constraint name, got %q", cerr.Constraint)
	}

	var unwrapped *pgconn.PgError
	if !errors.As(cerr, &unwrapped) {
		t.Error("expected the driver error to stay reachable through Unwrap")
	}
}
