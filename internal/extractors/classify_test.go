package extractors

import (
	"testing"

	"github.com/miradorstack/mirador-resolver/internal/models"
)

func TestClassifyDriverError(t *testing.T) {
	cases := []struct {
		name    string
		message string
		query   string
		want    models.ErrorType
		code    string
		table   string
	}{
		{
			name:    "missing table from driver tuple",
			message: `(1146, "Table 'shop.orders' doesn't exist")`,
			query:   "SELECT * FROM orders WHERE id = 1",
			want:    models.ErrorTableNotFound,
			code:    "1146",
			table:   "orders",
		},
		{
			name:    "access denied",
			message: `(1045, "Access denied for user 'app'@'10.0.0.4' (using password: YES)")`,
			want:    models.ErrorAccessDenied,
			code:    "1045",
		},
		{
			name:    "syntax",
			message: "ERROR 1064 (42000): You have an error in your SQL syntax",
			query:   "SELEC id FROM users",
			want:    models.ErrorSyntax,
			code:    "1064",
			table:   "users",
		},
		{
			name:    "too many connections wins over connection phrase",
			message: "Too many connections",
			want:    models.ErrorTooManyConnections,
			code:    "UNKNOWN",
		},
		{
			name:    "generic connection",
			message: "Lost connection to server during query",
			want:    models.ErrorConnection,
			code:    "UNKNOWN",
		},
		{
			name:    "duplicate key",
			message: `(1062, "Duplicate entry 'a@b.c' for key 'email'")`,
			query:   "INSERT INTO `users` (email) VALUES ('a@b.c')",
			want:    models.ErrorDuplicateKey,
			code:    "1062",
			table:   "users",
		},
		{
			name:    "deadlock",
			message: `(1213, "Deadlock found when trying to get lock; try restarting transaction")`,
			query:   "UPDATE accounts SET balance = 0",
			want:    models.ErrorDeadlock,
			code:    "1213",
			table:   "accounts",
		},
		{
			name:    "unknown column",
			message: `(1054, "Unknown column 'nme' in 'field list'")`,
			want:    models.ErrorColumnNotFound,
			code:    "1054",
		},
		{
			name:    "disk full",
			message: "Disk full (/var/lib/mysql); waiting for someone to free some space",
			want:    models.ErrorDiskFull,
			code:    "UNKNOWN",
		},
		{
			name:    "missing function",
			message: `(1305, "FUNCTION demo.INVALID_FUNCTION does not exist")`,
			query:   "SELECT INVALID_FUNCTION(id) FROM users",
			want:    models.ErrorFunction,
			code:    "1305",
			table:   "users",
		},
		{
			name:    "timeout",
			message: "query execution was interrupted, maximum statement execution time exceeded: timeout",
			want:    models.ErrorTimeout,
			code:    "UNKNOWN",
		},
		{
			name:    "unrecognised",
			message: "something odd happened",
			want:    models.ErrorGeneral,
			code:    "UNKNOWN",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := ClassifyDriverError(tc.message, tc.query)
			if rec.Type != tc.want {
				t.Fatalf("expected type %s, got %s", tc.want, rec.Type)
			}
			if rec.Code != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, rec.Code)
			}
			if rec.Table != tc.table {
				t.Fatalf("expected table %q, got %q", tc.table, rec.Table)
			}
		})
	}
}

func TestClassifyDriverErrorTableFromMessage(t *testing.T) {
	rec := ClassifyDriverError(`(1146, "Table 'shop.invoices' doesn't exist")`, "")
	if rec.Table != "invoices" {
		t.Fatalf("expected table parsed from message, got %q", rec.Table)
	}
	if rec.Query != "" {
		t.Fatalf("expected empty query, got %q", rec.Query)
	}
}
