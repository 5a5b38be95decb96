package store

import (
	"context"
	"strings"
	"testing"
)

func TestReportStoreAttendance(t *testing.T) {
	store := NewReportStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "u.role = 'student'") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 2 || args[0] != "2024-01-01" || args[1] != "2024-01-31" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*[]AttendanceReportRow) = []AttendanceReportRow{{UserID: "user-1", PresentDays: 4}}
			return nil
		},
	})
	rows, err := store.Attendance(context.Background(), "2024-01-01", "2024-01-31")
	if err != nil || len(rows) != 1 || rows[0].PresentDays != 4 {
		t.Fatalf("unexpected result: %#v %v", rows, err)
	}
}

func TestReportStoreFinancial(t *testing.T) {
	store := NewReportStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FROM users u") || !strings.Contains(query, "mess_payments") {
				t.Fatalf("unexpected query: %s", query)
			}
			return nil
		},
	})
	if _, err := store.Financial(context.Background(), "2024-01-01", "2024-01-31"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
