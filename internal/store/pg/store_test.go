package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"shopadmin.app/internal/audit"
	"shopadmin.app/internal/auth"
	"shopadmin.app/internal/catalog"
	"shopadmin.app/internal/customer"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return New(db), mock
}

var accountCols = []string{"id", "username", "email", "password_hash", "role", "created_at", "updated_at"}

func TestCreateAccountConflict(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("insert into admins").
		WithArgs("acc-1", "root", "", "hash", "superadmin").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	_, err := store.CreateAccount(context.Background(), auth.Account{ID: "acc-1", Username: "root", PasswordHash: "hash", Role: auth.RoleSuperadmin})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestFindByUsername(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery("from admins.*lower").
		WithArgs("Manager").
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow("acc-2", "manager", "m@example.com", "hash", "manager", now, now))
	mock.ExpectQuery("from admins.*lower").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(accountCols))

	acc, err := store.FindByUsername(context.Background(), "Manager")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if acc.Role != auth.RoleManager || acc.ID != "acc-2" {
		t.Fatalf("unexpected account %+v", acc)
	}
	if _, err := store.FindByUsername(context.Background(), "ghost"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAccountGuarded(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("delete from admins where id = \\$1 and role <> 'superadmin'").
		WithArgs("root").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select exists").
		WithArgs("root").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	if err := store.DeleteAccount(context.Background(), "root"); !errors.Is(err, auth.ErrProtectedAccount) {
		t.Fatalf("expected ErrProtectedAccount, got %v", err)
	}
}

func TestDeleteAccountMissing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("delete from admins").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("select exists").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	if err := store.DeleteAccount(context.Background(), "ghost"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAccount(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("delete from admins").
		WithArgs("acc-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.DeleteAccount(context.Background(), "acc-2"); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
}

func TestUpdateAccountDemotionGuarded(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("update admins set").
		WithArgs("root", nil, nil, "admin").
		WillReturnRows(sqlmock.NewRows(accountCols))
	mock.ExpectQuery("select exists").
		WithArgs("root").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	role := auth.RoleAdmin
	_, err := store.UpdateAccount(context.Background(), "root", auth.AccountUpdate{Role: &role})
	if !errors.Is(err, auth.ErrProtectedAccount) {
		t.Fatalf("expected ErrProtectedAccount, got %v", err)
	}
}

func TestUpdateAccountUsername(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery("update admins set").
		WithArgs("root", "owner", nil, nil).
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow("root", "owner", "", "hash", "superadmin", now, now))

	name := "owner"
	acc, err := store.UpdateAccount(context.Background(), "root", auth.AccountUpdate{Username: &name})
	if err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	if acc.Username != "owner" || acc.Role != auth.RoleSuperadmin {
		t.Fatalf("unexpected account %+v", acc)
	}
}

var entryCols = []string{"id", "actor_id", "username", "role", "action", "target_id", "metadata", "ip_address", "created_at", "archived", "immutable"}

func TestAppendEntry(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectExec("insert into activity_logs").
		WithArgs("log-1", "acc-1", "superadmin", "DELETE_ADMIN", "acc-2", []byte(`{"username":"bob"}`), "10.0.0.1", ts, true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.AppendEntry(context.Background(), audit.Entry{
		ID:        "log-1",
		ActorID:   "acc-1",
		Role:      auth.RoleSuperadmin,
		Action:    audit.ActionDeleteAdmin,
		TargetID:  "acc-2",
		Metadata:  map[string]any{"username": "bob"},
		IPAddress: "10.0.0.1",
		Timestamp: ts,
		Immutable: true,
	})
	if err != nil {
		t.Fatalf("AppendEntry: %v", err)
	}
}

func TestListEntriesJoinsUsername(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Now().UTC()
	mock.ExpectQuery("select count").
		WithArgs("LOGIN").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery("from activity_logs l\\s+left join admins a").
		WithArgs("LOGIN", 2, 2).
		WillReturnRows(sqlmock.NewRows(entryCols).
			AddRow("log-1", "acc-1", "manager", "manager", "LOGIN", "", []byte(`{"ip":"x"}`), "10.0.0.1", ts, false, false))

	entries, total, err := store.ListEntries(context.Background(), audit.Filter{Action: audit.ActionLogin}, 2, 2)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if total != 3 || len(entries) != 1 {
		t.Fatalf("unexpected page: total=%d len=%d", total, len(entries))
	}
	if entries[0].ActorName != "manager" || entries[0].Metadata["ip"] != "x" {
		t.Fatalf("unexpected entry %+v", entries[0])
	}
}

func TestListEntriesPastEnd(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("select count").
		WithArgs("").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	entries, total, err := store.ListEntries(context.Background(), audit.Filter{}, 50, 50)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if total != 1 || len(entries) != 0 {
		t.Fatalf("unexpected page: total=%d len=%d", total, len(entries))
	}
}

func TestArchiveEntry(t *testing.T) {
	store, mock := newMockStore(t)
	ts := time.Now().UTC()
	mock.ExpectQuery("with archived as").
		WithArgs("log-1").
		WillReturnRows(sqlmock.NewRows(entryCols).
			AddRow("log-1", "acc-1", "root", "superadmin", "ROLE_CHANGE", "acc-2", []byte(`{}`), "", ts, true, true))

	e, err := store.ArchiveEntry(context.Background(), "log-1")
	if err != nil {
		t.Fatalf("ArchiveEntry: %v", err)
	}
	if !e.Archived || e.Metadata != nil {
		t.Fatalf("unexpected entry %+v", e)
	}
}

func TestArchiveEntryNotModifiable(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("with archived as").
		WithArgs("log-2").
		WillReturnRows(sqlmock.NewRows(entryCols))
	mock.ExpectQuery("select exists").
		WithArgs("log-2").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("with archived as").
		WithArgs("log-3").
		WillReturnRows(sqlmock.NewRows(entryCols))
	mock.ExpectQuery("select exists").
		WithArgs("log-3").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	if _, err := store.ArchiveEntry(context.Background(), "log-2"); !errors.Is(err, audit.ErrNotModifiable) {
		t.Fatalf("expected ErrNotModifiable, got %v", err)
	}
	if _, err := store.ArchiveEntry(context.Background(), "log-3"); !errors.Is(err, audit.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateOrderEncodesItems(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	items := []byte(`[{"name":"Mug","price":4,"qty":2}]`)
	mock.ExpectQuery("insert into orders").
		WithArgs("ord-1", items, 8.0, "Pending").
		WillReturnRows(sqlmock.NewRows([]string{"id", "items", "total", "status", "created_at", "updated_at"}).
			AddRow("ord-1", items, 8.0, "Pending", now, now))

	o, err := store.CreateOrder(context.Background(), catalog.Order{
		ID:    "ord-1",
		Items: []catalog.OrderItem{{Name: "Mug", Price: 4, Qty: 2}},
		Total: 8,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if o.Status != catalog.StatusPending || len(o.Items) != 1 || o.Items[0].Qty != 2 {
		t.Fatalf("unexpected order %+v", o)
	}
}

func TestIncrementViewsMissing(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("update products set views = views \\+ 1").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := store.IncrementViews(context.Background(), "ghost"); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProductTotals(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("from products").
		WithArgs(catalog.LowStockThreshold).
		WillReturnRows(sqlmock.NewRows([]string{"count", "low", "views"}).AddRow(12, 3, int64(420)))

	totals, err := store.ProductTotals(context.Background(), catalog.LowStockThreshold)
	if err != nil {
		t.Fatalf("ProductTotals: %v", err)
	}
	if totals.Count != 12 || totals.LowStock != 3 || totals.Views != 420 {
		t.Fatalf("unexpected totals %+v", totals)
	}
}

var customerCols = []string{"id", "name", "email", "password_hash", "created_at", "updated_at"}

func TestCreateCustomerConflict(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("insert into customers").
		WithArgs("cus-1", "Ada", "ada@example.com", "hash").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	_, err := store.CreateCustomer(context.Background(), customer.Customer{ID: "cus-1", Name: "Ada", Email: "ada@example.com", PasswordHash: "hash"})
	if !errors.Is(err, customer.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestFindCustomerByEmail(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()
	mock.ExpectQuery("from customers.*lower\\(email\\)").
		WithArgs("ada@example.com").
		WillReturnRows(sqlmock.NewRows(customerCols).AddRow("cus-1", "Ada", "ada@example.com", "hash", now, now))
	mock.ExpectQuery("from customers.*where id").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(customerCols))

	c, err := store.FindCustomerByEmail(context.Background(), "ada@example.com")
	if err != nil {
		t.Fatalf("FindCustomerByEmail: %v", err)
	}
	if c.ID != "cus-1" || c.Name != "Ada" {
		t.Fatalf("unexpected customer %+v", c)
	}
	if _, err := store.GetCustomer(context.Background(), "ghost"); !errors.Is(err, customer.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
