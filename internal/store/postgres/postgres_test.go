package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"restaurant-orders/internal/domain"
	"restaurant-orders/internal/store"
)

type StoreSuite struct {
	suite.Suite
	db    *sql.DB
	mock  sqlmock.Sqlmock
	store *Store
	ctx   context.Context
}

func (s *StoreSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.db, s.mock = db, mock
	s.store = New(db)
	s.ctx = context.Background()
}

func (s *StoreSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

var t0 = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

var orderColumns = []string{
	"id", "table_number", "status", "created_at", "estimated_minutes", "eta_set_at",
	"total_amount", "customer_name", "special_instructions", "items",
}

func (s *StoreSuite) TestInsertOrderWritesItemsAndLog() {
	o := domain.Order{
		TableNumber: 5,
		Status:      domain.StatusPending,
		CreatedAt:   t0,
		TotalAmount: decimal.NewFromInt(20),
		Items: []domain.OrderItem{
			{ID: "item_pizza", Name: "Pizza", Price: decimal.NewFromInt(10), Quantity: 2},
		},
	}

	s.mock.ExpectBegin()
	s.mock.ExpectExec(`INSERT INTO orders`).
		WithArgs(sqlmock.AnyArg(), 5, "pending", t0, o.TotalAmount, "", "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(`INSERT INTO order_items`).
		WithArgs(sqlmock.AnyArg(), 0, "item_pizza", "Pizza", o.Items[0].Price, 2, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(`INSERT INTO order_status_log`).
		WithArgs(sqlmock.AnyArg(), "pending", t0).
		WillReturnResult(sqlmock.NewResult(1, 1))
	s.mock.ExpectCommit()

	id, err := s.store.InsertOrder(s.ctx, o)
	s.Require().NoError(err)
	s.Len(id, 36)
}

func (s *StoreSuite) TestInsertOrderRollsBackOnItemFailure() {
	o := domain.Order{
		TableNumber: 1,
		Status:      domain.StatusPending,
		CreatedAt:   t0,
		Items:       []domain.OrderItem{{ID: "a", Name: "A", Quantity: 1}},
	}

	s.mock.ExpectBegin()
	s.mock.ExpectExec(`INSERT INTO orders`).WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(`INSERT INTO order_items`).WillReturnError(errors.New("disk full"))
	s.mock.ExpectRollback()

	_, err := s.store.InsertOrder(s.ctx, o)
	s.ErrorContains(err, "disk full")
}

func (s *StoreSuite) TestGetOrderDecodesItemsAndETA() {
	id := "5d0b2f7e-8d7a-4e57-9f65-0a1c2b3d4e5f"
	setAt := t0.Add(time.Minute)
	rows := sqlmock.NewRows(orderColumns).AddRow(
		id, 5, "preparing", t0, 15, setAt, "20.00", "Ana", "no onions",
		`[{"id":"item_pizza","name":"Pizza","price":10.00,"quantity":2,"notes":""}]`,
	)
	s.mock.ExpectQuery(`FROM orders o WHERE o.id = \$1`).WithArgs(id).WillReturnRows(rows)

	o, err := s.store.GetOrder(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(domain.StatusPreparing, o.Status)
	s.Require().NotNil(o.EstimatedMinutes)
	s.Equal(15, *o.EstimatedMinutes)
	s.Equal(setAt, *o.ETASetAt)
	s.True(o.TotalAmount.Equal(decimal.NewFromInt(20)))
	s.Require().Len(o.Items, 1)
	s.Equal("Pizza", o.Items[0].Name)
	s.True(o.Items[0].Price.Equal(decimal.NewFromInt(10)))
}

func (s *StoreSuite) TestGetOrderNotFound() {
	s.mock.ExpectQuery(`FROM orders o WHERE o.id`).WillReturnRows(sqlmock.NewRows(orderColumns))
	_, err := s.store.GetOrder(s.ctx, "5d0b2f7e-8d7a-4e57-9f65-0a1c2b3d4e5f")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *StoreSuite) TestGetOrderMalformedIDIsNotFound() {
	s.mock.ExpectQuery(`FROM orders o WHERE o.id`).WillReturnError(&pgconn.PgError{Code: "22P02"})
	_, err := s.store.GetOrder(s.ctx, "nope")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *StoreSuite) TestFindOrdersActiveQueue() {
	rows := sqlmock.NewRows(orderColumns).
		AddRow("a", 1, "pending", t0, nil, nil, "5.00", "", "", `[]`).
		AddRow("b", 2, "ready", t0.Add(time.Second), nil, nil, "7.50", "", "", `[]`)
	s.mock.ExpectQuery(`WHERE o.status <> \$1 ORDER BY o.created_at ASC`).
		WithArgs("served").
		WillReturnRows(rows)

	got, err := s.store.FindOrders(s.ctx, store.Active())
	s.Require().NoError(err)
	s.Require().Len(got, 2)
	s.Equal("a", got[0].ID)
	s.Nil(got[0].EstimatedMinutes)
	s.NotNil(got[1].Items)
}

func (s *StoreSuite) TestSetStatusUnknownOrder() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(`UPDATE orders SET status`).
		WithArgs("x", "ready", t0).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectRollback()

	err := s.store.SetStatus(s.ctx, "x", domain.StatusReady, t0)
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *StoreSuite) TestSetStatusAppendsLog() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(`UPDATE orders SET status`).
		WithArgs("x", "served", t0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(`INSERT INTO order_status_log`).
		WithArgs("x", "served", t0).
		WillReturnResult(sqlmock.NewResult(2, 1))
	s.mock.ExpectCommit()

	s.NoError(s.store.SetStatus(s.ctx, "x", domain.StatusServed, t0))
}

func (s *StoreSuite) TestSetETA() {
	s.mock.ExpectExec(`UPDATE orders SET estimated_minutes`).
		WithArgs("x", 15, t0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.NoError(s.store.SetETA(s.ctx, "x", 15, t0))
}

func (s *StoreSuite) TestStatusHistory() {
	s.mock.ExpectQuery(`SELECT EXISTS`).WithArgs("x").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	s.mock.ExpectQuery(`FROM order_status_log`).WithArgs("x").
		WillReturnRows(sqlmock.NewRows([]string{"status", "changed_at"}).
			AddRow("pending", t0).
			AddRow("preparing", t0.Add(time.Minute)))

	got, err := s.store.StatusHistory(s.ctx, "x")
	s.Require().NoError(err)
	s.Equal([]domain.StatusChange{
		{OrderID: "x", Status: domain.StatusPending, ChangedAt: t0},
		{OrderID: "x", Status: domain.StatusPreparing, ChangedAt: t0.Add(time.Minute)},
	}, got)
}

func (s *StoreSuite) TestIncrementServedUpserts() {
	s.mock.ExpectExec(`ON CONFLICT \(report_date, item_name\) DO UPDATE`).
		WithArgs("2024-03-09", "Pizza", 2, decimal.NewFromInt(20)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.NoError(s.store.IncrementServed(s.ctx, "2024-03-09", "Pizza", 2, decimal.NewFromInt(20)))
}

func (s *StoreSuite) TestPopularItemsOrdered() {
	s.mock.ExpectQuery(`FROM popular_items WHERE report_date = \$1`).WithArgs("2024-03-09").
		WillReturnRows(sqlmock.NewRows([]string{"item_id", "item_name", "report_date", "order_count"}).
			AddRow("item_pizza", "Pizza", "2024-03-09", 4).
			AddRow("item_salad", "Salad", "2024-03-09", 1))

	got, err := s.store.PopularItems(s.ctx, "2024-03-09")
	s.Require().NoError(err)
	s.Equal([]domain.PopularItem{
		{ItemID: "item_pizza", ItemName: "Pizza", Date: "2024-03-09", OrderCount: 4},
		{ItemID: "item_salad", ItemName: "Salad", Date: "2024-03-09", OrderCount: 1},
	}, got)
}

func TestBuildFind(t *testing.T) {
	q, args := buildFind(store.OrderQuery{TableNumber: 5, ExcludeStatus: domain.StatusServed, NewestFirst: true, Limit: 1})
	assert.Contains(t, q, "WHERE o.status <> $1 AND o.table_number = $2 ORDER BY o.created_at DESC, o.id LIMIT $3")
	require.Equal(t, []any{"served", 5, 1}, args)
}
