package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"campuscoin/internal/models"
	"campuscoin/internal/settings"
	"campuscoin/internal/store"
)

var errInjected = errors.New("injected fault")

type memState struct {
	coins       map[string]int64
	mess        map[string]decimal.Decimal
	coinTx      []store.CoinEntryInput
	messTx      []store.MessEntryInput
	credits     map[string]store.WeeklyCreditInput
	redemptions map[string]models.Redemption
	payments    []models.MessPayment
	attendance  map[string]string
	audits      []string
}

func (s memState) clone() memState {
	out := memState{
		coins:       make(map[string]int64, len(s.coins)),
		mess:        make(map[string]decimal.Decimal, len(s.mess)),
		coinTx:      append([]store.CoinEntryInput(nil), s.coinTx...),
		messTx:      append([]store.MessEntryInput(nil), s.messTx...),
		credits:     make(map[string]store.WeeklyCreditInput, len(s.credits)),
		redemptions: make(map[string]models.Redemption, len(s.redemptions)),
		payments:    append([]models.MessPayment(nil), s.payments...),
		attendance:  make(map[string]string, len(s.attendance)),
		audits:      append([]string(nil), s.audits...),
	}
	for k, v := range s.coins {
		out.coins[k] = v
	}
	for k, v := range s.mess {
		out.mess[k] = v
	}
	for k, v := range s.credits {
		out.credits[k] = v
	}
	for k, v := range s.redemptions {
		out.redemptions[k] = v
	}
	for k, v := range s.attendance {
		out.attendance[k] = v
	}
	return out
}

// memStore is an in-memory backend for every store interface the services
// use. WithTx serializes transactions and rolls state back when fn fails.
type memStore struct {
	txMu  sync.Mutex
	mu    sync.Mutex
	state memState
	// fail maps an operation name to the error it returns.
	fail map[string]error
	// students is returned by CountPresentByStudent.
	students []store.StudentAttendance
}

func newMemStore() *memStore {
	return &memStore{
		state: memState{
			coins:       map[string]int64{},
			mess:        map[string]decimal.Decimal{},
			credits:     map[string]store.WeeklyCreditInput{},
			redemptions: map[string]models.Redemption{},
			attendance:  map[string]string{},
		},
		fail: map[string]error{},
	}
}

func (m *memStore) addWallet(userID string, coins int64, mess string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.coins[userID] = coins
	m.state.mess[userID] = decimal.RequireFromString(mess)
}

func (m *memStore) failOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[op] = err
}

func (m *memStore) faultFor(op string) error {
	return m.fail[op]
}

func (m *memStore) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	snapshot := m.state.clone()
	m.mu.Unlock()
	if err := fn(nil); err != nil {
		m.mu.Lock()
		m.state = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) coinBalance(userID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.coins[userID]
}

func (m *memStore) messBalance(userID string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.mess[userID]
}

// assertConserved checks that each balance equals the sum of its ledger rows
// and that every row's balance_after matches the running total.
func (m *memStore) assertConserved(t *testing.T) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	coinSums := map[string]int64{}
	for _, entry := range m.state.coinTx {
		coinSums[entry.UserID] += entry.Amount
		if coinSums[entry.UserID] != entry.BalanceAfter {
			t.Fatalf("coin row %s balance_after %d, running sum %d", entry.ID, entry.BalanceAfter, coinSums[entry.UserID])
		}
	}
	messSums := map[string]decimal.Decimal{}
	for _, entry := range m.state.messTx {
		messSums[entry.UserID] = messSums[entry.UserID].Add(entry.Amount)
		if !messSums[entry.UserID].Equal(entry.BalanceAfter) {
			t.Fatalf("mess row %s balance_after %s, running sum %s", entry.ID, entry.BalanceAfter, messSums[entry.UserID])
		}
	}
	for userID, balance := range m.state.coins {
		if balance < 0 {
			t.Fatalf("negative coin balance for %s: %d", userID, balance)
		}
		if balance != coinSums[userID] {
			t.Fatalf("coin balance %d for %s, ledger sum %d", balance, userID, coinSums[userID])
		}
	}
	for userID, balance := range m.state.mess {
		if balance.IsNegative() {
			t.Fatalf("negative mess balance for %s: %s", userID, balance)
		}
		if !balance.Equal(messSums[userID]) {
			t.Fatalf("mess balance %s for %s, ledger sum %s", balance, userID, messSums[userID])
		}
	}
}

// WalletStore

func (m *memStore) GetByUser(ctx context.Context, userID string) (models.Wallet, error) {
	return m.GetForUpdate(ctx, nil, userID)
}

func (m *memStore) GetForUpdate(ctx context.Context, tx store.Getter, userID string) (models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	coins, ok := m.state.coins[userID]
	if !ok {
		return models.Wallet{}, sql.ErrNoRows
	}
	return models.Wallet{UserID: userID, CoinBalance: coins, MessBalance: m.state.mess[userID]}, nil
}

func (m *memStore) UpdateCoinBalance(ctx context.Context, tx store.Execer, userID string, balance int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faultFor("update_coin"); err != nil {
		return err
	}
	m.state.coins[userID] = balance
	return nil
}

func (m *memStore) UpdateMessBalance(ctx context.Context, tx store.Execer, userID string, balance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faultFor("update_mess"); err != nil {
		return err
	}
	m.state.mess[userID] = balance
	return nil
}

// LedgerStore

func (m *memStore) InsertCoinTransaction(ctx context.Context, tx store.Execer, entry store.CoinEntryInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faultFor("insert_coin"); err != nil {
		return err
	}
	m.state.coinTx = append(m.state.coinTx, entry)
	return nil
}

func (m *memStore) InsertMessTransaction(ctx context.Context, tx store.Execer, entry store.MessEntryInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faultFor("insert_mess"); err != nil {
		return err
	}
	m.state.messTx = append(m.state.messTx, entry)
	return nil
}

// WeeklyCreditStore

func (m *memStore) Exists(ctx context.Context, tx store.Getter, userID, weekStart string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.state.credits[userID+"|"+weekStart]
	return ok, nil
}

func (m *memStore) createCredit(input store.WeeklyCreditInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faultFor("insert_weekly_credit"); err != nil {
		return err
	}
	key := input.UserID + "|" + input.WeekStart
	if _, ok := m.state.credits[key]; ok {
		return fmt.Errorf("duplicate weekly credit %s", key)
	}
	m.state.credits[key] = input
	return nil
}

// AttendanceStore

func (m *memStore) Mark(ctx context.Context, tx store.Getter, id, userID, date, status, markedBy string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faultFor("mark_attendance"); err != nil {
		return false, err
	}
	key := userID + "|" + date
	_, exists := m.state.attendance[key]
	m.state.attendance[key] = status
	return !exists, nil
}

func (m *memStore) Delete(ctx context.Context, tx store.Execer, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.attendance[id]; !ok {
		return store.ErrNoRowsAffected
	}
	delete(m.state.attendance, id)
	return nil
}

func (m *memStore) CountPresentByStudent(ctx context.Context, from, to string) ([]store.StudentAttendance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]store.StudentAttendance(nil), m.students...), nil
}

// RedemptionStore

func (m *memStore) getRedemption(id string) (models.Redemption, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.state.redemptions[id]
	if !ok {
		return models.Redemption{}, sql.ErrNoRows
	}
	return r, nil
}

func (m *memStore) createRedemption(r models.Redemption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.redemptions[r.ID] = r
	return nil
}

func (m *memStore) MarkProcessed(ctx context.Context, tx store.Execer, id, status, adminID, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faultFor("mark_redemption"); err != nil {
		return err
	}
	r, ok := m.state.redemptions[id]
	if !ok || r.Status != models.StatusPending {
		return store.ErrNoRowsAffected
	}
	r.Status = status
	r.Notes = notes
	r.ProcessedBy = &adminID
	m.state.redemptions[id] = r
	return nil
}

// AuditStore

func (m *memStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faultFor("audit"); err != nil {
		return err
	}
	m.state.audits = append(m.state.audits, action)
	return nil
}

func (m *memStore) createPayment(p models.MessPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.faultFor("insert_payment"); err != nil {
		return err
	}
	m.state.payments = append(m.state.payments, p)
	return nil
}

// Several interfaces share method names (Create, GetByID), so each gets a
// thin view over the same memStore.

type memCredits struct{ *memStore }

func (c memCredits) Create(ctx context.Context, tx store.Execer, input store.WeeklyCreditInput) error {
	return c.createCredit(input)
}

type memRedemptions struct{ *memStore }

func (r memRedemptions) Create(ctx context.Context, tx store.Execer, redemption models.Redemption) error {
	return r.createRedemption(redemption)
}

func (r memRedemptions) GetByID(ctx context.Context, id string) (models.Redemption, error) {
	return r.getRedemption(id)
}

func (r memRedemptions) GetForUpdate(ctx context.Context, tx store.Getter, id string) (models.Redemption, error) {
	return r.getRedemption(id)
}

type memPayments struct{ *memStore }

func (p memPayments) Create(ctx context.Context, tx store.Execer, payment models.MessPayment) error {
	return p.createPayment(payment)
}

// testEnv wires every service over one memStore.
type testEnv struct {
	mem         *memStore
	recorder    *Recorder
	weekly      *WeeklyCreditService
	redemptions *RedemptionService
	mess        *MessService
	attendance  *AttendanceService
}

func newTestEnv(provider settings.Provider) *testEnv {
	mem := newMemStore()
	recorder := NewRecorder(mem, mem, mem, nil, nil)
	return &testEnv{
		mem:         mem,
		recorder:    recorder,
		weekly:      NewWeeklyCreditService(mem, recorder, memCredits{mem}, mem, mem, provider, 4, nil, nil),
		redemptions: NewRedemptionService(mem, recorder, mem, memRedemptions{mem}, mem, provider, nil, nil),
		mess:        NewMessService(mem, recorder, mem, memPayments{mem}, mem, provider, nil),
		attendance:  NewAttendanceService(mem, mem, mem, nil),
	}
}
