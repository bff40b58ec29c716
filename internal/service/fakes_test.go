package service

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/domain/valueobject"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/gateway"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/models"
	"github.com/vikasakankshasharma-jpg/team4job-sub003/internal/repository"
)

// memDB - хранилище в памяти с теми же CAS правилами, что и SQL репозитории.
type memDB struct {
	mu          sync.Mutex
	jobs        map[uuid.UUID]*models.Job
	txs         map[uuid.UUID]*models.Transaction
	disputes    map[uuid.UUID]*models.Dispute
	users       map[uuid.UUID]*models.User
	profiles    map[uuid.UUID]*models.PayoutProfile
	rates       models.RatesSnapshot
	recordErr   error
	settleCalls int
	// loadBarrier задерживает чтение активной транзакции, пока её не прочитают все участники гонки.
	loadBarrier *sync.WaitGroup
	seq         int
}

func newMemDB() *memDB {
	return &memDB{
		jobs:     map[uuid.UUID]*models.Job{},
		txs:      map[uuid.UUID]*models.Transaction{},
		disputes: map[uuid.UUID]*models.Dispute{},
		users:    map[uuid.UUID]*models.User{},
		profiles: map[uuid.UUID]*models.PayoutProfile{},
		rates:    models.DefaultRates(),
	}
}

func cloneTx(tx *models.Transaction) *models.Transaction {
	c := *tx
	if tx.Settlement != nil {
		s := *tx.Settlement
		c.Settlement = &s
	}
	return &c
}

func cloneJob(job *models.Job) *models.Job {
	c := *job
	return &c
}

// nextCreatedAt даёт строго возрастающее время создания для сортировки.
func (db *memDB) nextCreatedAt() time.Time {
	db.seq++
	return time.Date(2026, 1, 1, 0, 0, db.seq, 0, time.UTC)
}

func (db *memDB) activeTxLocked(jobID uuid.UUID, except uuid.UUID) bool {
	for _, tx := range db.txs {
		if tx.JobID == jobID && tx.ID != except && tx.Status.IsActive() {
			return true
		}
	}
	return false
}

func (db *memDB) checkJobLocked(t models.JobTransition) error {
	if !t.From.CanTransitionTo(t.To) {
		return repository.ErrIllegalTransition
	}
	job, ok := db.jobs[t.JobID]
	if !ok {
		return repository.ErrJobNotFound
	}
	if job.Status != t.From {
		return repository.ErrStaleState
	}
	return nil
}

func (db *memDB) applyJobLocked(t models.JobTransition) {
	job := db.jobs[t.JobID]
	job.Status = t.To
	if t.Reason != nil {
		reason := *t.Reason
		job.CancellationReason = &reason
	}
}

type memTxStore struct{ db *memDB }

func (s memTxStore) Create(_ context.Context, tx *models.Transaction) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if s.db.activeTxLocked(tx.JobID, uuid.Nil) {
		return repository.ErrDuplicateActiveTransaction
	}
	tx.ID = uuid.New()
	tx.Status = valueobject.TransactionStatusInitiated
	tx.CreatedAt = s.db.nextCreatedAt()
	s.db.txs[tx.ID] = cloneTx(tx)
	return nil
}

func (s memTxStore) GetByID(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	tx, ok := s.db.txs[id]
	if !ok {
		return nil, repository.ErrTransactionNotFound
	}
	return cloneTx(tx), nil
}

func (s memTxStore) byJobLocked(jobID uuid.UUID, statuses []valueobject.TransactionStatus) *models.Transaction {
	var matches []*models.Transaction
	for _, tx := range s.db.txs {
		if tx.JobID != jobID {
			continue
		}
		if statuses != nil {
			found := false
			for _, st := range statuses {
				if tx.Status == st {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		matches = append(matches, tx)
	}
	if len(matches) == 0 {
		return nil
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })
	return cloneTx(matches[0])
}

func (s memTxStore) FindActiveByJob(_ context.Context, jobID uuid.UUID, statuses ...valueobject.TransactionStatus) (*models.Transaction, error) {
	if len(statuses) == 0 {
		statuses = valueobject.ActiveTransactionStatuses
	}

	s.db.mu.Lock()
	tx := s.byJobLocked(jobID, statuses)
	barrier := s.db.loadBarrier
	s.db.mu.Unlock()

	if barrier != nil {
		barrier.Done()
		barrier.Wait()
	}
	if tx == nil {
		return nil, repository.ErrTransactionNotFound
	}
	return tx, nil
}

func (s memTxStore) FindLatestByJob(_ context.Context, jobID uuid.UUID) (*models.Transaction, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if tx := s.byJobLocked(jobID, nil); tx != nil {
		return tx, nil
	}
	return nil, repository.ErrTransactionNotFound
}

func (s memTxStore) Transition(_ context.Context, id uuid.UUID, from, to valueobject.TransactionStatus, patch models.TransactionPatch) (*models.Transaction, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if !from.CanTransitionTo(to) {
		return nil, repository.ErrIllegalTransition
	}
	tx, ok := s.db.txs[id]
	if !ok {
		return nil, repository.ErrTransactionNotFound
	}
	if tx.Status != from {
		return nil, repository.ErrStaleState
	}
	if to.IsActive() && s.db.activeTxLocked(tx.JobID, tx.ID) {
		return nil, repository.ErrDuplicateActiveTransaction
	}
	if patch.Job != nil {
		if err := s.db.checkJobLocked(*patch.Job); err != nil {
			return nil, err
		}
	}
	if patch.OpenDispute != nil {
		for _, d := range s.db.disputes {
			if d.JobID == patch.OpenDispute.JobID && d.Status == models.DisputeStatusOpen {
				return nil, repository.ErrDisputeAlreadyOpen
			}
		}
	}

	tx.Status = to
	if patch.GatewayOrderID != nil {
		tx.GatewayOrderID = patch.GatewayOrderID
	}
	if patch.FundedAt != nil {
		at := *patch.FundedAt
		tx.FundedAt = &at
	}
	if patch.Job != nil {
		s.db.applyJobLocked(*patch.Job)
	}
	if d := patch.OpenDispute; d != nil {
		d.ID = uuid.New()
		d.TransactionID = tx.ID
		d.CreatedAt = s.db.nextCreatedAt()
		stored := *d
		s.db.disputes[d.ID] = &stored
	}
	return cloneTx(tx), nil
}

func (s memTxStore) Settle(_ context.Context, commit models.SettlementCommit) (*models.Transaction, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if !commit.From.CanTransitionTo(commit.To) {
		return nil, repository.ErrIllegalTransition
	}
	tx, ok := s.db.txs[commit.TransactionID]
	if !ok {
		return nil, repository.ErrTransactionNotFound
	}
	if tx.Status != commit.From {
		return nil, repository.ErrStaleState
	}
	if err := s.db.checkJobLocked(commit.Job); err != nil {
		return nil, err
	}
	if commit.Dispute != nil {
		d, ok := s.db.disputes[commit.Dispute.DisputeID]
		if !ok || d.Status != models.DisputeStatusOpen {
			return nil, repository.ErrStaleState
		}
	}
	if commit.Debt != nil {
		if _, ok := s.db.profiles[commit.Debt.UserID]; !ok {
			return nil, repository.ErrUserNotFound
		}
	}

	s.db.settleCalls++
	record := commit.Settlement
	tx.Status = commit.To
	tx.Settlement = &record
	tx.SettlementVersion++
	settledAt := record.SettledAt
	tx.SettledAt = &settledAt

	s.db.applyJobLocked(commit.Job)
	if r := commit.Dispute; r != nil {
		d := s.db.disputes[r.DisputeID]
		d.Status = models.DisputeStatusResolved
		resolution := r.Resolution
		d.Resolution = &resolution
		d.SplitPercentage = r.SplitPercentage
		resolvedBy := r.ResolvedBy
		d.ResolvedBy = &resolvedBy
		d.ResolvedAt = &settledAt
	}
	if debt := commit.Debt; debt != nil {
		s.db.profiles[debt.UserID].PlatformDebt += debt.Amount
	}
	return cloneTx(tx), nil
}

func (s memTxStore) RecordRails(_ context.Context, id uuid.UUID, version int, settlement models.Settlement) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if s.db.recordErr != nil {
		return 0, s.db.recordErr
	}
	tx, ok := s.db.txs[id]
	if !ok {
		return 0, repository.ErrTransactionNotFound
	}
	if tx.SettlementVersion != version {
		return 0, repository.ErrStaleState
	}
	tx.Settlement = &settlement
	tx.SettlementVersion++
	return tx.SettlementVersion, nil
}

func (s memTxStore) ListNeedingReconciliation(_ context.Context, limit, offset int) ([]models.Transaction, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var out []models.Transaction
	for _, tx := range s.db.txs {
		if tx.Settlement != nil && tx.Settlement.State() != models.SettlementStateSettled {
			out = append(out, *cloneTx(tx))
		}
	}
	if offset >= len(out) {
		return []models.Transaction{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memJobStore struct{ db *memDB }

func (s memJobStore) GetByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	job, ok := s.db.jobs[id]
	if !ok {
		return nil, repository.ErrJobNotFound
	}
	return cloneJob(job), nil
}

func (s memJobStore) UpdateStatus(_ context.Context, t models.JobTransition) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if err := s.db.checkJobLocked(t); err != nil {
		return err
	}
	s.db.applyJobLocked(t)
	return nil
}

func (s memJobStore) Award(_ context.Context, jobID, installerID uuid.UUID, bidAmount, tip int64, startAt *time.Time) (*models.Job, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	job, ok := s.db.jobs[jobID]
	if !ok {
		return nil, repository.ErrJobNotFound
	}
	if job.Status != valueobject.JobStatusOpen {
		return nil, repository.ErrStaleState
	}
	job.InstallerID = &installerID
	job.BidAmount = bidAmount
	job.Tip = tip
	if startAt != nil {
		at := *startAt
		job.StartAt = &at
	}
	job.Status = valueobject.JobStatusAwarded
	return cloneJob(job), nil
}

func (s memJobStore) MarkWorkStarted(_ context.Context, jobID uuid.UUID, at time.Time) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	job, ok := s.db.jobs[jobID]
	if !ok {
		return repository.ErrJobNotFound
	}
	if job.Status != valueobject.JobStatusFunded || job.WorkStartedAt != nil {
		return repository.ErrStaleState
	}
	job.WorkStartedAt = &at
	return nil
}

type memDisputeStore struct{ db *memDB }

func (s memDisputeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Dispute, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	d, ok := s.db.disputes[id]
	if !ok {
		return nil, repository.ErrDisputeNotFound
	}
	c := *d
	return &c, nil
}

func (s memDisputeStore) GetOpenByJob(_ context.Context, jobID uuid.UUID) (*models.Dispute, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, d := range s.db.disputes {
		if d.JobID == jobID && d.Status == models.DisputeStatusOpen {
			c := *d
			return &c, nil
		}
	}
	return nil, repository.ErrDisputeNotFound
}

func (s memDisputeStore) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]models.Dispute, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	out := []models.Dispute{}
	for _, d := range s.db.disputes {
		if job, ok := s.db.jobs[d.JobID]; ok && job.IsParticipant(userID) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (s memDisputeStore) ListOpen(_ context.Context, _, _ int) ([]models.Dispute, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	out := []models.Dispute{}
	for _, d := range s.db.disputes {
		if d.Status == models.DisputeStatusOpen {
			out = append(out, *d)
		}
	}
	return out, nil
}

type memSettings struct{ db *memDB }

func (s memSettings) Current(context.Context) (models.RatesSnapshot, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	return s.db.rates, nil
}

func (s memSettings) Update(_ context.Context, rates *models.RatesSnapshot) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.rates = *rates
	return nil
}

type memUserStore struct{ db *memDB }

func (s memUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	u, ok := s.db.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (s memUserStore) GetPayoutProfile(_ context.Context, id uuid.UUID) (*models.PayoutProfile, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p, ok := s.db.profiles[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *p
	return &c, nil
}

func (s memUserStore) SetBeneficiary(_ context.Context, id uuid.UUID, beneficiaryID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	p, ok := s.db.profiles[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	p.BeneficiaryID = &beneficiaryID
	return nil
}

// fakeGateway считает вызовы и отдаёт заданные ошибки.
type fakeGateway struct {
	mu        sync.Mutex
	orders    []gateway.OrderRequest
	refunds   []gateway.RefundRequest
	payouts   []gateway.PayoutRequest
	orderErr  error
	refundErr error
	payoutErr error
	// orderStatus - статус созданных заказов при чтении, по умолчанию PAID.
	orderStatus string
	// paidShortBy - недоплата относительно суммы заказа.
	paidShortBy int64
	// onRefund вызывается после успешного возврата.
	onRefund func()
}

func (g *fakeGateway) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.orders = append(g.orders, req)
	if g.orderErr != nil {
		return nil, g.orderErr
	}
	return &gateway.OrderResult{OrderID: req.OrderID, PaymentSessionID: "session_" + req.OrderID}, nil
}

func (g *fakeGateway) GetOrder(_ context.Context, orderID string) (*gateway.OrderStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, o := range g.orders {
		if o.OrderID != orderID {
			continue
		}
		status := g.orderStatus
		if status == "" {
			status = gateway.OrderPaid
		}
		return &gateway.OrderStatus{OrderID: orderID, Status: status, Amount: decimal.NewFromInt(o.Amount - g.paidShortBy)}, nil
	}
	return nil, &gateway.Error{Op: "get order", StatusCode: http.StatusNotFound, Code: "order_not_found"}
}

func (g *fakeGateway) Refund(_ context.Context, req gateway.RefundRequest) (*gateway.RefundResult, error) {
	g.mu.Lock()
	g.refunds = append(g.refunds, req)
	err, hook := g.refundErr, g.onRefund
	g.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if hook != nil {
		hook()
	}
	return &gateway.RefundResult{GatewayRefundID: "cf_" + req.IdempotencyKey, Status: "SUCCESS"}, nil
}

func (g *fakeGateway) Payout(_ context.Context, req gateway.PayoutRequest) (*gateway.PayoutResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.payouts = append(g.payouts, req)
	if g.payoutErr != nil {
		return nil, g.payoutErr
	}
	return &gateway.PayoutResult{GatewayTransferID: "tr_" + req.IdempotencyKey, Status: "SUCCESS"}, nil
}

func (g *fakeGateway) calls() (refunds, payouts int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.refunds), len(g.payouts)
}

// ctxTxStore ведёт себя как SQL репозиторий: запись на отменённом контексте не проходит.
type ctxTxStore struct {
	memTxStore
}

func (s ctxTxStore) Settle(ctx context.Context, commit models.SettlementCommit) (*models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.memTxStore.Settle(ctx, commit)
}

func (s ctxTxStore) RecordRails(ctx context.Context, id uuid.UUID, version int, settlement models.Settlement) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.memTxStore.RecordRails(ctx, id, version, settlement)
}

type raisedAlert struct {
	Level models.AlertLevel
	Kind  string
}

type recordingAlerter struct {
	mu     sync.Mutex
	alerts []raisedAlert
	// onDeadContext - алерты, поднятые на уже отменённом контексте. Такие не дойдут до базы.
	onDeadContext int
}

func (a *recordingAlerter) Raise(ctx context.Context, level models.AlertLevel, kind, _ string, _ map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, raisedAlert{Level: level, Kind: kind})
	if ctx.Err() != nil {
		a.onDeadContext++
	}
}

func (a *recordingAlerter) has(level models.AlertLevel, kind string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, al := range a.alerts {
		if al.Level == level && al.Kind == kind {
			return true
		}
	}
	return false
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.SettlementEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event models.SettlementEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) last() models.SettlementEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.events[len(n.events)-1]
}

// fixture - заказ 10 000 с заказчиком, исполнителем и админом при ставках по умолчанию.
type fixture struct {
	db         *memDB
	gw         *fakeGateway
	alerts     *recordingAlerter
	notifier   *recordingNotifier
	lifecycle  *JobLifecycleService
	resolution *ResolutionService
	now        time.Time

	giver     Actor
	installer Actor
	admin     Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		db:        newMemDB(),
		gw:        &fakeGateway{},
		alerts:    &recordingAlerter{},
		notifier:  &recordingNotifier{},
		now:       time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		giver:     Actor{UserID: uuid.New(), Role: models.RoleGiver},
		installer: Actor{UserID: uuid.New(), Role: models.RoleInstaller},
		admin:     Actor{UserID: uuid.New(), Role: models.RoleAdmin},
	}
	for _, a := range []Actor{f.giver, f.installer, f.admin} {
		f.db.users[a.UserID] = &models.User{ID: a.UserID, Email: a.Role + "@example.com", Role: a.Role}
		f.db.profiles[a.UserID] = &models.PayoutProfile{UserID: a.UserID}
	}
	bene := "BENE_INSTALLER"
	f.db.profiles[f.installer.UserID].BeneficiaryID = &bene

	clock := func() time.Time { return f.now }
	f.lifecycle = NewJobLifecycleService(memJobStore{f.db}, memTxStore{f.db}, memSettings{f.db}, memUserStore{f.db}, f.gw, f.alerts, f.notifier)
	f.lifecycle.now = clock
	f.resolution = NewResolutionService(ResolutionDeps{
		Transactions: memTxStore{f.db},
		Jobs:         memJobStore{f.db},
		Disputes:     memDisputeStore{f.db},
		Settings:     memSettings{f.db},
		Users:        memUserStore{f.db},
		Gateway:      f.gw,
		Lifecycle:    f.lifecycle,
		Alerts:       f.alerts,
		Notifier:     f.notifier,
	})
	f.resolution.now = clock
	return f
}

// openJob - заказ без исполнителя.
func (f *fixture) openJob() *models.Job {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	job := &models.Job{
		ID:      uuid.New(),
		GiverID: f.giver.UserID,
		Status:  valueobject.JobStatusOpen,
	}
	f.db.jobs[job.ID] = job
	return cloneJob(job)
}

// fundedJob - оплаченный заказ: ставка 10 000, сбор 250, комиссия 500.
// startIn - время до начала работ, fundedAgo - сколько прошло с оплаты.
func (f *fixture) fundedJob(startIn, fundedAgo time.Duration) (*models.Job, *models.Transaction) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	installerID := f.installer.UserID
	startAt := f.now.Add(startIn)
	job := &models.Job{
		ID:          uuid.New(),
		GiverID:     f.giver.UserID,
		InstallerID: &installerID,
		BidAmount:   10000,
		StartAt:     &startAt,
		Status:      valueobject.JobStatusFunded,
	}
	f.db.jobs[job.ID] = job

	orderID := "ord_" + job.ID.String()[:8]
	fundedAt := f.now.Add(-fundedAgo)
	tx := &models.Transaction{
		ID:                uuid.New(),
		JobID:             job.ID,
		GatewayOrderID:    &orderID,
		PayerID:           f.giver.UserID,
		PayeeID:           installerID,
		Amount:            10000,
		Commission:        500,
		GiverFee:          250,
		TotalPaidByGiver:  10250,
		PayoutToInstaller: 9500,
		Status:            valueobject.TransactionStatusFunded,
		CreatedAt:         f.db.nextCreatedAt(),
		FundedAt:          &fundedAt,
	}
	f.db.txs[tx.ID] = tx
	return cloneJob(job), cloneTx(tx)
}

// disputedJob - оплаченный заказ с открытым спором.
func (f *fixture) disputedJob() (*models.Job, *models.Transaction, *models.Dispute) {
	job, tx := f.fundedJob(48*time.Hour, 2*time.Hour)

	f.db.mu.Lock()
	defer f.db.mu.Unlock()

	f.db.jobs[job.ID].Status = valueobject.JobStatusDisputed
	f.db.txs[tx.ID].Status = valueobject.TransactionStatusDisputed
	d := &models.Dispute{
		ID:            uuid.New(),
		JobID:         job.ID,
		TransactionID: tx.ID,
		RaisedBy:      f.giver.UserID,
		Reason:        "работа не выполнена",
		Status:        models.DisputeStatusOpen,
	}
	f.db.disputes[d.ID] = d
	return cloneJob(f.db.jobs[job.ID]), cloneTx(f.db.txs[tx.ID]), d
}

func (f *fixture) storedTx(id uuid.UUID) *models.Transaction {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return cloneTx(f.db.txs[id])
}

func (f *fixture) storedJob(id uuid.UUID) *models.Job {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return cloneJob(f.db.jobs[id])
}
