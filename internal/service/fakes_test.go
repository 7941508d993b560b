package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"sitesupply/internal/authz"
	"sitesupply/internal/model"
	"sitesupply/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// memStore backs every fake repository. The fake transaction manager
// snapshots it and restores the snapshot when the callback fails.
type memStore struct {
	mu            sync.Mutex
	clock         time.Time
	orders        map[uuid.UUID]model.Order
	products      map[uuid.UUID]model.Product
	sites         map[uuid.UUID]model.Site
	users         map[uuid.UUID]model.User
	movements     []model.StockMovement
	returns       []model.ReturnRecord
	audits        []model.AuditLog
	notifications []model.Notification
}

func newMemStore() *memStore {
	return &memStore{
		clock:    time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		orders:   map[uuid.UUID]model.Order{},
		products: map[uuid.UUID]model.Product{},
		sites:    map[uuid.UUID]model.Site{},
		users:    map[uuid.UUID]model.User{},
	}
}

func (s *memStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

type memSnapshot struct {
	orders        map[uuid.UUID]model.Order
	products      map[uuid.UUID]model.Product
	movements     []model.StockMovement
	returns       []model.ReturnRecord
	audits        []model.AuditLog
	notifications []model.Notification
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memSnapshot{
		orders:        make(map[uuid.UUID]model.Order, len(s.orders)),
		products:      make(map[uuid.UUID]model.Product, len(s.products)),
		movements:     append([]model.StockMovement(nil), s.movements...),
		returns:       append([]model.ReturnRecord(nil), s.returns...),
		audits:        append([]model.AuditLog(nil), s.audits...),
		notifications: append([]model.Notification(nil), s.notifications...),
	}
	for k, v := range s.orders {
		v.Products = append([]model.OrderProduct(nil), v.Products...)
		snap.orders[k] = v
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = snap.orders
	s.products = snap.products
	s.movements = snap.movements
	s.returns = snap.returns
	s.audits = snap.audits
	s.notifications = snap.notifications
}

// --- transaction manager ---

type txDepthKey struct{}

type fakeTx struct{ s *memStore }

func (f fakeTx) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if ctx.Value(txDepthKey{}) != nil {
		return fn(ctx)
	}
	snap := f.s.snapshot()
	ctx, flush := repository.WithCommitHooks(ctx)
	if err := fn(context.WithValue(ctx, txDepthKey{}, true)); err != nil {
		f.s.restore(snap)
		flush(false)
		return err
	}
	flush(true)
	return nil
}

// --- orders ---

type fakeOrderRepo struct{ s *memStore }

func (r fakeOrderRepo) Create(_ context.Context, order *model.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	order.ID = uuid.New()
	order.CreatedAt = r.s.tick()
	order.UpdatedAt = order.CreatedAt
	for i := range order.Products {
		order.Products[i].ID = uuid.New()
		order.Products[i].OrderID = order.ID
	}
	stored := *order
	stored.Products = append([]model.OrderProduct(nil), order.Products...)
	r.s.orders[order.ID] = stored
	return nil
}

func (r fakeOrderRepo) load(id uuid.UUID) (*model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	r.attachProducts(&o)
	return &o, nil
}

// attachProducts copies the line items and joins their catalog products, as
// the repository's preloads do. Callers hold the store lock.
func (r fakeOrderRepo) attachProducts(o *model.Order) {
	o.Products = append([]model.OrderProduct(nil), o.Products...)
	for i := range o.Products {
		if pid := o.Products[i].ProductID; pid != nil {
			if p, ok := r.s.products[*pid]; ok {
				p := p
				o.Products[i].Product = &p
			}
		}
	}
}

func (r fakeOrderRepo) FindByIDWithProducts(_ context.Context, id uuid.UUID) (*model.Order, error) {
	return r.load(id)
}

func (r fakeOrderRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*model.Order, error) {
	return r.load(id)
}

func (r fakeOrderRepo) UpdateGuarded(_ context.Context, id uuid.UUID, version int, fields map[string]interface{}) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || o.Version != version {
		return repository.ErrStaleWrite
	}
	for k, v := range fields {
		switch k {
		case "status":
			o.Status = v.(string)
		case "delivery_status":
			o.DeliveryStatus = v.(string)
		case "rejected_note":
			o.RejectedNote = v.(string)
		case "transport_manager_id":
			tm := v.(uuid.UUID)
			o.TransportManagerID = &tm
		case "priority":
			o.Priority = v.(string)
		case "note":
			o.Note = v.(string)
		case "is_custom_product":
			o.IsCustomProduct = v.(bool)
		case "expected_delivery_date":
			o.ExpectedDeliveryDate = v.(*time.Time)
		case "product_status":
			o.ProductStatus = v.(string)
		case "product_rejection_notes":
			o.ProductRejectionNotes = v.(string)
		}
	}
	o.Version = version + 1
	o.UpdatedAt = r.s.tick()
	r.s.orders[id] = o
	return nil
}

func (r fakeOrderRepo) ReplaceProducts(_ context.Context, orderID uuid.UUID, products []model.OrderProduct) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o := r.s.orders[orderID]
	for i := range products {
		products[i].ID = uuid.New()
		products[i].OrderID = orderID
	}
	o.Products = append([]model.OrderProduct(nil), products...)
	r.s.orders[orderID] = o
	return nil
}

func (r fakeOrderRepo) List(_ context.Context, filter repository.OrderFilter) ([]model.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Order
	for _, o := range r.s.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.SiteID != nil && o.SiteID != *filter.SiteID {
			continue
		}
		if filter.SiteManagerID != nil && o.SiteManagerID != *filter.SiteManagerID {
			continue
		}
		if filter.TransportManagerID != nil && (o.TransportManagerID == nil || *o.TransportManagerID != *filter.TransportManagerID) {
			continue
		}
		r.attachProducts(&o)
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

// --- products, sites, users ---

type fakeProductRepo struct{ s *memStore }

func (r fakeProductRepo) Create(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.s.products[p.ID] = *p
	return nil
}

func (r fakeProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r fakeProductRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(ctx, id)
}

func (r fakeProductRepo) List(_ context.Context, page, limit int, search string) ([]model.Product, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Product
	for _, p := range r.s.products {
		if search == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(search)) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, int64(len(out)), nil
}

func (r fakeProductRepo) AddAvailableQty(_ context.Context, id uuid.UUID, delta int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p := r.s.products[id]
	p.AvailableQty += delta
	r.s.products[id] = p
	return nil
}

type fakeSiteRepo struct{ s *memStore }

func (r fakeSiteRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Site, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	site, ok := r.s.sites[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &site, nil
}

type fakeUserRepo struct{ s *memStore }

func (r fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r fakeUserRepo) ListIDsByRoles(_ context.Context, roles []string) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var ids []uuid.UUID
	for _, u := range r.s.users {
		for _, role := range roles {
			if u.Role == role {
				ids = append(ids, u.ID)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// --- stock ledger rows ---

type fakeStockRepo struct{ s *memStore }

func sameScope(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r fakeStockRepo) Append(_ context.Context, m *model.StockMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m.ID = uuid.New()
	m.CreatedAt = r.s.tick()
	r.s.movements = append(r.s.movements, *m)
	return nil
}

func (r fakeStockRepo) Latest(_ context.Context, productID uuid.UUID, siteID *uuid.UUID) (*model.StockMovement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := len(r.s.movements) - 1; i >= 0; i-- {
		m := r.s.movements[i]
		if m.ProductID == productID && sameScope(m.SiteID, siteID) && m.Status == model.MovementActive {
			return &m, nil
		}
	}
	return nil, nil
}

func (r fakeStockRepo) List(_ context.Context, filter repository.MovementFilter) ([]model.StockMovement, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.StockMovement
	for _, m := range r.s.movements {
		if filter.ProductID != nil && m.ProductID != *filter.ProductID {
			continue
		}
		if filter.SiteID != nil && !sameScope(m.SiteID, filter.SiteID) {
			continue
		}
		if filter.General && m.SiteID != nil {
			continue
		}
		if filter.Source != "" && m.Source != filter.Source {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (r fakeStockRepo) ListLowStock(ctx context.Context) ([]model.Product, error) {
	r.s.mu.Lock()
	products := make([]model.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		products = append(products, p)
	}
	r.s.mu.Unlock()

	var out []model.Product
	for _, p := range products {
		if !p.TracksStock() || p.LowStockThreshold <= 0 {
			continue
		}
		latest, _ := r.Latest(ctx, p.ID, nil)
		qty := 0
		if latest != nil {
			qty = latest.Quantity
		}
		if qty <= p.LowStockThreshold {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- returns, audit, notifications ---

type fakeReturnRepo struct{ s *memStore }

func (r fakeReturnRepo) Create(_ context.Context, record *model.ReturnRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	record.ID = uuid.New()
	record.CreatedAt = r.s.tick()
	for i := range record.Items {
		record.Items[i].ID = uuid.New()
		record.Items[i].ReturnID = record.ID
	}
	stored := *record
	stored.Items = append([]model.ReturnItem(nil), record.Items...)
	r.s.returns = append(r.s.returns, stored)
	return nil
}

func (r fakeReturnRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ReturnRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range r.s.returns {
		if rec.ID == id {
			rec := rec
			return &rec, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r fakeReturnRepo) List(_ context.Context, filter repository.ReturnFilter) ([]model.ReturnRecord, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.ReturnRecord
	for _, rec := range r.s.returns {
		if filter.Kind != "" && rec.Kind != filter.Kind {
			continue
		}
		if filter.SiteID != nil && !sameScope(rec.SiteID, filter.SiteID) {
			continue
		}
		out = append(out, rec)
	}
	return out, int64(len(out)), nil
}

type fakeAuditRepo struct{ s *memStore }

func (r fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	entry.ID = uuid.New()
	entry.CreatedAt = r.s.tick()
	r.s.audits = append(r.s.audits, *entry)
	return nil
}

func (r fakeAuditRepo) List(_ context.Context, page, limit int, action string) ([]model.AuditLog, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.AuditLog
	for i := len(r.s.audits) - 1; i >= 0; i-- {
		a := r.s.audits[i]
		if action != "" && a.Action != action {
			continue
		}
		if a.UserID != nil {
			if u, ok := r.s.users[*a.UserID]; ok {
				a.User = &u
			}
		}
		out = append(out, a)
	}
	total := int64(len(out))
	start := (page - 1) * limit
	if start >= len(out) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

type fakeNotificationRepo struct{ s *memStore }

func (r fakeNotificationRepo) CreateBatch(_ context.Context, notifications []model.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range notifications {
		notifications[i].ID = uuid.New()
		notifications[i].CreatedAt = r.s.tick()
	}
	r.s.notifications = append(r.s.notifications, notifications...)
	return nil
}

func (r fakeNotificationRepo) ListForRecipient(_ context.Context, recipientID uuid.UUID, unreadOnly bool, page, limit int) ([]model.Notification, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Notification
	for _, n := range r.s.notifications {
		if n.RecipientID != recipientID || (unreadOnly && n.ReadAt != nil) {
			continue
		}
		out = append(out, n)
	}
	return out, int64(len(out)), nil
}

func (r fakeNotificationRepo) MarkRead(_ context.Context, id, recipientID uuid.UUID, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.notifications {
		n := &r.s.notifications[i]
		if n.ID == id && n.RecipientID == recipientID {
			n.ReadAt = &at
			return true, nil
		}
	}
	return false, nil
}

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages map[uuid.UUID][][]byte
}

func (b *fakeBroadcaster) Publish(recipients []uuid.UUID, payload []byte) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.messages == nil {
		b.messages = map[uuid.UUID][][]byte{}
	}
	for _, r := range recipients {
		b.messages[r] = append(b.messages[r], payload)
	}
	return true
}

// --- fixture ---

type fixture struct {
	store     *memStore
	push      *fakeBroadcaster
	stock     StockService
	orders    OrderService
	returns   ReturnService
	notifier  NotificationService
	validator *OrderLineValidator

	site       model.Site
	admin      Actor
	storeMgr   Actor
	siteMgr    Actor
	otherSite  Actor
	transport  Actor
	transport2 Actor

	cement model.Product // hardware store, threshold 3
	lpo    model.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := newMemStore()
	f := &fixture{store: s, push: &fakeBroadcaster{}}

	f.site = model.Site{ID: uuid.New(), Name: "North Tower"}
	s.sites[f.site.ID] = f.site

	mkUser := func(role, email string) Actor {
		u := model.User{ID: uuid.New(), Name: email, Email: email, Role: role}
		s.users[u.ID] = u
		return Actor{ID: u.ID, Role: role}
	}
	f.admin = mkUser(authz.RoleAdmin, "admin@example.com")
	f.storeMgr = mkUser(authz.RoleStoreManager, "store@example.com")
	f.siteMgr = mkUser(authz.RoleSiteManager, "site@example.com")
	f.otherSite = mkUser(authz.RoleSiteManager, "site2@example.com")
	f.transport = mkUser(authz.RoleTransportManager, "driver@example.com")
	f.transport2 = mkUser(authz.RoleTransportManager, "driver2@example.com")

	f.cement = model.Product{ID: uuid.New(), Name: "Cement", Store: model.StoreHardware, UnitType: "bag", LowStockThreshold: 3}
	f.lpo = model.Product{ID: uuid.New(), Name: "Crane hire", Store: model.StoreLPO, UnitType: "day"}
	s.products[f.cement.ID] = f.cement
	s.products[f.lpo.ID] = f.lpo

	logger := zap.NewNop()
	tx := fakeTx{s}
	users := fakeUserRepo{s}
	products := fakeProductRepo{s}
	audit := fakeAuditRepo{s}
	f.notifier = NewNotificationService(fakeNotificationRepo{s}, users, f.push, logger)
	f.stock = NewStockService(fakeStockRepo{s}, products, fakeSiteRepo{s}, audit, tx, f.notifier, nil, logger)
	f.validator = NewOrderLineValidator(products, f.stock)
	f.orders = NewOrderService(fakeOrderRepo{s}, fakeSiteRepo{s}, users, products, audit, tx, f.stock, f.notifier, logger)
	f.returns = NewReturnService(fakeReturnRepo{s}, products, fakeOrderRepo{s}, fakeSiteRepo{s}, users, audit, tx, f.stock, f.notifier, logger)
	return f
}

// seed appends a ledger row directly, as an earlier stock-in would have.
func (f *fixture) seed(t *testing.T, productID uuid.UUID, siteID *uuid.UUID, delta int) {
	t.Helper()
	if _, err := f.stock.Apply(context.Background(), StockChange{
		ProductID: productID,
		SiteID:    siteID,
		Delta:     delta,
		Source:    model.SourceAdjustment,
	}); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
}

// putOrder stores an order in an arbitrary state.
func (f *fixture) putOrder(status, delivery string) model.Order {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	o := model.Order{
		ID:             uuid.New(),
		SiteID:         f.site.ID,
		SiteManagerID:  f.siteMgr.ID,
		Status:         status,
		DeliveryStatus: delivery,
		Priority:       model.PriorityMedium,
		Version:        1,
		CreatedAt:      f.store.tick(),
	}
	f.store.orders[o.ID] = o
	return o
}

func (f *fixture) order(id uuid.UUID) model.Order {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	return f.store.orders[id]
}

func (f *fixture) notificationsOf(recipient uuid.UUID, eventType string) []model.Notification {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	var out []model.Notification
	for _, n := range f.store.notifications {
		if n.RecipientID == recipient && n.Type == eventType {
			out = append(out, n)
		}
	}
	return out
}

func intPtr(v int) *int { return &v }
