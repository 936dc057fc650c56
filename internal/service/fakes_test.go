package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"storefront-service/internal/entity"
	"storefront-service/internal/repository"
)

// memState is the whole storage picture a checkout transaction can touch.
type memState struct {
	products map[string]entity.Product
	carts    map[string][]entity.CartLine
	orders   map[string]*entity.Order
}

func (s memState) clone() memState {
	c := memState{
		products: map[string]entity.Product{},
		carts:    map[string][]entity.CartLine{},
		orders:   map[string]*entity.Order{},
	}
	for id, p := range s.products {
		c.products[id] = p
	}
	for user, lines := range s.carts {
		c.carts[user] = append([]entity.CartLine(nil), lines...)
	}
	for id, o := range s.orders {
		c.orders[id] = cloneOrder(o)
	}
	return c
}

func cloneOrder(o *entity.Order) *entity.Order {
	c := *o
	c.Items = append([]entity.OrderLine(nil), o.Items...)
	return &c
}

// memOrderStore runs transactions one at a time against a private copy of the
// state and swaps it in on success, which is what row locks plus rollback
// give the MySQL implementation.
type memOrderStore struct {
	mu          sync.Mutex
	state       memState
	failOnClear error
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{state: memState{
		products: map[string]entity.Product{},
		carts:    map[string][]entity.CartLine{},
		orders:   map[string]*entity.Order{},
	}}
}

func (m *memOrderStore) addProduct(p entity.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.products[p.ID] = p
}

func (m *memOrderStore) deleteProduct(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.state.products, id)
}

func (m *memOrderStore) addToCart(userID, productID string, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := m.state.carts[userID]
	m.state.carts[userID] = append(lines, entity.CartLine{
		ID:        fmt.Sprintf("line-%s-%d", userID, len(lines)+1),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	})
}

func (m *memOrderStore) stock(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.products[productID].StockQuantity
}

func (m *memOrderStore) cart(userID string) []entity.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]entity.CartLine(nil), m.state.carts[userID]...)
}

func (m *memOrderStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.orders)
}

func (m *memOrderStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.CheckoutTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(ctx, &memTx{state: &work, failOnClear: m.failOnClear}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memOrderStore) GetOrder(_ context.Context, orderID, userID string) (*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return findOrder(m.state, orderID, userID)
}

func (m *memOrderStore) ListOrders(_ context.Context, userID string) ([]*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orders := []*entity.Order{}
	for _, o := range m.state.orders {
		if o.UserID != nil && *o.UserID == userID {
			orders = append(orders, cloneOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (m *memOrderStore) SetStatus(_ context.Context, orderID string, from, to entity.OrderStatus, payment entity.PaymentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	o.PaymentStatus = payment
	return true, nil
}

func findOrder(s memState, orderID, userID string) (*entity.Order, error) {
	o, ok := s.orders[orderID]
	if !ok || o.UserID == nil || *o.UserID != userID {
		return nil, fmt.Errorf("order %s: %w", orderID, entity.ErrNotFound)
	}
	return cloneOrder(o), nil
}

type memTx struct {
	state       *memState
	failOnClear error
}

func (t *memTx) ListCartLines(_ context.Context, userID string) ([]entity.CartLine, error) {
	return append([]entity.CartLine(nil), t.state.carts[userID]...), nil
}

func (t *memTx) LockProducts(_ context.Context, productIDs []string) (map[string]*entity.Product, error) {
	products := map[string]*entity.Product{}
	for _, id := range productIDs {
		if p, ok := t.state.products[id]; ok {
			products[id] = &p
		}
	}
	return products, nil
}

func (t *memTx) DecrementStock(_ context.Context, productID string, quantity int) error {
	p, ok := t.state.products[productID]
	if !ok || p.StockQuantity < quantity {
		return &entity.InsufficientStockError{ProductID: productID, Requested: quantity, Available: p.StockQuantity}
	}
	p.StockQuantity -= quantity
	t.state.products[productID] = p
	return nil
}

func (t *memTx) IncrementStock(_ context.Context, productID string, quantity int) error {
	p, ok := t.state.products[productID]
	if !ok {
		return nil
	}
	p.StockQuantity += quantity
	t.state.products[productID] = p
	return nil
}

func (t *memTx) InsertOrder(_ context.Context, order *entity.Order) error {
	t.state.orders[order.ID] = cloneOrder(order)
	return nil
}

func (t *memTx) ClearCart(_ context.Context, userID string) error {
	if t.failOnClear != nil {
		return t.failOnClear
	}
	delete(t.state.carts, userID)
	return nil
}

func (t *memTx) GetOrderForUpdate(_ context.Context, orderID, userID string) (*entity.Order, error) {
	return findOrder(*t.state, orderID, userID)
}

func (t *memTx) UpdateOrderStatus(_ context.Context, orderID string, status entity.OrderStatus) error {
	o, ok := t.state.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, entity.ErrNotFound)
	}
	o.Status = status
	return nil
}

type fakeGateway struct {
	mu        sync.Mutex
	intents   map[string]*entity.IntentState
	created   []createdIntent
	createErr error
	getErr    error
	lookups   int
}

type createdIntent struct {
	amount   decimal.Decimal
	currency string
	metadata map[string]string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{intents: map[string]*entity.IntentState{}}
}

func (g *fakeGateway) CreateIntent(_ context.Context, amount decimal.Decimal, currency string, metadata map[string]string) (*entity.PaymentIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, createdIntent{amount: amount, currency: currency, metadata: metadata})
	id := fmt.Sprintf("pi_%d", len(g.created))
	g.intents[id] = &entity.IntentState{
		ID:       id,
		Status:   entity.IntentRequiresPayment,
		Amount:   amount,
		Currency: currency,
		OrderID:  metadata["order_id"],
	}
	return &entity.PaymentIntent{ClientSecret: id + "_secret", PaymentIntentID: id}, nil
}

func (g *fakeGateway) GetIntent(_ context.Context, intentID string) (*entity.IntentState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookups++
	if g.getErr != nil {
		return nil, g.getErr
	}
	state, ok := g.intents[intentID]
	if !ok {
		return nil, entity.NewUpstreamError("stripe", fmt.Errorf("no such payment_intent: %s", intentID))
	}
	copied := *state
	return &copied, nil
}

func (g *fakeGateway) setStatus(intentID string, status entity.IntentStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[intentID].Status = status
}

// charge rewrites what the gateway reports as collected for an intent.
func (g *fakeGateway) charge(intentID, amount, currency string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intents[intentID].Amount = decimal.RequireFromString(amount)
	g.intents[intentID].Currency = currency
}

type publishedEvent struct {
	orderID   string
	eventType string
	status    entity.OrderStatus
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *fakePublisher) PublishOrderEvent(_ context.Context, order *entity.Order, eventType string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{orderID: order.ID, eventType: eventType, status: order.Status})
	return p.err
}

func (p *fakePublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.eventType == eventType {
			n++
		}
	}
	return n
}

type fakeGuard struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{keys: map[string]bool{}}
}

func (g *fakeGuard) Claim(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.keys[key] {
		return false, nil
	}
	g.keys[key] = true
	return true, nil
}

func (g *fakeGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
	return nil
}

type fakeRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *fakeRecorder) ObserveCheckout(operation, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outcomes == nil {
		r.outcomes = map[string]int{}
	}
	r.outcomes[operation+"/"+outcome]++
}

type fakeCartStore struct {
	lines map[string]*entity.CartLine
	seq   int
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{lines: map[string]*entity.CartLine{}}
}

func (s *fakeCartStore) ListLines(_ context.Context, userID string) ([]entity.CartLine, error) {
	lines := []entity.CartLine{}
	for _, l := range s.lines {
		if l.UserID == userID {
			lines = append(lines, *l)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	return lines, nil
}

func (s *fakeCartStore) GetLine(_ context.Context, lineID, userID string) (*entity.CartLine, error) {
	l, ok := s.lines[lineID]
	if !ok || l.UserID != userID {
		return nil, fmt.Errorf("cart item %s: %w", lineID, entity.ErrNotFound)
	}
	copied := *l
	return &copied, nil
}

func (s *fakeCartStore) FindLine(_ context.Context, userID, productID string) (*entity.CartLine, error) {
	for _, l := range s.lines {
		if l.UserID == userID && l.ProductID == productID {
			copied := *l
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("cart item for product %s: %w", productID, entity.ErrNotFound)
}

func (s *fakeCartStore) UpsertLine(ctx context.Context, line *entity.CartLine) (*entity.CartLine, error) {
	if existing, err := s.FindLine(ctx, line.UserID, line.ProductID); err == nil {
		s.lines[existing.ID].Quantity += line.Quantity
		return s.FindLine(ctx, line.UserID, line.ProductID)
	}
	s.seq++
	copied := *line
	copied.ID = fmt.Sprintf("line-%02d", s.seq)
	s.lines[copied.ID] = &copied
	return s.FindLine(ctx, line.UserID, line.ProductID)
}

func (s *fakeCartStore) UpdateQuantity(_ context.Context, lineID, userID string, quantity int) error {
	l, ok := s.lines[lineID]
	if !ok || l.UserID != userID {
		return fmt.Errorf("cart item %s: %w", lineID, entity.ErrNotFound)
	}
	l.Quantity = quantity
	return nil
}

func (s *fakeCartStore) DeleteLine(_ context.Context, lineID, userID string) error {
	if l, ok := s.lines[lineID]; ok && l.UserID == userID {
		delete(s.lines, lineID)
	}
	return nil
}

func (s *fakeCartStore) Clear(_ context.Context, userID string) error {
	for id, l := range s.lines {
		if l.UserID == userID {
			delete(s.lines, id)
		}
	}
	return nil
}

func (s *fakeCartStore) CountItems(_ context.Context, userID string) (int, error) {
	n := 0
	for _, l := range s.lines {
		if l.UserID == userID {
			n += l.Quantity
		}
	}
	return n, nil
}

type fakeProductStore struct {
	mu       sync.Mutex
	products map[string]*entity.Product
	gets     int
	lastList entity.ProductFilter
	created  []*entity.Product
}

func newFakeProductStore(products ...*entity.Product) *fakeProductStore {
	s := &fakeProductStore{products: map[string]*entity.Product{}}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *fakeProductStore) GetProduct(_ context.Context, id string) (*entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, entity.ErrNotFound)
	}
	copied := *p
	return &copied, nil
}

func (s *fakeProductStore) ListProducts(_ context.Context, filter entity.ProductFilter) ([]*entity.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastList = filter
	products := []*entity.Product{}
	for _, p := range s.products {
		if p.IsActive && (!filter.FeaturedOnly || p.IsFeatured) {
			products = append(products, p)
		}
	}
	return products, nil
}

func (s *fakeProductStore) CreateProduct(_ context.Context, product *entity.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, product)
	s.products[product.ID] = product
	return nil
}

func (s *fakeProductStore) UpdateProduct(_ context.Context, product *entity.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[product.ID]; !ok {
		return fmt.Errorf("product %s: %w", product.ID, entity.ErrNotFound)
	}
	copied := *product
	s.products[product.ID] = &copied
	return nil
}

func (s *fakeProductStore) DeactivateProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id, entity.ErrNotFound)
	}
	p.IsActive = false
	return nil
}

func (s *fakeProductStore) ListCategories(context.Context) ([]*entity.Category, error) {
	return []*entity.Category{{ID: "c1", Name: "Tires", IsActive: true}}, nil
}

type fakeStorage struct {
	uploaded map[string]string
	deleted  []string
	failKey  string
}

func (s *fakeStorage) Upload(_ context.Context, key, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if s.failKey != "" && len(data) > 0 && string(data) == s.failKey {
		return "", entity.NewUpstreamError("s3", fmt.Errorf("put object failed"))
	}
	if s.uploaded == nil {
		s.uploaded = map[string]string{}
	}
	s.uploaded[key] = contentType
	return "https://bucket.example/" + key, nil
}

func (s *fakeStorage) Delete(_ context.Context, url string) error {
	s.deleted = append(s.deleted, url)
	return nil
}
