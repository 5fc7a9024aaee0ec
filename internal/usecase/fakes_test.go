package usecase

import (
	"context"
	"strings"

	"inventory-agent/internal/domain"
)

// fakePendingStore is an in-memory PendingStore mirroring the
// repository's merge semantics: blank field values never overwrite,
// incoming items complete a matching incomplete line or append.
type fakePendingStore struct {
	ops         map[string]*domain.PendingOperation
	getErr      error
	upsertErr   error
	deleteErr   error
	deleteCalls int
}

func newFakePendingStore() *fakePendingStore {
	return &fakePendingStore{ops: map[string]*domain.PendingOperation{}}
}

func pendingKey(correspondent string, kind domain.OperationKind) string {
	return correspondent + "|" + string(kind)
}

func (f *fakePendingStore) Get(_ context.Context, correspondent string, kind domain.OperationKind) (*domain.PendingOperation, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	op, ok := f.ops[pendingKey(correspondent, kind)]
	if !ok {
		return nil, nil
	}
	cp := *op
	return &cp, nil
}

func (f *fakePendingStore) Upsert(_ context.Context, correspondent string, kind domain.OperationKind, update domain.FieldUpdate) (domain.PendingOperation, error) {
	if f.upsertErr != nil {
		return domain.PendingOperation{}, f.upsertErr
	}
	key := pendingKey(correspondent, kind)
	op, ok := f.ops[key]
	if !ok {
		op = &domain.PendingOperation{Correspondent: correspondent, Kind: kind, Fields: map[string]string{}}
		f.ops[key] = op
	}
	for name, value := range update.Fields {
		if strings.TrimSpace(value) == "" {
			continue
		}
		op.Fields[name] = value
	}
	for _, in := range update.Items {
		merged := false
		for i := range op.Items {
			if !strings.EqualFold(op.Items[i].Name, in.Name) || op.Items[i].Complete() {
				continue
			}
			if op.Items[i].Quantity == nil && in.Quantity != nil {
				op.Items[i].Quantity = in.Quantity
			}
			if op.Items[i].UnitPrice == nil && in.UnitPrice != nil {
				op.Items[i].UnitPrice = in.UnitPrice
			}
			merged = true
			break
		}
		if !merged {
			op.Items = append(op.Items, in)
		}
	}
	op.Version++
	cp := *op
	return cp, nil
}

func (f *fakePendingStore) Delete(_ context.Context, correspondent string, kind domain.OperationKind) error {
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.ops, pendingKey(correspondent, kind))
	return nil
}

// fakeRecordStore implements RecordStore with function fields; unset
// lookups report not found and unset writes succeed.
type fakeRecordStore struct {
	findCustomer   func(string) (*domain.Customer, error)
	findVendor     func(string) (*domain.Vendor, error)
	findItem       func(string) (*domain.Item, error)
	createSale     func(domain.Sale) error
	createPurchase func(domain.Purchase) error
	createCustomer func(domain.Customer) error
	listVendors    func() ([]domain.Vendor, error)
	listCustomers  func() ([]domain.Customer, error)
	lowStock       func(int) ([]domain.Item, error)

	sales     []domain.Sale
	purchases []domain.Purchase
	customers []domain.Customer
}

func (f *fakeRecordStore) FindCustomer(_ context.Context, fragment string) (*domain.Customer, error) {
	if f.findCustomer == nil {
		return nil, nil
	}
	return f.findCustomer(fragment)
}

func (f *fakeRecordStore) FindVendor(_ context.Context, fragment string) (*domain.Vendor, error) {
	if f.findVendor == nil {
		return nil, nil
	}
	return f.findVendor(fragment)
}

func (f *fakeRecordStore) FindItem(_ context.Context, fragment string) (*domain.Item, error) {
	if f.findItem == nil {
		return nil, nil
	}
	return f.findItem(fragment)
}

func (f *fakeRecordStore) CreateSale(_ context.Context, sale domain.Sale) error {
	if f.createSale != nil {
		if err := f.createSale(sale); err != nil {
			return err
		}
	}
	f.sales = append(f.sales, sale)
	return nil
}

func (f *fakeRecordStore) CreatePurchase(_ context.Context, p domain.Purchase) error {
	if f.createPurchase != nil {
		if err := f.createPurchase(p); err != nil {
			return err
		}
	}
	f.purchases = append(f.purchases, p)
	return nil
}

func (f *fakeRecordStore) CreateCustomer(_ context.Context, c domain.Customer) error {
	if f.createCustomer != nil {
		if err := f.createCustomer(c); err != nil {
			return err
		}
	}
	f.customers = append(f.customers, c)
	return nil
}

func (f *fakeRecordStore) ListVendors(_ context.Context) ([]domain.Vendor, error) {
	if f.listVendors == nil {
		return nil, nil
	}
	return f.listVendors()
}

func (f *fakeRecordStore) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	if f.listCustomers == nil {
		return nil, nil
	}
	return f.listCustomers()
}

func (f *fakeRecordStore) ListLowStockItems(_ context.Context, threshold int) ([]domain.Item, error) {
	if f.lowStock == nil {
		return nil, nil
	}
	return f.lowStock(threshold)
}

// fakeFinalizer records the operation it was handed.
type fakeFinalizer struct {
	confirmation string
	err          error
	ops          []domain.PendingOperation
}

func (f *fakeFinalizer) Finalize(_ context.Context, op domain.PendingOperation) (string, error) {
	f.ops = append(f.ops, op)
	if f.err != nil {
		return "", f.err
	}
	return f.confirmation, nil
}

// fakeLLM replays scripted chat replies in order.
type fakeLLM struct {
	replies  []domain.ChatMessage
	err      error
	requests [][]domain.ChatMessage
	models   []string
	tools    [][]domain.ToolSpec
}

func (f *fakeLLM) Chat(_ context.Context, model string, messages []domain.ChatMessage, tools []domain.ToolSpec) (domain.ChatMessage, error) {
	f.requests = append(f.requests, messages)
	f.models = append(f.models, model)
	f.tools = append(f.tools, tools)
	if f.err != nil {
		return domain.ChatMessage{}, f.err
	}
	if len(f.replies) == 0 {
		return domain.ChatMessage{Role: "assistant", Content: "ok"}, nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

// fakeParams is a fixed-value ParamGetter.
type fakeParams struct {
	values map[string]string
	err    error
	calls  int
}

func (f *fakeParams) GetParameter(_ context.Context, name string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.values[name], nil
}

// fakeDelivery records sent messages.
type fakeDelivery struct {
	err    error
	sent   []string
	phones []string
}

func (f *fakeDelivery) SendMessage(_ context.Context, phone string, _ bool, text string) error {
	f.phones = append(f.phones, phone)
	f.sent = append(f.sent, text)
	return f.err
}

// fakeConversations records appended turns.
type fakeConversations struct {
	err     error
	inbound []string
	replies []string
}

func (f *fakeConversations) AppendTurn(_ context.Context, _, inbound, reply string) error {
	f.inbound = append(f.inbound, inbound)
	f.replies = append(f.replies, reply)
	return f.err
}

// fakeAgent is a scripted ReasoningEngine.
type fakeAgent struct {
	reply string
	err   error
	calls int
}

func (f *fakeAgent) Respond(_ context.Context, _, _ string) (string, error) {
	f.calls++
	return f.reply, f.err
}
