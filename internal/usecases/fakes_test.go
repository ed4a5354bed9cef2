package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"whatsapp_crm/internal/entities"
	"whatsapp_crm/internal/repository"
)

type fakeChats struct {
	mu      sync.Mutex
	byPhone map[string]*entities.Chat
	byID    map[string]*entities.Chat
	err     error
}

func newFakeChats() *fakeChats {
	return &fakeChats{byPhone: map[string]*entities.Chat{}, byID: map[string]*entities.Chat{}}
}

func (f *fakeChats) UpsertFromInbound(_ context.Context, in entities.ChatUpsert) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	at := in.At
	name := in.ContactName
	if c, ok := f.byPhone[in.Phone]; ok {
		c.LastMessageAt = &at
		c.ContactName = &name
		return c.ID, nil
	}
	instance := in.InstanceID
	c := &entities.Chat{
		ID:            fmt.Sprintf("00000000-0000-0000-0000-%012d", len(f.byID)+1),
		WhatsAppPhone: in.Phone,
		ContactName:   &name,
		Status:        entities.ChatActive,
		InstanceID:    &instance,
		LastMessageAt: &at,
		CreatedAt:     at,
	}
	f.byPhone[in.Phone] = c
	f.byID[c.ID] = c
	return c.ID, nil
}

func (f *fakeChats) add(c *entities.Chat) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[c.ID] = c
	f.byPhone[c.WhatsAppPhone] = c
}

func (f *fakeChats) GetByID(_ context.Context, id string) (*entities.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeChats) ListWithLastMessage(_ context.Context) ([]entities.ChatWithLastMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.ChatWithLastMessage
	for _, c := range f.byID {
		out = append(out, entities.ChatWithLastMessage{Chat: *c})
	}
	return out, nil
}

func (f *fakeChats) UpdateStatus(_ context.Context, id string, status entities.ChatStatus) (*entities.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.Status = status
	cp := *c
	return &cp, nil
}

func (f *fakeChats) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeMessages struct {
	mu    sync.Mutex
	rows  []entities.Message
	seen  map[string]bool
	err   error
	calls int
}

func newFakeMessages() *fakeMessages {
	return &fakeMessages{seen: map[string]bool{}}
}

func (f *fakeMessages) Insert(_ context.Context, m *entities.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return f.err
	}
	if m.WhatsAppMessageID != nil {
		if f.seen[*m.WhatsAppMessageID] {
			return repository.ErrDuplicate
		}
		f.seen[*m.WhatsAppMessageID] = true
	}
	if m.MessageType == "" {
		m.MessageType = entities.MessageText
	}
	m.ID = fmt.Sprintf("msg-%d", len(f.rows)+1)
	m.CreatedAt = time.Now()
	f.rows = append(f.rows, *m)
	return nil
}

func (f *fakeMessages) ListByChat(_ context.Context, chatID string) ([]entities.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Message
	for _, m := range f.rows {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMessages) all() []entities.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entities.Message(nil), f.rows...)
}

type fakeQuotes struct {
	mu     sync.Mutex
	quotes map[string]*entities.Quote
	err    error
}

func newFakeQuotes() *fakeQuotes {
	return &fakeQuotes{quotes: map[string]*entities.Quote{}}
}

func (f *fakeQuotes) CreateWithItems(_ context.Context, q *entities.Quote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	q.ID = fmt.Sprintf("quote-%d", len(f.quotes)+1)
	for i := range q.Items {
		q.Items[i].QuoteID = q.ID
	}
	cp := *q
	f.quotes[q.ID] = &cp
	return nil
}

func (f *fakeQuotes) List(_ context.Context, status entities.QuoteStatus) ([]entities.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Quote
	for _, q := range f.quotes {
		if status == "" || q.Status == status {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *fakeQuotes) GetByID(_ context.Context, id string) (*entities.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *fakeQuotes) UpdateStatus(_ context.Context, id string, status entities.QuoteStatus, at time.Time) (*entities.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quotes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	q.Status = status
	switch status {
	case entities.QuoteSent:
		q.SentAt = &at
	case entities.QuoteAccepted:
		q.AcceptedAt = &at
	case entities.QuoteRejected:
		q.RejectedAt = &at
	}
	cp := *q
	return &cp, nil
}

type fakeProducts struct {
	bySKU map[string]entities.Product
}

func (f *fakeProducts) ListActive(_ context.Context, filter entities.ProductFilter) ([]entities.Product, error) {
	var out []entities.Product
	for _, p := range f.bySKU {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeProducts) GetBySKU(_ context.Context, sku string) (*entities.Product, error) {
	p, ok := f.bySKU[sku]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

type gatewayLog struct {
	instanceID string
	eventType  string
	status     string
	errText    string
}

type fakeLogs struct {
	mu         sync.Mutex
	gateway    map[string]*gatewayLog
	order      []string
	automation []entities.WebhookLog
	createErr  error
}

func newFakeLogs() *fakeLogs {
	return &fakeLogs{gateway: map[string]*gatewayLog{}}
}

func (f *fakeLogs) CreateGatewayLog(_ context.Context, instanceID, eventType string, _ []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	id := fmt.Sprintf("wh-%d", len(f.order)+1)
	f.gateway[id] = &gatewayLog{instanceID: instanceID, eventType: eventType, status: entities.WebhookProcessing}
	f.order = append(f.order, id)
	return id, nil
}

func (f *fakeLogs) FinishGatewayLog(_ context.Context, id, status, errText string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.gateway[id]
	if !ok {
		return errors.New("unknown log")
	}
	l.status = status
	l.errText = errText
	return nil
}

func (f *fakeLogs) InsertLog(_ context.Context, l *entities.WebhookLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.automation = append(f.automation, *l)
	return nil
}

func (f *fakeLogs) last() *gatewayLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.order) == 0 {
		return nil
	}
	return f.gateway[f.order[len(f.order)-1]]
}

func (f *fakeLogs) automationEvents() []entities.WebhookLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entities.WebhookLog(nil), f.automation...)
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []entities.ReplyJob
	err  error
}

func (f *fakeQueue) Enqueue(_ context.Context, job entities.ReplyJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeQueue) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

type sentText struct {
	instance, number, text string
}

type fakeGateway struct {
	mu         sync.Mutex
	texts      []sentText
	media      []entities.MediaMessage
	webhooks   []string
	sendErr    error
	webhookErr error
	fetchErr   error
	createErr  error
	qr         *entities.QRCode
	status     *entities.InstanceStatus
	nextID     int
}

func (f *fakeGateway) CreateInstance(_ context.Context, name string) (*entities.EvolutionInstance, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	out := &entities.EvolutionInstance{}
	out.Instance.InstanceName = name
	out.Instance.InstanceID = "inst-" + name
	out.Hash.APIKey = "key-" + name
	return out, nil
}

func (f *fakeGateway) ConnectInstance(_ context.Context, _ string) (*entities.QRCode, error) {
	if f.qr == nil {
		return &entities.QRCode{}, nil
	}
	return f.qr, nil
}

func (f *fakeGateway) DeleteInstance(_ context.Context, _ string) error { return nil }

func (f *fakeGateway) FetchInstanceStatus(_ context.Context, _ string) (*entities.InstanceStatus, error) {
	return f.status, nil
}

func (f *fakeGateway) FetchInstances(_ context.Context) error { return f.fetchErr }

func (f *fakeGateway) SetWebhook(_ context.Context, name, url string, _ bool, _ []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.webhooks = append(f.webhooks, name+"|"+url)
	return f.webhookErr
}

func (f *fakeGateway) SendTextMessage(_ context.Context, instance, number, text string) (*entities.SendMessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.texts = append(f.texts, sentText{instance, number, text})
	f.nextID++
	out := &entities.SendMessageResponse{}
	out.Key.ID = fmt.Sprintf("WAID-%d", f.nextID)
	return out, nil
}

func (f *fakeGateway) SendMediaMessage(_ context.Context, _ string, _ string, media entities.MediaMessage) (*entities.SendMessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.media = append(f.media, media)
	f.nextID++
	out := &entities.SendMessageResponse{}
	out.Key.ID = fmt.Sprintf("WAID-%d", f.nextID)
	return out, nil
}

type fakeInstances struct {
	rows []entities.Instance
}

func (f *fakeInstances) Create(_ context.Context, in *entities.Instance) error {
	in.ID = fmt.Sprintf("i-%d", len(f.rows)+1)
	f.rows = append(f.rows, *in)
	return nil
}

func (f *fakeInstances) List(_ context.Context) ([]entities.Instance, error) {
	return f.rows, nil
}

type fakeNotifier struct {
	payloads []any
	err      error
}

func (f *fakeNotifier) Notify(_ context.Context, payload any) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

type fakeAlerter struct {
	quotes []*entities.Quote
}

func (f *fakeAlerter) QuoteCreated(_ context.Context, q *entities.Quote) error {
	f.quotes = append(f.quotes, q)
	return nil
}
