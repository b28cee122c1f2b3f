package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sipharbor/sms-platform/internal/models"
	"github.com/sipharbor/sms-platform/pkg/smsgateway"
)

var errNotFound = errors.New("not found")

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*models.Message
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message.ID.IsZero() {
		message.ID = primitive.NewObjectID()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	message.UpdatedAt = message.CreatedAt
	r.messages = append(r.messages, message)
	return nil
}

func (r *fakeMessageRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, errNotFound
}

func (r *fakeMessageRepo) FindByUserID(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Message
	for _, m := range r.messages {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) FindByCampaignID(ctx context.Context, campaignID primitive.ObjectID, page, limit int) ([]*models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Message
	for _, m := range r.messages {
		if m.CampaignID == campaignID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) Update(ctx context.Context, message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, m := range r.messages {
		if m.ID == message.ID {
			r.messages[i] = message
			return nil
		}
	}
	return errNotFound
}

func (r *fakeMessageRepo) ApplyDeliveryReport(ctx context.Context, report *smsgateway.DeliveryReport) error {
	parts := strings.Split(report.MessageID, ":")
	id, err := primitive.ObjectIDFromHex(parts[len(parts)-1])
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.messages {
		if m.ID != id {
			continue
		}
		if report.Status == smsgateway.StatusDelivered {
			m.Status = models.MessageStatusDelivered
			m.DeliveredAt = report.Timestamp
		} else {
			m.Status = models.MessageStatusUndelivered
			m.FailedAt = report.Timestamp
			m.ErrorMessage = report.ErrorMessage
		}
		return nil
	}
	return errNotFound
}

func billable(status string) bool {
	return status == models.MessageStatusSent || status == models.MessageStatusDelivered
}

func (r *fakeMessageRepo) UsageSince(ctx context.Context, userID primitive.ObjectID, since time.Time, messageType string) (*models.UsageTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := &models.UsageTotals{}
	for _, m := range r.messages {
		if m.UserID == userID && m.MessageType == messageType && billable(m.Status) && m.CreatedAt.After(since) {
			totals.TotalCost += m.Cost
			totals.TotalMessages++
		}
	}
	return totals, nil
}

func (r *fakeMessageRepo) CampaignTotals(ctx context.Context, campaignID primitive.ObjectID) (*models.UsageTotals, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	totals := &models.UsageTotals{}
	for _, m := range r.messages {
		if m.CampaignID == campaignID && billable(m.Status) {
			totals.TotalCost += m.Cost
			totals.TotalMessages++
		}
	}
	return totals, nil
}

func (r *fakeMessageRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.messages)), nil
}

type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns []*models.Campaign
}

func (r *fakeCampaignRepo) Create(ctx context.Context, campaign *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if campaign.ID.IsZero() {
		campaign.ID = primitive.NewObjectID()
	}
	campaign.CreatedAt = time.Now()
	r.campaigns = append(r.campaigns, campaign)
	return nil
}

func (r *fakeCampaignRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.campaigns {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, errNotFound
}

func (r *fakeCampaignRepo) FindByUserID(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Campaign
	for _, c := range r.campaigns {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCampaignRepo) Update(ctx context.Context, campaign *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.campaigns {
		if c.ID == campaign.ID {
			r.campaigns[i] = campaign
			return nil
		}
	}
	return errNotFound
}

func (r *fakeCampaignRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.campaigns)), nil
}

type fakeBillingRecordRepo struct {
	mu      sync.Mutex
	records []*models.BillingRecord
}

func (r *fakeBillingRecordRepo) Create(ctx context.Context, record *models.BillingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}
	record.CreatedAt = time.Now()
	r.records = append(r.records, record)
	return nil
}

func (r *fakeBillingRecordRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.BillingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, errNotFound
}

func (r *fakeBillingRecordRepo) FindByUserID(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*models.BillingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.BillingRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeBillingRecordRepo) FindLastSettled(ctx context.Context, userID primitive.ObjectID, billingType string) (*models.BillingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *models.BillingRecord
	for _, rec := range r.records {
		if rec.UserID != userID || rec.BillingType != billingType {
			continue
		}
		if rec.Status != models.BillingStatusPaid && rec.Status != models.BillingStatusCancelled {
			continue
		}
		if last == nil || rec.BillingPeriodEnd.After(last.BillingPeriodEnd) {
			last = rec
		}
	}
	return last, nil
}

func (r *fakeBillingRecordRepo) HasPending(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.UserID == userID && rec.Status == models.BillingStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBillingRecordRepo) ExistsForCampaign(ctx context.Context, campaignID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.CampaignID == campaignID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBillingRecordRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			rec.Status = status
			return nil
		}
	}
	return errNotFound
}

type fakeSettingsRepo struct {
	mu      sync.Mutex
	perUser map[primitive.ObjectID]*models.BillingSettings
	global  *models.BillingSettings
}

func (r *fakeSettingsRepo) FindByUserID(ctx context.Context, userID primitive.ObjectID) (*models.BillingSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.perUser[userID], nil
}

func (r *fakeSettingsRepo) FindGlobal(ctx context.Context) (*models.BillingSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.global, nil
}

func (r *fakeSettingsRepo) Upsert(ctx context.Context, settings *models.BillingSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if settings.UserID.IsZero() {
		r.global = settings
		return nil
	}
	if r.perUser == nil {
		r.perUser = make(map[primitive.ObjectID]*models.BillingSettings)
	}
	r.perUser[settings.UserID] = settings
	return nil
}

// fakeGateway replays scripted send results in call order.
type fakeGateway struct {
	mu       sync.Mutex
	results  []*smsgateway.SendResult
	err      error
	requests []smsgateway.SendRequest
	cleared  []string
}

func (g *fakeGateway) SendSMS(ctx context.Context, req smsgateway.SendRequest) (*smsgateway.SendResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	res := g.results[(len(g.requests)-1)%len(g.results)]
	return res, nil
}

func (g *fakeGateway) BulkSend(ctx context.Context, messages []smsgateway.SendRequest, profile string) ([]*smsgateway.SendResult, error) {
	if g.err != nil {
		return nil, g.err
	}
	out := make([]*smsgateway.SendResult, len(messages))
	for i, req := range messages {
		res, err := g.SendSMS(ctx, req)
		if err != nil {
			return nil, err
		}
		out[i] = res
	}
	return out, nil
}

func (g *fakeGateway) ClearDeliveryReportTracking(scope string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cleared = append(g.cleared, scope)
	return 0
}
