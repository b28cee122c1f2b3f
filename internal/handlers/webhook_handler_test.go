package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sipharbor/sms-platform/internal/models"
	"github.com/sipharbor/sms-platform/internal/services"
	"github.com/sipharbor/sms-platform/pkg/smsgateway"
	"github.com/sipharbor/sms-platform/pkg/webhooktoken"
)

// storeRecorder satisfies the message repository with no-ops, recording
// only the delivery reports it receives.
type storeRecorder struct {
	reports []*smsgateway.DeliveryReport
}

func (r *storeRecorder) Create(ctx context.Context, message *models.Message) error { return nil }
func (r *storeRecorder) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	return nil, nil
}
func (r *storeRecorder) FindByUserID(ctx context.Context, userID primitive.ObjectID, page, limit int) ([]*models.Message, error) {
	return nil, nil
}
func (r *storeRecorder) FindByCampaignID(ctx context.Context, campaignID primitive.ObjectID, page, limit int) ([]*models.Message, error) {
	return nil, nil
}
func (r *storeRecorder) Update(ctx context.Context, message *models.Message) error { return nil }
func (r *storeRecorder) ApplyDeliveryReport(ctx context.Context, report *smsgateway.DeliveryReport) error {
	r.reports = append(r.reports, report)
	return nil
}
func (r *storeRecorder) UsageSince(ctx context.Context, userID primitive.ObjectID, since time.Time, messageType string) (*models.UsageTotals, error) {
	return &models.UsageTotals{}, nil
}
func (r *storeRecorder) CampaignTotals(ctx context.Context, campaignID primitive.ObjectID) (*models.UsageTotals, error) {
	return &models.UsageTotals{}, nil
}
func (r *storeRecorder) Count(ctx context.Context) (int64, error) { return 0, nil }

func newWebhookRouter(t *testing.T, store *storeRecorder, tokens *webhooktoken.Service) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	smsService := services.NewSmsService(store, nil, nil, "standard")
	handler := NewWebhookHandler(smsService, tokens)

	router := gin.New()
	router.POST("/sms/webhook/delivery", handler.ReceiveDeliveryReport)
	return router
}

func postReport(t *testing.T, router *gin.Engine, report smsgateway.DeliveryReport, decorate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(report)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/sms/webhook/delivery", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if decorate != nil {
		decorate(req)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestReceiveDeliveryReport(t *testing.T) {
	tokens := webhooktoken.NewService("secret", time.Hour)
	store := &storeRecorder{}
	router := newWebhookRouter(t, store, tokens)

	token, err := tokens.Sign("sim-standard")
	require.NoError(t, err)

	w := postReport(t, router, smsgateway.DeliveryReport{
		MessageID: "65f000000000000000000001",
		Status:    smsgateway.StatusDelivered,
	}, func(req *http.Request) {
		req.Header.Set("X-Webhook-Source", "simulation")
		req.Header.Set("Authorization", "Bearer "+token)
	})

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.reports, 1)
	assert.Equal(t, "65f000000000000000000001", store.reports[0].MessageID)
	assert.False(t, store.reports[0].Timestamp.IsZero())
}

func TestReceiveDeliveryReportRejectsMissingSourceHeader(t *testing.T) {
	tokens := webhooktoken.NewService("secret", time.Hour)
	store := &storeRecorder{}
	router := newWebhookRouter(t, store, tokens)

	w := postReport(t, router, smsgateway.DeliveryReport{
		MessageID: "65f000000000000000000001",
		Status:    smsgateway.StatusDelivered,
	}, nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, store.reports)
}

func TestReceiveDeliveryReportRejectsBadToken(t *testing.T) {
	tokens := webhooktoken.NewService("secret", time.Hour)
	store := &storeRecorder{}
	router := newWebhookRouter(t, store, tokens)

	forged, err := webhooktoken.NewService("other-secret", time.Hour).Sign("sim-standard")
	require.NoError(t, err)

	w := postReport(t, router, smsgateway.DeliveryReport{
		MessageID: "65f000000000000000000001",
		Status:    smsgateway.StatusDelivered,
	}, func(req *http.Request) {
		req.Header.Set("X-Webhook-Source", "simulation")
		req.Header.Set("Authorization", "Bearer "+forged)
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, store.reports)
}
