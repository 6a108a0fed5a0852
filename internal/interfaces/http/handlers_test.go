package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/acampov/mealpass/internal/application/port"
	"github.com/acampov/mealpass/internal/application/service"
	"github.com/acampov/mealpass/internal/domain/entity"
	"github.com/acampov/mealpass/internal/infrastructure/persistence/repository"
	sqlitedb "github.com/acampov/mealpass/internal/infrastructure/persistence/sqlite"
	"github.com/acampov/mealpass/internal/infrastructure/qr"
	"github.com/acampov/mealpass/migrations"
	"github.com/acampov/mealpass/pkg/database"
)

type testLogger struct{}

func (testLogger) Info(msg string, keysAndValues ...interface{})  {}
func (testLogger) Error(msg string, keysAndValues ...interface{}) {}

type stubSink struct{}

func (stubSink) SendVouchers(ctx context.Context, identity entity.AttendeeIdentity, vouchers []*entity.Voucher) port.NotificationStatus {
	return port.NotificationSkipped
}

// newTestServer wires real services over a temporary SQLite store so handler
// tests cover the full request path.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	zlog := zap.NewNop()
	db, err := database.New(database.Config{
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}, zlog)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.NewMigrator(db, zlog).Run(migrations.FS))

	txManager := sqlitedb.NewDB(db.DB, zlog)
	voucherRepo := repository.NewVoucherRepository(db.DB, zlog)
	attendeeRepo := repository.NewAttendeeRepository(db.DB, zlog)
	renderer := qr.NewRenderer(128)

	logger := testLogger{}
	attendeeService := service.NewAttendeeService(attendeeRepo, logger)
	issuanceService := service.NewIssuanceService(voucherRepo, txManager, stubSink{}, logger)
	redemptionService := service.NewRedemptionService(voucherRepo, logger)
	batchService := service.NewBatchIssuanceService(voucherRepo, issuanceService, logger)

	handlers := NewHandlers(
		attendeeService,
		issuanceService,
		redemptionService,
		batchService,
		voucherRepo,
		renderer,
		service.NewLocalAttendeeSource(attendeeRepo),
		nil,
		logger,
	)

	return NewServer(DefaultServerConfig(), handlers, logger)
}

func doJSON(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func createAttendee(t *testing.T, server *Server, externalID, email string) {
	t.Helper()
	w := doJSON(t, server, http.MethodPost, "/api/attendees", gin.H{
		"name":        "Ana Gomez",
		"external_id": externalID,
		"email":       email,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestHealthCheck(t *testing.T) {
	server := newTestServer(t)

	w := doJSON(t, server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestAttendeeEndpoints(t *testing.T) {
	server := newTestServer(t)

	t.Run("create", func(t *testing.T) {
		createAttendee(t, server, "CC-1001", "ana@example.com")
	})

	t.Run("create duplicate conflicts", func(t *testing.T) {
		w := doJSON(t, server, http.MethodPost, "/api/attendees", gin.H{
			"name":        "Ana Gomez",
			"external_id": "CC-1001",
			"email":       "ana@example.com",
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("create without email rejected", func(t *testing.T) {
		w := doJSON(t, server, http.MethodPost, "/api/attendees", gin.H{
			"name":        "Ana Gomez",
			"external_id": "CC-5001",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("get", func(t *testing.T) {
		w := doJSON(t, server, http.MethodGet, "/api/attendees/CC-1001", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, server, http.MethodGet, "/api/attendees/CC-9999", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("update", func(t *testing.T) {
		w := doJSON(t, server, http.MethodPut, "/api/attendees/CC-1001", gin.H{
			"name":   "Ana Maria Gomez",
			"email":  "ana@example.com",
			"active": false,
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("delete", func(t *testing.T) {
		w := doJSON(t, server, http.MethodDelete, "/api/attendees/CC-1001", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = doJSON(t, server, http.MethodDelete, "/api/attendees/CC-1001", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestIssueAndRedeemFlow(t *testing.T) {
	server := newTestServer(t)
	createAttendee(t, server, "CC-1001", "ana@example.com")

	// Issue
	w := doJSON(t, server, http.MethodPost, "/api/attendees/CC-1001/vouchers", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var issued struct {
		Success bool `json:"success"`
		Data    struct {
			Vouchers     []*entity.Voucher `json:"vouchers"`
			Notification string            `json:"notification"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))
	require.Len(t, issued.Data.Vouchers, 3)
	assert.Equal(t, "skipped", issued.Data.Notification)

	// Re-issue conflicts
	w = doJSON(t, server, http.MethodPost, "/api/attendees/CC-1001/vouchers", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Unknown attendee
	w = doJSON(t, server, http.MethodPost, "/api/attendees/CC-9999/vouchers", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	token := issued.Data.Vouchers[0].Token.String()

	// Redeem
	w = doJSON(t, server, http.MethodPost, "/api/vouchers/redeem", gin.H{"code": token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Second redemption conflicts but reports the original outcome
	w = doJSON(t, server, http.MethodPost, "/api/vouchers/redeem", gin.H{"code": token})
	assert.Equal(t, http.StatusConflict, w.Code)
	resp := decodeResponse(t, w)
	assert.False(t, resp.Success)
	assert.NotNil(t, resp.Data)

	// Malformed and unknown codes are indistinguishable to the caller
	w = doJSON(t, server, http.MethodPost, "/api/vouchers/redeem", gin.H{"code": "not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, server, http.MethodPost, "/api/vouchers/redeem",
		gin.H{"code": "00000000-0000-4000-8000-000000000000"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInactiveAttendeeCannotBeIssued(t *testing.T) {
	server := newTestServer(t)
	createAttendee(t, server, "CC-1001", "ana@example.com")

	w := doJSON(t, server, http.MethodPut, "/api/attendees/CC-1001", gin.H{
		"name":   "Ana Gomez",
		"email":  "ana@example.com",
		"active": false,
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, server, http.MethodPost, "/api/attendees/CC-1001/vouchers", nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestBulkIssue(t *testing.T) {
	server := newTestServer(t)
	createAttendee(t, server, "CC-1001", "ana@example.com")
	createAttendee(t, server, "CC-2001", "carlos@example.com")

	w := doJSON(t, server, http.MethodPost, "/api/vouchers/bulk", gin.H{"source": "local"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Success bool                `json:"success"`
		Data    service.BatchReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Data.Issued)
	assert.Equal(t, 6, resp.Data.VouchersCreated)

	// External roster is not configured in tests
	w = doJSON(t, server, http.MethodPost, "/api/vouchers/bulk", gin.H{"source": "external"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(t, server, http.MethodPost, "/api/vouchers/bulk", gin.H{"source": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVoucherImageEndpoints(t *testing.T) {
	server := newTestServer(t)
	createAttendee(t, server, "CC-1001", "ana@example.com")

	w := doJSON(t, server, http.MethodPost, "/api/attendees/CC-1001/vouchers", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var issued struct {
		Data struct {
			Vouchers []*entity.Voucher `json:"vouchers"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))
	token := issued.Data.Vouchers[0].Token.String()

	t.Run("png image", func(t *testing.T) {
		w := doJSON(t, server, http.MethodGet, "/api/vouchers/"+token+"/image", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		assert.NotEmpty(t, w.Body.Bytes())
	})

	t.Run("base64 payload", func(t *testing.T) {
		w := doJSON(t, server, http.MethodGet, "/api/vouchers/"+token+"/base64", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "data:image/png;base64,")
	})

	t.Run("unknown token", func(t *testing.T) {
		w := doJSON(t, server, http.MethodGet,
			"/api/vouchers/00000000-0000-4000-8000-000000000000/image", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed token", func(t *testing.T) {
		w := doJSON(t, server, http.MethodGet, "/api/vouchers/nope/image", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestVoucherReport(t *testing.T) {
	server := newTestServer(t)
	createAttendee(t, server, "CC-1001", "ana@example.com")

	w := doJSON(t, server, http.MethodPost, "/api/attendees/CC-1001/vouchers", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, server, http.MethodGet, "/api/reports/vouchers.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "vouchers_")
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Body.Bytes())
}
