package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookon-app/bookon/internal/api/dto"
	"github.com/bookon-app/bookon/internal/model"
	bkg "github.com/bookon-app/bookon/internal/model/booking"
	"github.com/bookon-app/bookon/internal/model/parent"
	"github.com/bookon-app/bookon/internal/policy"
	"github.com/bookon-app/bookon/internal/repo"
	"github.com/bookon-app/bookon/internal/service"
	"github.com/bookon-app/bookon/internal/serviceerrs"
	"github.com/bookon-app/bookon/internal/utils/auth"
)

type fakeParentRepo struct {
	byLogin map[string]parent.Parent
}

func (f *fakeParentRepo) Create(_ context.Context, p *parent.Parent) error {
	if _, ok := f.byLogin[p.LoginHash]; ok {
		return serviceerrs.ErrLoginTaken
	}
	f.byLogin[p.LoginHash] = *p
	return nil
}

func (f *fakeParentRepo) FindByID(_ context.Context, id string) (parent.Parent, error) {
	for _, p := range f.byLogin {
		if p.ID == id {
			return p, nil
		}
	}
	return parent.Parent{}, pgx.ErrNoRows
}

func (f *fakeParentRepo) FindByLogin(_ context.Context, loginHash string) (parent.Parent, error) {
	p, ok := f.byLogin[loginHash]
	if !ok {
		return parent.Parent{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeParentRepo) Exists(_ context.Context, loginHash string) bool {
	_, ok := f.byLogin[loginHash]
	return ok
}

type fakeBookingService struct {
	created  []service.NewBookingInput
	bookings []bkg.Booking
	err      error
}

func (f *fakeBookingService) Create(_ context.Context, in *service.NewBookingInput,
) (bkg.Booking, error) {
	if f.err != nil {
		return bkg.Booking{}, f.err
	}
	f.created = append(f.created, *in)
	return bkg.Booking{
		ID:            "b-1",
		ParentID:      in.ParentID,
		ChildID:       in.ChildID,
		ActivityID:    in.ActivityID,
		Amount:        in.Amount,
		PaymentMethod: in.PaymentMethod,
		Status:        bkg.StatusConfirmed,
		SessionAt:     in.SessionAt,
	}, nil
}

func (f *fakeBookingService) List(_ context.Context, _ string) ([]bkg.Booking, error) {
	return f.bookings, f.err
}

type fakeCancellationService struct {
	record repo.CancellationRecord
	err    error
	choice policy.RefundChoice
}

func (f *fakeCancellationService) Cancel(_ context.Context, _, _ string,
) (repo.CancellationRecord, error) {
	return f.record, f.err
}

func (f *fakeCancellationService) ProviderCancel(_ context.Context, _ string,
	choice policy.RefundChoice, _ string,
) (repo.CancellationRecord, error) {
	f.choice = choice
	return f.record, f.err
}

func withParent(r *http.Request, parentID string) *http.Request {
	ctx := context.WithValue(r.Context(), model.KeyContextParentID, parentID)
	return r.WithContext(ctx)
}

func withBookingID(r *http.Request, bookingID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("bookingID", bookingID)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

func TestAuthHandler_Register(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			"correct request",
			`{"login": "alice", "password": "correct-h0rse-battery"}`,
			http.StatusOK,
		},
		{
			"weak password",
			`{"login": "alice", "password": "123"}`,
			http.StatusBadRequest,
		},
		{
			"empty login",
			`{"login": "", "password": "correct-h0rse-battery"}`,
			http.StatusBadRequest,
		},
		{
			"broken json",
			`{"login": "alice"`,
			http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeParentRepo{byLogin: make(map[string]parent.Parent)}
			h := NewAuthHandler(repo, slog.Default(), "secret")

			req := httptest.NewRequest(http.MethodPost, "/api/parent/register",
				bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			h.Register(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				require.NotEmpty(t, w.Result().Cookies())
				assert.Equal(t, auth.CookieName, w.Result().Cookies()[0].Name)
			}
		})
	}
}

func TestAuthHandler_Register_loginTaken(t *testing.T) {
	repo := &fakeParentRepo{byLogin: make(map[string]parent.Parent)}
	h := NewAuthHandler(repo, slog.Default(), "secret")

	body := `{"login": "alice", "password": "correct-h0rse-battery"}`
	w := httptest.NewRecorder()
	h.Register(w, httptest.NewRequest(
		http.MethodPost, "/api/parent/register", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.Register(w, httptest.NewRequest(
		http.MethodPost, "/api/parent/register", bytes.NewBufferString(body)))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandler_Login(t *testing.T) {
	const password = "correct-h0rse-battery"
	passwordHash, err := auth.HashPassword(password)
	require.NoError(t, err)

	repo := &fakeParentRepo{byLogin: map[string]parent.Parent{
		auth.HashLogin("alice"): {
			ID:           "p-1",
			LoginHash:    auth.HashLogin("alice"),
			PasswordHash: passwordHash,
		},
	}}
	h := NewAuthHandler(repo, slog.Default(), "secret")

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			"correct credentials",
			`{"login": "alice", "password": "` + password + `"}`,
			http.StatusOK,
		},
		{
			"wrong password",
			`{"login": "alice", "password": "not-the-password-1"}`,
			http.StatusUnauthorized,
		},
		{
			"unknown login",
			`{"login": "bob", "password": "` + password + `"}`,
			http.StatusUnauthorized,
		},
		{
			"missing password",
			`{"login": "alice"}`,
			http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/parent/login",
				bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			h.Login(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestBookingHandler_CreateBooking(t *testing.T) {
	validBody := `{
		"child_id": "c-1",
		"activity_id": "a-1",
		"amount": "20.00",
		"payment_method": "card",
		"session_at": "2026-06-01T10:00:00Z",
		"sessions": 1
	}`

	tests := []struct {
		name       string
		body       string
		parentID   string
		serviceErr error
		wantStatus int
	}{
		{"created", validBody, "p-1", nil, http.StatusCreated},
		{"no auth context", validBody, "", nil, http.StatusUnauthorized},
		{
			"unknown payment method",
			`{"child_id": "c-1", "activity_id": "a-1", "amount": "20.00",
			  "payment_method": "iou", "session_at": "2026-06-01T10:00:00Z", "sessions": 1}`,
			"p-1", nil, http.StatusBadRequest,
		},
		{
			"voucher without valid reference",
			`{"child_id": "c-1", "activity_id": "a-1", "amount": "20.00",
			  "payment_method": "voucher", "payment_reference": "1234",
			  "session_at": "2026-06-01T10:00:00Z", "sessions": 1}`,
			"p-1", nil, http.StatusBadRequest,
		},
		{
			"wallet short on credit",
			validBody, "p-1",
			serviceerrs.ErrInsufficientCredit, http.StatusPaymentRequired,
		},
		{
			"storage failure",
			validBody, "p-1",
			errors.New("boom"), http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeBookingService{err: tt.serviceErr}
			h := NewBookingHandler(svc, &fakeCancellationService{}, slog.Default())

			req := httptest.NewRequest(http.MethodPost, "/api/parent/bookings",
				bytes.NewBufferString(tt.body))
			if tt.parentID != "" {
				req = withParent(req, tt.parentID)
			}
			w := httptest.NewRecorder()
			h.CreateBooking(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusCreated {
				require.Len(t, svc.created, 1)
				assert.Equal(t, "p-1", svc.created[0].ParentID)
				assert.Equal(t, int64(2000), svc.created[0].Amount.TotalPence())
			}
		})
	}
}

func TestBookingHandler_GetBookings(t *testing.T) {
	amount, err := model.FromFloat(20.00)
	require.NoError(t, err)

	t.Run("no bookings", func(t *testing.T) {
		h := NewBookingHandler(
			&fakeBookingService{}, &fakeCancellationService{}, slog.Default())

		req := withParent(
			httptest.NewRequest(http.MethodGet, "/api/parent/bookings", nil), "p-1")
		w := httptest.NewRecorder()
		h.GetBookings(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("list", func(t *testing.T) {
		svc := &fakeBookingService{bookings: []bkg.Booking{{
			ID:            "b-1",
			ParentID:      "p-1",
			ChildID:       "c-1",
			Amount:        amount,
			PaymentMethod: bkg.MethodCard,
			Status:        bkg.StatusConfirmed,
			SessionAt:     time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC),
		}}}
		h := NewBookingHandler(svc, &fakeCancellationService{}, slog.Default())

		req := withParent(
			httptest.NewRequest(http.MethodGet, "/api/parent/bookings", nil), "p-1")
		w := httptest.NewRecorder()
		h.GetBookings(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp []dto.BookingResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp, 1)
		assert.Equal(t, "b-1", resp[0].ID)
		assert.Equal(t, json.Number("20.00"), resp[0].Amount)
		assert.Equal(t, 1, resp[0].Sessions)
		assert.Empty(t, resp[0].SessionDates)
	})

	t.Run("course carries its session dates", func(t *testing.T) {
		start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
		svc := &fakeBookingService{bookings: []bkg.Booking{{
			ID:            "b-2",
			ParentID:      "p-1",
			Amount:        amount,
			PaymentMethod: bkg.MethodCard,
			Status:        bkg.StatusConfirmed,
			SessionAt:     start,
			Course: &bkg.Course{
				Start:    start,
				End:      start.AddDate(0, 0, 21),
				Sessions: 4,
			},
		}}}
		h := NewBookingHandler(svc, &fakeCancellationService{}, slog.Default())

		req := withParent(
			httptest.NewRequest(http.MethodGet, "/api/parent/bookings", nil), "p-1")
		w := httptest.NewRecorder()
		h.GetBookings(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp []dto.BookingResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp, 1)
		assert.Equal(t, 4, resp[0].Sessions)
		require.Len(t, resp[0].SessionDates, 4)
		assert.True(t, start.Equal(resp[0].SessionDates[0]))
		assert.True(t, start.AddDate(0, 0, 21).Equal(resp[0].SessionDates[3]))
	})
}

func TestBookingHandler_CancelBooking(t *testing.T) {
	okRecord := repo.CancellationRecord{
		Booking: bkg.Booking{ID: "b-1", ParentID: "p-1"},
		Verdict: policy.Verdict{
			Eligible: true,
			Method:   policy.MethodCash,
			Reason:   "refundable to original payment method",
			Refund:   model.FromPence(1800),
			Credit:   model.FromPence(0),
			Fee:      model.FromPence(200),
		},
	}

	tests := []struct {
		name       string
		record     repo.CancellationRecord
		err        error
		wantStatus int
	}{
		{"cancelled", okRecord, nil, http.StatusOK},
		{
			"booking not found",
			repo.CancellationRecord{},
			serviceerrs.ErrBookingNotFound,
			http.StatusNotFound,
		},
		{
			"not eligible",
			repo.CancellationRecord{},
			&serviceerrs.IneligibleCancellationError{Reason: "session already occurred"},
			http.StatusConflict,
		},
		{
			"storage failure",
			repo.CancellationRecord{},
			errors.New("boom"),
			http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBookingHandler(
				&fakeBookingService{},
				&fakeCancellationService{record: tt.record, err: tt.err},
				slog.Default())

			req := httptest.NewRequest(
				http.MethodPost, "/api/parent/bookings/b-1/cancel", nil)
			req = withBookingID(withParent(req, "p-1"), "b-1")
			w := httptest.NewRecorder()
			h.CancelBooking(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				var resp dto.CancellationResponse
				require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
				assert.Equal(t, "b-1", resp.BookingID)
				assert.Equal(t, "cash", resp.Method)
				assert.Equal(t, json.Number("18.00"), resp.Refund)
				assert.Equal(t, json.Number("2.00"), resp.Fee)
			}
		})
	}
}

func TestBookingHandler_ProviderCancelBooking(t *testing.T) {
	record := repo.CancellationRecord{
		Booking: bkg.Booking{ID: "b-1", ParentID: "p-1"},
		Verdict: policy.Verdict{
			Eligible: true,
			Method:   policy.MethodCredit,
			Refund:   model.FromPence(0),
			Credit:   model.FromPence(5000),
			Fee:      model.FromPence(0),
		},
	}

	t.Run("cancelled as credit", func(t *testing.T) {
		svc := &fakeCancellationService{record: record}
		h := NewBookingHandler(&fakeBookingService{}, svc, slog.Default())

		req := httptest.NewRequest(
			http.MethodPost, "/api/provider/bookings/b-1/cancel",
			bytes.NewBufferString(`{"refund_method": "credit"}`))
		req = withBookingID(withParent(req, "staff-1"), "b-1")
		w := httptest.NewRecorder()
		h.ProviderCancelBooking(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, policy.RefundChoiceCredit, svc.choice)
	})

	t.Run("unknown refund method", func(t *testing.T) {
		h := NewBookingHandler(
			&fakeBookingService{}, &fakeCancellationService{}, slog.Default())

		req := httptest.NewRequest(
			http.MethodPost, "/api/provider/bookings/b-1/cancel",
			bytes.NewBufferString(`{"refund_method": "gold"}`))
		req = withBookingID(withParent(req, "staff-1"), "b-1")
		w := httptest.NewRecorder()
		h.ProviderCancelBooking(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
