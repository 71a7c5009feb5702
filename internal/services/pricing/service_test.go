package pricing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fossa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRateSource struct {
	mock.Mock
}

func (m *MockRateSource) FiatAsSats(ctx context.Context, amount float64, currency string) (int64, error) {
	args := m.Called(ctx, amount, currency)
	return args.Get(0).(int64), args.Error(1)
}

func TestAmountToSats(t *testing.T) {
	tests := []struct {
		name      string
		device    *models.Device
		amount    float64
		setupMock func(*MockRateSource)
		want      int64
		wantErr   error
	}{
		{
			name:   "fiat conversion, no margin",
			device: &models.Device{Currency: "USD", Profit: 0},
			amount: 500, // cents
			setupMock: func(m *MockRateSource) {
				m.On("FiatAsSats", mock.Anything, 5.0, "USD").Return(int64(4000), nil)
			},
			want: 4000,
		},
		{
			name:   "fiat conversion with margin deducted",
			device: &models.Device{Currency: "EUR", Profit: 10},
			amount: 1000,
			setupMock: func(m *MockRateSource) {
				m.On("FiatAsSats", mock.Anything, 10.0, "EUR").Return(int64(9999), nil)
			},
			want: 9000, // 9999 - 999.9 truncated
		},
		{
			name:   "sat device bypasses rate source",
			device: &models.Device{Currency: "sat", Profit: 0},
			amount: 2100.3,
			want:   2101, // ceiled
		},
		{
			name:   "sat device with margin",
			device: &models.Device{Currency: "sat", Profit: 2},
			amount: 1000,
			want:   980,
		},
		{
			name:   "rate failure aborts",
			device: &models.Device{Currency: "USD"},
			amount: 500,
			setupMock: func(m *MockRateSource) {
				m.On("FiatAsSats", mock.Anything, 5.0, "USD").
					Return(int64(0), errors.New("api down"))
			},
			wantErr: ErrRateUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rates := new(MockRateSource)
			if tt.setupMock != nil {
				tt.setupMock(rates)
			}

			s := NewService(rates)
			got, err := s.AmountToSats(context.Background(), tt.device, tt.amount)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			rates.AssertExpectations(t)
		})
	}
}

func TestHTTPRateSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/rate/USD", r.URL.Path)
		w.Write([]byte(`{"rate": 50000}`))
	}))
	defer srv.Close()

	rates := NewHTTPRateSource(srv.URL, nil)
	sats, err := rates.FiatAsSats(context.Background(), 5.0, "USD")
	require.NoError(t, err)
	// 5 USD at 50k USD/BTC = 10000 sats.
	assert.Equal(t, int64(10000), sats)
}

func TestHTTPRateSourceFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	rates := NewHTTPRateSource(srv.URL, nil)
	_, err := rates.FiatAsSats(context.Background(), 5.0, "USD")
	assert.Error(t, err)
}
