package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/vantagepos/licensing-backend/internal/seats"
	"github.com/vantagepos/licensing-backend/pkg/logger"
)

type testSeatsService struct {
	checkFn     func(ctx context.Context, key string) (*seats.SeatCheck, error)
	incrementFn func(ctx context.Context, key string) (*seats.SeatCount, error)
	decrementFn func(ctx context.Context, key string) (*seats.SeatCount, error)
	syncFn      func(ctx context.Context, key string, actual int) (*seats.SeatCount, error)
}

func (s *testSeatsService) CheckUserCreation(ctx context.Context, key string) (*seats.SeatCheck, error) {
	if s.checkFn != nil {
		return s.checkFn(ctx, key)
	}
	return &seats.SeatCheck{Allowed: true}, nil
}

func (s *testSeatsService) IncrementUserCount(ctx context.Context, key string) (*seats.SeatCount, error) {
	if s.incrementFn != nil {
		return s.incrementFn(ctx, key)
	}
	return &seats.SeatCount{}, nil
}

func (s *testSeatsService) DecrementUserCount(ctx context.Context, key string) (*seats.SeatCount, error) {
	if s.decrementFn != nil {
		return s.decrementFn(ctx, key)
	}
	return &seats.SeatCount{}, nil
}

func (s *testSeatsService) SyncUserCount(ctx context.Context, key string, actual int) (*seats.SeatCount, error) {
	if s.syncFn != nil {
		return s.syncFn(ctx, key, actual)
	}
	return &seats.SeatCount{}, nil
}

func (s *testSeatsService) IncreaseUserLimit(ctx context.Context, licenseID uuid.UUID, additional int) (*seats.SeatCount, error) {
	return &seats.SeatCount{}, nil
}

func testControllerLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func TestSeatIncrementAcceptsHardwareID(t *testing.T) {
	called := false
	svc := &testSeatsService{
		incrementFn: func(ctx context.Context, key string) (*seats.SeatCount, error) {
			called = true
			if key != "AAAA-BBBB-CCCC-DDDD-EEEE" {
				t.Fatalf("unexpected key %q", key)
			}
			return &seats.SeatCount{UserCount: 4, UserLimit: 5}, nil
		},
	}

	body := `{"licenseKey":"AAAA-BBBB-CCCC-DDDD-EEEE","hardwareId":"HW-001"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/seats/increment", strings.NewReader(body))
	resp := httptest.NewRecorder()

	SeatIncrement(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatal("expected service called")
	}

	var envelope struct {
		Data seats.SeatCount `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.UserCount != 4 || envelope.Data.UserLimit != 5 {
		t.Fatalf("unexpected counts %+v", envelope.Data)
	}
}

func TestSeatSyncAcceptsHardwareID(t *testing.T) {
	svc := &testSeatsService{
		syncFn: func(ctx context.Context, key string, actual int) (*seats.SeatCount, error) {
			if actual != 3 {
				t.Fatalf("unexpected actual count %d", actual)
			}
			return &seats.SeatCount{UserCount: 3, UserLimit: 5}, nil
		},
	}

	body := `{"licenseKey":"AAAA-BBBB-CCCC-DDDD-EEEE","hardwareId":"HW-001","userCount":3}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/seats/sync", strings.NewReader(body))
	resp := httptest.NewRecorder()

	SeatSync(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSeatCheckRejectsUnknownFields(t *testing.T) {
	body := `{"licenseKey":"AAAA-BBBB-CCCC-DDDD-EEEE","machineToken":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/seats/check", strings.NewReader(body))
	resp := httptest.NewRecorder()

	SeatCheck(&testSeatsService{}, testControllerLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}
