package controllers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/vantagepos/licensing-backend/internal/activations"
)

type testActivationsService struct {
	activateFn func(ctx context.Context, input activations.ActivateInput) (*activations.ActivationResult, error)
}

func (s *testActivationsService) Activate(ctx context.Context, input activations.ActivateInput) (*activations.ActivationResult, error) {
	if s.activateFn != nil {
		return s.activateFn(ctx, input)
	}
	return &activations.ActivationResult{}, nil
}

func (s *testActivationsService) Validate(ctx context.Context, input activations.ValidateInput) (*activations.ValidationResult, error) {
	return &activations.ValidationResult{}, nil
}

func (s *testActivationsService) Deactivate(ctx context.Context, key, hardwareID string) error {
	return nil
}

func (s *testActivationsService) DeactivateByID(ctx context.Context, id uuid.UUID) error {
	return nil
}

func (s *testActivationsService) ReactivateLicense(ctx context.Context, licenseID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *testActivationsService) ListActivations(ctx context.Context, params activations.ListParams) (*activations.ListResult, error) {
	return &activations.ListResult{}, nil
}

func TestActivateRejectsOverlongHardwareIDAtBoundary(t *testing.T) {
	svc := &testActivationsService{
		activateFn: func(ctx context.Context, input activations.ActivateInput) (*activations.ActivationResult, error) {
			t.Fatal("service reached with an over-long hardware id")
			return nil, nil
		},
	}

	body := fmt.Sprintf(`{"licenseKey":"AAAA-BBBB-CCCC-DDDD-EEEE","hardwareId":%q}`, strings.Repeat("x", 256))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/license/activate", strings.NewReader(body))
	resp := httptest.NewRecorder()

	Activate(svc, testControllerLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "hardwareId") {
		t.Fatalf("rejection should name the field: %s", resp.Body.String())
	}
}
