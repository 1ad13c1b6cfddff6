package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fitlane/trainer-api/internal/model"
	"github.com/fitlane/trainer-api/pkg/circuitbreaker"
	apperrors "github.com/fitlane/trainer-api/pkg/errors"
)

// PaymentsClient talks to the payments service over HTTP. It is the only
// PaymentCollaborator implementation; the billing worker is its sole caller.
type PaymentsClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  zerolog.Logger
}

type PaymentsClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewPaymentsClient(config PaymentsClientConfig, logger zerolog.Logger) *PaymentsClient {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &PaymentsClient{
		baseURL: config.BaseURL,
		apiKey:  config.APIKey,
		client:  &http.Client{Timeout: config.Timeout},
		breaker: circuitbreaker.New(circuitbreaker.Settings{
			Name:        "payments",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
		logger: logger,
	}
}

type chargeFeeRequest struct {
	AppointmentID uuid.UUID     `json:"appointment_id"`
	FeeType       model.FeeType `json:"fee_type"`
	Amount        float64       `json:"amount"`
}

// ChargeFee posts the penalty to the payments service. A declined card comes
// back as a non-error result with Success=false and the debit ledger entry
// the collaborator recorded; only transport and server failures are errors.
func (p *PaymentsClient) ChargeFee(ctx context.Context, appointmentID uuid.UUID, feeType model.FeeType, amount float64) (*ChargeResult, error) {
	body, err := json.Marshal(chargeFeeRequest{
		AppointmentID: appointmentID,
		FeeType:       feeType,
		Amount:        amount,
	})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	var result ChargeResult
	err = p.breaker.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/charges", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.apiKey)

		resp, err := p.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("payments service returned %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return fmt.Errorf("charge rejected with %d: %s", resp.StatusCode, payload)
		}

		return json.NewDecoder(resp.Body).Decode(&result)
	})
	if err != nil {
		p.logger.Error().Err(err).
			Str("appointment_id", appointmentID.String()).
			Str("fee_type", string(feeType)).
			Msg("payments call failed")
		return nil, apperrors.Downstream("charge fee", err)
	}

	return &result, nil
}
