package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/tatemeyer/IoT-Asset-Bot/internal/models"
)

const (
	defaultTimeout = 10 * time.Second
	tokenLifetime  = time.Minute
	telemetryPath  = "/api/telemetry"
)

// HTTPDoer is the http.Client subset the source needs.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPSource extracts telemetry from the fleet dashboard's JSON API. When an
// auth secret is configured it mints a short-lived HS256 bearer token per
// request. On extraction failure it captures diagnostic evidence: the raw
// response is dumped to a timestamped file in the evidence directory.
type HTTPSource struct {
	baseURL     string
	secret      string
	evidenceDir string
	client      HTTPDoer
	logger      *zap.Logger
	connected   bool
}

// HTTPSourceConfig configures an HTTPSource.
type HTTPSourceConfig struct {
	BaseURL     string
	AuthSecret  string
	EvidenceDir string
	Timeout     time.Duration
}

// NewHTTPSource returns a source over the dashboard API.
func NewHTTPSource(cfg HTTPSourceConfig, logger *zap.Logger) *HTTPSource {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPSource{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		secret:      cfg.AuthSecret,
		evidenceDir: cfg.EvidenceDir,
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

// Connect verifies the dashboard is reachable. The session is cheap but the
// acquire/release discipline is kept so failure isolation per attempt is
// explicit.
func (s *HTTPSource) Connect(ctx context.Context) error {
	status, _, err := s.get(ctx, "/health")
	if err != nil {
		return fmt.Errorf("source: dashboard unreachable: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("source: dashboard health returned %d", status)
	}
	s.connected = true
	s.logger.Debug("telemetry source session opened", zap.String("url", s.baseURL))
	return nil
}

// ExtractLatest returns the first record of the current dashboard snapshot.
func (s *HTTPSource) ExtractLatest(ctx context.Context) (models.TelemetryRecord, error) {
	records, err := s.ExtractAll(ctx)
	if err != nil {
		return models.TelemetryRecord{}, err
	}
	return records[0], nil
}

// ExtractAll returns telemetry for every asset on the dashboard.
func (s *HTTPSource) ExtractAll(ctx context.Context) ([]models.TelemetryRecord, error) {
	if !s.connected {
		return nil, fmt.Errorf("source: session not connected")
	}

	status, body, err := s.get(ctx, telemetryPath)
	if err != nil {
		s.captureEvidence("request failed: "+err.Error(), nil)
		return nil, fmt.Errorf("source: extract telemetry: %w", err)
	}
	if status != http.StatusOK {
		s.captureEvidence(fmt.Sprintf("unexpected status %d", status), body)
		return nil, fmt.Errorf("source: telemetry endpoint returned %d", status)
	}

	var records []models.TelemetryRecord
	if err := json.Unmarshal(body, &records); err != nil {
		s.captureEvidence("undecodable payload: "+err.Error(), body)
		return nil, fmt.Errorf("source: decode telemetry: %w", err)
	}
	if len(records) == 0 {
		s.captureEvidence("empty telemetry payload", body)
		return nil, ErrNoTelemetry
	}

	s.logger.Info("telemetry extracted", zap.Int("records", len(records)))
	return records, nil
}

// Close releases the session.
func (s *HTTPSource) Close() error {
	if s.connected {
		s.connected = false
		s.logger.Debug("telemetry source session closed")
	}
	return nil
}

func (s *HTTPSource) get(ctx context.Context, path string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return 0, nil, err
	}
	if s.secret != "" {
		token, err := s.mintToken()
		if err != nil {
			return 0, nil, fmt.Errorf("mint token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func (s *HTTPSource) mintToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": "control-center",
		"iat": now.Unix(),
		"exp": now.Add(tokenLifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// captureEvidence writes the failing payload next to the logs so a failed
// cycle can be diagnosed after the fact.
func (s *HTTPSource) captureEvidence(reason string, body []byte) {
	if s.evidenceDir == "" {
		s.logger.Error("extraction failure", zap.String("reason", reason))
		return
	}
	if err := os.MkdirAll(s.evidenceDir, 0o755); err != nil {
		s.logger.Error("extraction failure, evidence dir unavailable",
			zap.String("reason", reason), zap.Error(err))
		return
	}
	name := fmt.Sprintf("failure_%s.txt", time.Now().UTC().Format("20060102_150405"))
	path := filepath.Join(s.evidenceDir, name)
	content := append([]byte(reason+"\n\n"), body...)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		s.logger.Error("extraction failure, evidence write failed",
			zap.String("reason", reason), zap.Error(err))
		return
	}
	s.logger.Error("extraction failure",
		zap.String("reason", reason),
		zap.String("evidence", path))
}
