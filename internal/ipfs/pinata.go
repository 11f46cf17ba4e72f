package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"lpIncentives/internal/retry"
)

const (
	DefaultPinataURL = "https://api.pinata.cloud"
	pinJSONPath      = "/pinning/pinJSONToIPFS"
)

// Pinner stores a JSON document and returns its CID.
type Pinner interface {
	PinJSON(ctx context.Context, name string, payload json.RawMessage) (string, error)
}

// PinataConfig configures the Pinata pinner. JWT wins over key/secret.
type PinataConfig struct {
	BaseURL   string
	JWT       string
	APIKey    string
	APISecret string
	Timeout   time.Duration
	Retry     retry.Policy
}

// Mirror is an extra pinning service that receives the CID after upload.
type Mirror struct {
	Name      string
	URL       string
	Header    string
	Token     string
	BearerKey bool
}

// PinataPinner uploads through pinJSONToIPFS and asks each mirror to pin the
// resulting CID. Mirror failures are logged and ignored.
type PinataPinner struct {
	cfg     PinataConfig
	mirrors []Mirror
	client  *http.Client
	logger  *zap.Logger
}

func NewPinataPinner(cfg PinataConfig, mirrors []Mirror, logger *zap.Logger) (*PinataPinner, error) {
	if cfg.JWT == "" && (cfg.APIKey == "" || cfg.APISecret == "") {
		return nil, fmt.Errorf("pinata needs a jwt or an api key and secret")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultPinataURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PinataPinner{
		cfg:     cfg,
		mirrors: mirrors,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}, nil
}

type pinRequest struct {
	PinataContent  json.RawMessage `json:"pinataContent"`
	PinataMetadata pinMetadata     `json:"pinataMetadata"`
	PinataOptions  pinOptions      `json:"pinataOptions"`
}

type pinMetadata struct {
	Name string `json:"name"`
}

type pinOptions struct {
	CIDVersion int `json:"cidVersion"`
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// PinJSON pins payload as a CIDv0 document named name.
func (p *PinataPinner) PinJSON(ctx context.Context, name string, payload json.RawMessage) (string, error) {
	body, err := json.Marshal(pinRequest{
		PinataContent:  payload,
		PinataMetadata: pinMetadata{Name: name},
		PinataOptions:  pinOptions{CIDVersion: 0},
	})
	if err != nil {
		return "", fmt.Errorf("marshal pin request: %w", err)
	}

	var out pinResponse
	err = retry.Do(ctx, p.cfg.Retry, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(p.cfg.BaseURL, "/")+pinJSONPath, bytes.NewReader(body))
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		if p.cfg.JWT != "" {
			req.Header.Set("Authorization", "Bearer "+p.cfg.JWT)
		} else {
			req.Header.Set("pinata_api_key", p.cfg.APIKey)
			req.Header.Set("pinata_secret_api_key", p.cfg.APISecret)
		}
		return doJSON(p.client, req, &out)
	})
	if err != nil {
		return "", fmt.Errorf("pin json: %w", err)
	}
	if out.IpfsHash == "" {
		return "", fmt.Errorf("pin json: empty IpfsHash in response")
	}
	p.logger.Info("snapshot pinned", zap.String("cid", out.IpfsHash), zap.String("name", name))

	for _, m := range p.mirrors {
		if err := p.mirror(ctx, m, name, out.IpfsHash); err != nil {
			p.logger.Warn("mirror pin failed", zap.String("mirror", m.Name), zap.String("cid", out.IpfsHash), zap.Error(err))
			continue
		}
		p.logger.Info("mirror pinned", zap.String("mirror", m.Name), zap.String("cid", out.IpfsHash))
	}
	return out.IpfsHash, nil
}

func (p *PinataPinner) mirror(ctx context.Context, m Mirror, name, cid string) error {
	body, err := json.Marshal(map[string]string{"name": name, "cid": cid})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	header := m.Header
	if header == "" {
		header = "Authorization"
	}
	if m.BearerKey {
		req.Header.Set(header, "Bearer "+m.Token)
	} else {
		req.Header.Set(header, m.Token)
	}
	return doJSON(p.client, req, nil)
}

// doJSON sends req and decodes a 2xx body into out. 4xx responses are not retried.
func doJSON(client *http.Client, req *http.Request, out interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(data)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return retry.Permanent(statusErr)
		}
		return statusErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return retry.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return nil
}
