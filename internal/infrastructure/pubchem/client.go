// Package pubchem is a minimal client for the PubChem PUG REST API covering
// the two calls molscout needs: a fast substructure search returning CIDs and
// a per-CID SMILES property lookup.
package pubchem

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/molscout/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molscout/pkg/errors"
)

const (
	DefaultBaseURL   = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"
	DefaultTimeout   = 10 * time.Second
	DefaultUserAgent = "molscout/1.0"

	// maxBodyBytes caps how much of a response body is read.
	maxBodyBytes = 4 << 20

	OperationSubstructure = "fastsubstructure"
	OperationProperty     = "property"
)

// Recorder receives one observation per outbound request.
type Recorder interface {
	RecordPubChemRequest(operation, outcome string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordPubChemRequest(string, string, time.Duration) {}

// Client talks to PUG REST. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     logging.Logger
	recorder   Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// NewClient validates baseURL and builds a Client.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.ErrInvalidConfig
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  DefaultUserAgent,
		logger:     logging.NewNopLogger(),
		recorder:   nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type cidResponse struct {
	IdentifierList *struct {
		CID []int64 `json:"CID"`
	} `json:"IdentifierList"`
}

type propertyResponse struct {
	PropertyTable struct {
		Properties []struct {
			CID                int64  `json:"CID"`
			CanonicalSMILES    string `json:"CanonicalSMILES"`
			ConnectivitySMILES string `json:"ConnectivitySMILES"`
		} `json:"Properties"`
	} `json:"PropertyTable"`
}

// SubstructureCIDs runs a fast substructure search for smiles and returns
// the matching CIDs in PubChem's order. Any non-200 status, transport
// failure, or malformed body is an upstream error.
func (c *Client) SubstructureCIDs(ctx context.Context, smiles string) ([]int64, error) {
	path := "/compound/fastsubstructure/smiles/" + url.PathEscape(smiles) + "/cids/JSON"

	var out cidResponse
	if err := c.getJSON(ctx, OperationSubstructure, path, &out); err != nil {
		return nil, err
	}
	if out.IdentifierList == nil {
		return []int64{}, nil
	}
	return out.IdentifierList.CID, nil
}

// CanonicalSMILES fetches the canonical SMILES recorded for cid. PubChem
// now reports it as ConnectivitySMILES; either field is accepted.
func (c *Client) CanonicalSMILES(ctx context.Context, cid int64) (string, error) {
	path := "/compound/cid/" + strconv.FormatInt(cid, 10) + "/property/CanonicalSMILES/JSON"

	var out propertyResponse
	if err := c.getJSON(ctx, OperationProperty, path, &out); err != nil {
		return "", err
	}
	props := out.PropertyTable.Properties
	if len(props) == 0 {
		return "", errors.New(errors.ErrCodeDataSourceParseError, "pubchem returned no properties").
			WithDetail(fmt.Sprintf("cid %d", cid))
	}
	smiles := props[0].CanonicalSMILES
	if smiles == "" {
		smiles = props[0].ConnectivitySMILES
	}
	if smiles == "" {
		return "", errors.New(errors.ErrCodeDataSourceParseError, "pubchem returned an empty SMILES").
			WithDetail(fmt.Sprintf("cid %d", cid))
	}
	return smiles, nil
}

func (c *Client) getJSON(ctx context.Context, operation, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create pubchem request")
	}
	requestID := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)

	log := c.logger.With(
		logging.String("operation", operation),
		logging.String("pubchem_request_id", requestID),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recorder.RecordPubChemRequest(operation, "transport_error", time.Since(start))
		log.Warn("pubchem request failed", logging.Err(err))
		return errors.Upstream(err, "pubchem request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	if err != nil {
		c.recorder.RecordPubChemRequest(operation, "transport_error", elapsed)
		return errors.Upstream(err, "failed to read pubchem response")
	}
	if resp.StatusCode != http.StatusOK {
		c.recorder.RecordPubChemRequest(operation, "status_"+strconv.Itoa(resp.StatusCode), elapsed)
		log.Warn("pubchem returned non-200",
			logging.Int("status", resp.StatusCode),
			logging.Duration("elapsed", elapsed))
		return errors.Upstream(nil, "pubchem returned an error status").
			WithDetail(fmt.Sprintf("status %d for %s", resp.StatusCode, path))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		c.recorder.RecordPubChemRequest(operation, "decode_error", elapsed)
		return errors.Upstream(err, "failed to decode pubchem response")
	}

	c.recorder.RecordPubChemRequest(operation, "ok", elapsed)
	log.Debug("pubchem request completed", logging.Duration("elapsed", elapsed))
	return nil
}
