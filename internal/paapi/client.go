package paapi

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Transport is the raw upstream surface. The adapter layers rate
// limiting, retries and the breaker on top; tests substitute a fake.
type Transport interface {
	SearchItems(ctx context.Context, req *SearchItemsRequest) (*SearchItemsResponse, error)
	GetItems(ctx context.Context, req *GetItemsRequest) (*GetItemsResponse, error)
}

// Credentials identify one upstream partner account.
type Credentials struct {
	AccessKey   string
	SecretKey   string
	PartnerTag  string
	Marketplace string // "www.amazon.in"
	Region      string // "eu-west-1" for the India marketplace
	Host        string // "webservices.amazon.in"
}

// httpTransport signs and posts JSON operations to the upstream.
type httpTransport struct {
	creds  Credentials
	client *http.Client
	now    func() time.Time
}

// NewHTTPTransport builds the production transport.
func NewHTTPTransport(creds Credentials, timeout time.Duration) Transport {
	if creds.Host == "" {
		creds.Host = "webservices.amazon.in"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpTransport{
		creds:  creds,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// httpError carries the upstream status for retry classification.
type httpError struct {
	Status int
	Body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

func (t *httpTransport) SearchItems(ctx context.Context, req *SearchItemsRequest) (*SearchItemsResponse, error) {
	var resp SearchItemsResponse
	if err := t.post(ctx, "SearchItems", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (t *httpTransport) GetItems(ctx context.Context, req *GetItemsRequest) (*GetItemsResponse, error) {
	var resp GetItemsResponse
	if err := t.post(ctx, "GetItems", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (t *httpTransport) post(ctx context.Context, operation string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	path := "/paapi5/" + strings.ToLower(operation)
	target := "com.amazon.paapi5.v1.ProductAdvertisingAPIv1." + operation

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://"+t.creds.Host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", operation, err)
	}
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("Content-Encoding", "amz-1.0")
	httpReq.Header.Set("X-Amz-Target", target)
	t.sign(httpReq, path, body)

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%s read body: %w", operation, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return &httpError{Status: httpResp.StatusCode, Body: truncate(string(respBody), 256)}
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s decode: %w", operation, err)
	}
	return nil
}

// sign applies AWS signature v4 with the ProductAdvertisingAPI service
// scope. Canonical form per the upstream's signed-request contract.
func (t *httpTransport) sign(req *http.Request, path string, body []byte) {
	const service = "ProductAdvertisingAPI"
	now := t.now().UTC()
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")

	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("Host", t.creds.Host)

	payloadHash := sha256Hex(body)
	signedHeaders := "content-encoding;host;x-amz-date;x-amz-target"
	canonicalHeaders := strings.Join([]string{
		"content-encoding:" + req.Header.Get("Content-Encoding"),
		"host:" + t.creds.Host,
		"x-amz-date:" + amzDate,
		"x-amz-target:" + req.Header.Get("X-Amz-Target"),
	}, "\n") + "\n"

	canonicalRequest := strings.Join([]string{
		http.MethodPost, path, "", canonicalHeaders, signedHeaders, payloadHash,
	}, "\n")

	scope := strings.Join([]string{dateStamp, t.creds.Region, service, "aws4_request"}, "/")
	stringToSign := strings.Join([]string{
		"AWS4-HMAC-SHA256", amzDate, scope, sha256Hex([]byte(canonicalRequest)),
	}, "\n")

	key := hmacSHA256([]byte("AWS4"+t.creds.SecretKey), dateStamp)
	key = hmacSHA256(key, t.creds.Region)
	key = hmacSHA256(key, service)
	key = hmacSHA256(key, "aws4_request")
	signature := hex.EncodeToString(hmacSHA256(key, stringToSign))

	req.Header.Set("Authorization", fmt.Sprintf(
		"AWS4-HMAC-SHA256 Credential=%s/%s, SignedHeaders=%s, Signature=%s",
		t.creds.AccessKey, scope, signedHeaders, signature))
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
