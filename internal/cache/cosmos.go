package cache

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	cosmosAPIVersion       = "2018-12-31"
	cosmosQueryContentType = "application/query+json"
)

// CosmosCache talks to the Cosmos DB SQL REST API directly. Each key is one
// document; the partition is the first path segment of the key.
type CosmosCache struct {
	endpoint  *url.URL
	client    *http.Client
	key       []byte
	database  string
	container string
}

type cosmosDocument struct {
	ID        string `json:"id"`
	Partition string `json:"partition"`
	Value     string `json:"value"`
}

type cosmosQuery struct {
	Query      string           `json:"query"`
	Parameters []cosmosQueryArg `json:"parameters"`
}

type cosmosQueryArg struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var _ ListCache = (*CosmosCache)(nil)

func NewCosmosCache(endpoint, key, database, container string) (*CosmosCache, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid cosmos endpoint: %w", err)
	}
	decodedKey, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("cosmos key is not base64: %w", err)
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil

	return &CosmosCache{
		endpoint:  parsed,
		client:    rc.StandardClient(),
		key:       decodedKey,
		database:  database,
		container: container,
	}, nil
}

func (cc *CosmosCache) List(ctx context.Context, prefix string, _ string) ([]string, error) {
	body, err := json.Marshal(cosmosQuery{
		Query:      "SELECT c.id FROM c WHERE STARTSWITH(c.id, @prefix)",
		Parameters: []cosmosQueryArg{{Name: "@prefix", Value: prefix}},
	})
	if err != nil {
		return nil, err
	}
	resp, err := cc.do(ctx, http.MethodPost, "", body, map[string]string{
		"Content-Type":                               cosmosQueryContentType,
		"x-ms-documentdb-isquery":                    "true",
		"x-ms-documentdb-query-enablecrosspartition": "true",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := cosmosStatus(resp); err != nil {
		return nil, err
	}

	var parsed struct {
		Documents []cosmosDocument `json:"Documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode query response: %w", err)
	}
	keys := make([]string, 0, len(parsed.Documents))
	for _, doc := range parsed.Documents {
		keys = append(keys, strings.TrimPrefix(doc.ID, prefix))
	}
	return keys, nil
}

func (cc *CosmosCache) Exists(ctx context.Context, key string) (bool, error) {
	if _, err := cc.read(ctx, key); err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (cc *CosmosCache) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	doc, err := cc.read(ctx, key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(doc.Value)), nil
}

func (cc *CosmosCache) Put(ctx context.Context, key, value string, opts PutOptions) error {
	doc := cosmosDocument{ID: key, Partition: partitionKey(key), Value: value}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}
	headers := map[string]string{
		"Content-Type":                 "application/json",
		"x-ms-documentdb-partitionkey": partitionHeader(doc.Partition),
	}
	if opts.Condition != PutIfNoneMatch {
		headers["x-ms-documentdb-is-upsert"] = "true"
	}

	resp, err := cc.do(ctx, http.MethodPost, "", body, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusConflict {
		return ErrAlreadyExists
	}
	return cosmosStatus(resp)
}

func (cc *CosmosCache) read(ctx context.Context, key string) (*cosmosDocument, error) {
	resp, err := cc.do(ctx, http.MethodGet, key, nil, map[string]string{
		"x-ms-documentdb-partitionkey": partitionHeader(partitionKey(key)),
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if err := cosmosStatus(resp); err != nil {
		return nil, err
	}
	var doc cosmosDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return &doc, nil
}

// do issues a signed request against the docs collection, or against one
// document when key is non-empty.
func (cc *CosmosCache) do(ctx context.Context, method, key string, body []byte, headers map[string]string) (*http.Response, error) {
	resourceID := fmt.Sprintf("dbs/%s/colls/%s", cc.database, cc.container)
	reqPath := "/" + resourceID + "/docs"
	if key != "" {
		resourceID += "/docs/" + key
		reqPath += "/" + url.PathEscape(key)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	reqURL := cc.endpoint.ResolveReference(&url.URL{Path: reqPath})
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	date := time.Now().UTC().Format(http.TimeFormat)
	req.Header.Set("x-ms-date", date)
	req.Header.Set("x-ms-version", cosmosAPIVersion)
	req.Header.Set("Authorization", cc.sign(method, resourceID, date))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := cc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cosmos request failed: %w", err)
	}
	return resp, nil
}

func (cc *CosmosCache) sign(method, resourceID, date string) string {
	payload := strings.ToLower(method) + "\n" +
		"docs\n" +
		resourceID + "\n" +
		strings.ToLower(date) + "\n\n"
	mac := hmac.New(sha256.New, cc.key)
	_, _ = mac.Write([]byte(payload))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return url.QueryEscape("type=master&ver=1.0&sig=" + sig)
}

func cosmosStatus(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("cosmos error status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func partitionKey(key string) string {
	head, _, _ := strings.Cut(key, "/")
	return head
}

func partitionHeader(partition string) string {
	b, _ := json.Marshal([]string{partition})
	return string(b)
}
