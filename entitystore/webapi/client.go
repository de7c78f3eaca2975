package webapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-portal-auth"
	"github.com/goliatone/go-portal-auth/entitystore"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	DefaultAuthority  = "https://login.microsoftonline.com"
	DefaultAPIVersion = "v9.2"

	maxResponseBody = 4 << 20
)

// Config configures a Web API client.
type Config struct {
	ConnectionString string
	TraceLevel       string
	// Authority is the token issuer base URL, the tenant id is appended.
	Authority  string
	APIVersion string
	// EntitySets maps logical names to collection names the default
	// pluralization gets wrong.
	EntitySets map[string]string
	Timeout    time.Duration
	// HTTPClient is the transport used for both token and API calls.
	HTTPClient *http.Client
	// TokenSource replaces the client credentials flow when set.
	TokenSource    oauth2.TokenSource
	Logger         auth.Logger
	LoggerProvider auth.LoggerProvider
}

// Client talks to the Web API of one organization.
type Client struct {
	baseURL    string
	httpClient *http.Client
	entitySets map[string]string
	trace      tracer
	logger     auth.Logger
	session    bool
	closed     atomic.Bool
}

var (
	_ entitystore.Client        = (*Client)(nil)
	_ entitystore.Cloner        = (*Client)(nil)
	_ entitystore.SessionClient = (*Client)(nil)
)

// NewClient parses the connection string and returns an authenticated client.
// No request is sent until the first operation.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	conn, err := ParseConnectionString(cfg.ConnectionString)
	if err != nil {
		return nil, err
	}

	level, err := ParseTraceLevel(cfg.TraceLevel)
	if err != nil {
		return nil, err
	}

	_, logger := auth.ResolveLogger("portal.webapi", cfg.LoggerProvider, cfg.Logger)

	if cfg.Authority == "" {
		cfg.Authority = DefaultAuthority
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	base := cfg.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: cfg.Timeout}
	}

	source := cfg.TokenSource
	if source == nil {
		cc := clientcredentials.Config{
			ClientID:     conn.ClientID,
			ClientSecret: conn.ClientSecret,
			TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimRight(cfg.Authority, "/"), conn.TenantID),
			Scopes:       []string{conn.URL + "/.default"},
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		tokenCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, base)
		source = cc.TokenSource(tokenCtx)
	}

	httpClient := &http.Client{
		Timeout: base.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, source),
			Base:   base.Transport,
		},
	}

	client := &Client{
		baseURL:    fmt.Sprintf("%s/api/data/%s", conn.URL, cfg.APIVersion),
		httpClient: httpClient,
		entitySets: cfg.EntitySets,
		trace:      tracer{level: level, logger: logger},
		logger:     logger,
	}

	client.trace.info("web api client ready", "url", conn.URL, "trace_level", level.String())

	return client, nil
}

// BaseURL returns the Web API root, e.g. https://org.crm.dynamics.com/api/data/v9.2
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Clone returns a session sharing the transport and token cache.
func (c *Client) Clone(ctx context.Context) (entitystore.SessionClient, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	c.trace.verbose("web api session opened")
	return &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		entitySets: c.entitySets,
		trace:      c.trace,
		logger:     c.logger,
		session:    true,
	}, nil
}

// Close ends a cloned session. Closing the shared client releases idle
// connections and leaves it usable.
func (c *Client) Close() error {
	if !c.session {
		c.httpClient.CloseIdleConnections()
		return nil
	}
	if c.closed.CompareAndSwap(false, true) {
		c.trace.verbose("web api session closed")
	}
	return nil
}

// Create inserts entity and returns the id assigned by the server.
func (c *Client) Create(ctx context.Context, entity *entitystore.Entity) (uuid.UUID, error) {
	if err := c.ready(ctx); err != nil {
		return uuid.Nil, err
	}
	if entity == nil || entity.LogicalName == "" {
		return uuid.Nil, auth.WithCause(auth.ErrInvalidArgument, nil, map[string]any{"operation": "create"})
	}

	body := make(map[string]any, len(entity.Attributes)+1)
	for k, v := range entity.Attributes {
		body[k] = v
	}
	if entity.ID != uuid.Nil {
		body[entitystore.PrimaryIDAttribute(entity.LogicalName)] = entity.ID.String()
	}

	resp, err := c.do(ctx, http.MethodPost, c.setURL(entity.LogicalName), body, nil)
	if err != nil {
		return uuid.Nil, err
	}

	id, err := entityIDFromHeader(resp.header.Get("OData-EntityId"))
	if err != nil {
		return uuid.Nil, auth.WithCause(auth.ErrRemoteCall, err, map[string]any{"operation": "create"})
	}
	return id, nil
}

// Retrieve loads one entity. Unknown ids yield entitystore.ErrEntityNotFound.
func (c *Client) Retrieve(ctx context.Context, logicalName string, id uuid.UUID, columns entitystore.ColumnSet) (*entitystore.Entity, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}

	target := c.recordURL(logicalName, id)
	if sel := columns.String(); sel != "" {
		target += "?$select=" + url.QueryEscape(sel)
	}

	resp, err := c.do(ctx, http.MethodGet, target, nil, nil)
	if err != nil {
		return nil, notFound(err, logicalName, id)
	}

	var record map[string]any
	if err := json.Unmarshal(resp.body, &record); err != nil {
		return nil, auth.WithCause(auth.ErrRemoteCall, err, map[string]any{"operation": "retrieve"})
	}
	return toEntity(logicalName, record), nil
}

// RetrieveMultiple runs a fetch expression.
func (c *Client) RetrieveMultiple(ctx context.Context, query *entitystore.Fetch) (*entitystore.EntityCollection, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	text, err := query.Encode()
	if err != nil {
		return nil, err
	}

	target := c.setURL(query.Entity.Name) + "?fetchXml=" + url.QueryEscape(text)
	resp, err := c.do(ctx, http.MethodGet, target, nil, map[string]string{
		"Prefer": `odata.include-annotations="*"`,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Value []map[string]any `json:"value"`
	}
	if err := json.Unmarshal(resp.body, &payload); err != nil {
		return nil, auth.WithCause(auth.ErrRemoteCall, err, map[string]any{"operation": "retrieve_multiple"})
	}

	out := &entitystore.EntityCollection{EntityName: query.Entity.Name}
	for _, record := range payload.Value {
		out.Entities = append(out.Entities, toEntity(query.Entity.Name, record))
	}
	return out, nil
}

// Update writes the attributes of an existing entity.
func (c *Client) Update(ctx context.Context, entity *entitystore.Entity) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	if entity == nil || entity.ID == uuid.Nil {
		return auth.WithCause(auth.ErrInvalidArgument, nil, map[string]any{"operation": "update"})
	}

	_, err := c.do(ctx, http.MethodPatch, c.recordURL(entity.LogicalName, entity.ID), entity.Attributes, map[string]string{
		"If-Match": "*",
	})
	return notFound(err, entity.LogicalName, entity.ID)
}

// Delete removes an entity.
func (c *Client) Delete(ctx context.Context, logicalName string, id uuid.UUID) error {
	if err := c.ready(ctx); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodDelete, c.recordURL(logicalName, id), nil, nil)
	return notFound(err, logicalName, id)
}

// Associate links related entities to target through relationship.
func (c *Client) Associate(ctx context.Context, target entitystore.EntityReference, relationship string, related ...entitystore.EntityReference) error {
	for _, rel := range related {
		if err := c.ready(ctx); err != nil {
			return err
		}
		body := map[string]any{"@odata.id": c.recordURL(rel.LogicalName, rel.ID)}
		endpoint := c.recordURL(target.LogicalName, target.ID) + "/" + relationship + "/$ref"
		if _, err := c.do(ctx, http.MethodPost, endpoint, body, nil); err != nil {
			return err
		}
	}
	return nil
}

// Disassociate removes links created by Associate.
func (c *Client) Disassociate(ctx context.Context, target entitystore.EntityReference, relationship string, related ...entitystore.EntityReference) error {
	for _, rel := range related {
		if err := c.ready(ctx); err != nil {
			return err
		}
		endpoint := fmt.Sprintf("%s/%s(%s)/$ref", c.recordURL(target.LogicalName, target.ID), relationship, rel.ID)
		if _, err := c.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

// Execute sends a named message. Requests without parameters are sent as
// functions (GET), the rest as actions (POST).
func (c *Client) Execute(ctx context.Context, req *entitystore.Request) (*entitystore.Response, error) {
	if err := c.ready(ctx); err != nil {
		return nil, err
	}
	if req == nil || req.Name == "" {
		return nil, auth.WithCause(auth.ErrInvalidArgument, nil, map[string]any{"operation": "execute"})
	}

	method := http.MethodGet
	var body any
	if len(req.Parameters) > 0 {
		method = http.MethodPost
		body = req.Parameters
	}

	resp, err := c.do(ctx, method, c.baseURL+"/"+req.Name, body, nil)
	if err != nil {
		return nil, err
	}

	out := &entitystore.Response{Name: req.Name, Results: map[string]any{}}
	if len(bytes.TrimSpace(resp.body)) > 0 {
		var results map[string]any
		if err := json.Unmarshal(resp.body, &results); err != nil {
			return nil, auth.WithCause(auth.ErrRemoteCall, err, map[string]any{"operation": "execute", "request": req.Name})
		}
		for k, v := range results {
			if !strings.HasPrefix(k, "@odata.") {
				out.Results[k] = v
			}
		}
	}
	return out, nil
}

func (c *Client) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.session && c.closed.Load() {
		return entitystore.ErrClientClosed
	}
	return nil
}

func (c *Client) setURL(logicalName string) string {
	return c.baseURL + "/" + EntitySetName(logicalName, c.entitySets)
}

func (c *Client) recordURL(logicalName string, id uuid.UUID) string {
	return fmt.Sprintf("%s(%s)", c.setURL(logicalName), id)
}

type response struct {
	status int
	header http.Header
	body   []byte
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any, headers map[string]string) (*response, error) {
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, auth.WithCause(auth.ErrInvalidArgument, err, map[string]any{"method": method})
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, auth.WithCause(auth.ErrRemoteCall, err, map[string]any{"method": method})
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("OData-MaxVersion", "4.0")
	req.Header.Set("OData-Version", "4.0")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.trace.failure("web api request failed", "method", method, "url", endpoint, "error", err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, auth.WithCause(auth.ErrRemoteCall, err, map[string]any{"method": method})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, auth.WithCause(auth.ErrRemoteCall, err, map[string]any{"method": method})
	}

	c.trace.verbose("web api request",
		"method", method,
		"url", endpoint,
		"status", resp.StatusCode,
		"duration", time.Since(started),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		meta := map[string]any{
			"method": method,
			"status": resp.StatusCode,
		}
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			meta["remote_code"] = apiErr.Error.Code
			meta["remote_message"] = apiErr.Error.Message
		}
		c.trace.warn("web api request rejected", "method", method, "url", endpoint, "status", resp.StatusCode)
		return nil, auth.WithCause(auth.ErrRemoteCall, nil, meta)
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

// notFound turns a remote 404 into entitystore.ErrEntityNotFound.
func notFound(err error, logicalName string, id uuid.UUID) error {
	if err == nil {
		return nil
	}
	if statusOf(err) == http.StatusNotFound {
		return entitystore.NotFound(logicalName, id.String())
	}
	return err
}

func statusOf(err error) int {
	if !auth.HasTextCode(err, auth.TextCodeRemoteCall) {
		return 0
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		if status, ok := rich.Metadata["status"].(int); ok {
			return status
		}
	}
	return 0
}

func entityIDFromHeader(value string) (uuid.UUID, error) {
	open := strings.LastIndex(value, "(")
	end := strings.LastIndex(value, ")")
	if open < 0 || end <= open {
		return uuid.Nil, fmt.Errorf("missing entity id in %q", value)
	}
	return uuid.Parse(value[open+1 : end])
}

func toEntity(logicalName string, record map[string]any) *entitystore.Entity {
	e := entitystore.NewEntity(logicalName)
	primary := entitystore.PrimaryIDAttribute(logicalName)
	for k, v := range record {
		if strings.HasPrefix(k, "@odata.") || strings.Contains(k, "@") {
			continue
		}
		e.Attributes[k] = v
	}
	if raw, ok := record[primary].(string); ok {
		if id, err := uuid.Parse(raw); err == nil {
			e.ID = id
		}
	}
	return e
}
