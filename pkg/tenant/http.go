package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/tenantctx/pkg/menu"
	"github.com/platinummonkey/tenantctx/pkg/permission"
)

const httpProviderTimeout = 10 * time.Second

// HTTPProvider resolves permissions and menus from the admin backend's
// REST API. Requests carry trace propagation via the otelhttp transport.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	token   string
	tracer  trace.Tracer
}

// HTTPProviderOptions tunes the HTTP provider.
type HTTPProviderOptions struct {
	// Timeout bounds each request; defaults to 10s.
	Timeout time.Duration

	// Token, when set, is sent as a bearer credential.
	Token string

	// Client overrides the default instrumented client (tests).
	Client *http.Client
}

// NewHTTPProvider creates a provider rooted at baseURL.
func NewHTTPProvider(baseURL string, opts HTTPProviderOptions) (*HTTPProvider, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("tenant: invalid provider base URL %q", baseURL)
	}

	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = httpProviderTimeout
		}
		client = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		token:   opts.Token,
		tracer:  otel.Tracer("github.com/platinummonkey/tenantctx/pkg/tenant"),
	}, nil
}

// GetPermissions fetches the permission set for (userID, branchID). An
// empty branchID short-circuits to the empty set without a round trip,
// per the provider contract.
func (p *HTTPProvider) GetPermissions(ctx context.Context, userID, branchID string) ([]permission.Permission, error) {
	if branchID == "" {
		return []permission.Permission{}, nil
	}

	ctx, span := p.tracer.Start(ctx, "provider.GetPermissions",
		trace.WithAttributes(
			attribute.String("tenant.user_id", userID),
			attribute.String("tenant.branch_id", branchID),
		))
	defer span.End()

	path := fmt.Sprintf("/users/%s/branches/%s/permissions",
		url.PathEscape(userID), url.PathEscape(branchID))

	var perms []permission.Permission
	if err := p.getJSON(ctx, path, &perms); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if perms == nil {
		perms = []permission.Permission{}
	}
	return perms, nil
}

// GetMenuForCompany fetches the company menu tree.
func (p *HTTPProvider) GetMenuForCompany(ctx context.Context, companyID string) ([]menu.Node, error) {
	ctx, span := p.tracer.Start(ctx, "provider.GetMenuForCompany",
		trace.WithAttributes(attribute.String("tenant.company_id", companyID)))
	defer span.End()

	var nodes []menu.Node
	if err := p.getJSON(ctx, "/companies/"+url.PathEscape(companyID)+"/menu", &nodes); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return nodes, nil
}

// GetMenuForBranch fetches the branch menu tree.
func (p *HTTPProvider) GetMenuForBranch(ctx context.Context, branchID string) ([]menu.Node, error) {
	ctx, span := p.tracer.Start(ctx, "provider.GetMenuForBranch",
		trace.WithAttributes(attribute.String("tenant.branch_id", branchID)))
	defer span.End()

	var nodes []menu.Node
	if err := p.getJSON(ctx, "/branches/"+url.PathEscape(branchID)+"/menu", &nodes); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return nodes, nil
}

func (p *HTTPProvider) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("tenant: provider request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("tenant: provider request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("tenant: provider %s returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("tenant: provider %s decode: %w", path, err)
	}
	return nil
}
