package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"storefront/mirror/internal/config"
	"storefront/mirror/internal/domain"
	"storefront/mirror/internal/metrics"
	"storefront/mirror/internal/proxy"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// CatalogClient reads the upstream catalog API
type CatalogClient interface {
	FetchCategoryTree(ctx context.Context) (*domain.CategoryTree, error)
	FetchCategoryDetail(ctx context.Context, categoryID int) (*domain.CategoryDetail, error)
	FetchProductDetail(ctx context.Context, productID string) (*domain.ProductDetail, error)
	Close() error
}

const (
	endpointCategoryTree   = "category_tree"
	endpointCategoryDetail = "category_detail"
	endpointProductDetail  = "product_detail"
)

type catalogClient struct {
	config        config.CatalogConfig
	httpClient    *resty.Client
	validate      *validator.Validate
	proxySupplier proxy.ProxySupplier
	metrics       *metrics.Metrics
	breaker       *breaker
}

func NewCatalogClient(cfg config.CatalogConfig, proxySupplier proxy.ProxySupplier, m *metrics.Metrics) CatalogClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.TimeoutDuration()).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetHeader("Accept-Language", "es-ES,es;q=0.9")

	if proxySupplier != nil {
		if proxyURL := proxySupplier.Get(); proxyURL != "" {
			client.SetProxy(proxyURL)
			log.Infof("🔗 Using initial proxy: %s", proxyURL)
		}
	}

	return &catalogClient{
		config:        cfg,
		httpClient:    client,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		proxySupplier: proxySupplier,
		metrics:       m,
		breaker:       newBreaker(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown()),
	}
}

func (c *catalogClient) FetchCategoryTree(ctx context.Context) (*domain.CategoryTree, error) {
	var tree domain.CategoryTree
	if err := c.fetchJSON(ctx, endpointCategoryTree, "", "/categories/", &tree); err != nil {
		return nil, err
	}

	log.Debugf("Fetched category tree with %d main categories", len(tree.Results))
	return &tree, nil
}

func (c *catalogClient) FetchCategoryDetail(ctx context.Context, categoryID int) (*domain.CategoryDetail, error) {
	id := strconv.Itoa(categoryID)

	var detail domain.CategoryDetail
	if err := c.fetchJSON(ctx, endpointCategoryDetail, id, "/categories/"+id, &detail); err != nil {
		return nil, err
	}

	return &detail, nil
}

func (c *catalogClient) FetchProductDetail(ctx context.Context, productID string) (*domain.ProductDetail, error) {
	var detail domain.ProductDetail
	if err := c.fetchJSON(ctx, endpointProductDetail, productID, "/products/"+url.PathEscape(productID), &detail); err != nil {
		return nil, err
	}

	return &detail, nil
}

func (c *catalogClient) Close() error {
	return c.httpClient.Close()
}

func (c *catalogClient) fetchJSON(ctx context.Context, endpoint, id, path string, out any) (err error) {
	defer func() {
		c.metrics.ObserveUpstream(endpoint, upstreamOutcome(err))
	}()

	if remaining := c.breaker.remaining(); remaining > 0 {
		log.Debugf("🚫 Request to %s blocked by circuit breaker for %v", path, remaining.Round(time.Second))
		return fmt.Errorf("circuit breaker is open - requests disabled for %v more", remaining.Round(time.Second))
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.TimeoutDuration())
	defer cancel()

	resp, err := c.get(reqCtx, path)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("request cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}

	if isBlocked(resp.StatusCode()) {
		log.Warnf("🚫 Upstream refused %s with %d", path, resp.StatusCode())

		resp, err = c.retryWithNextProxy(reqCtx, path, resp)
		if err != nil {
			c.breaker.refused()
			return err
		}
	}
	c.breaker.answered()

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", endpoint, id, domain.ErrNotFound)
	case !resp.IsSuccess():
		return &domain.UpstreamError{StatusCode: resp.StatusCode(), Status: resp.Status()}
	}

	body := resp.Bytes()
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.ValidationError{Entity: endpoint, ID: id, Err: err}
	}
	if err := c.validate.Struct(out); err != nil {
		return &domain.ValidationError{Entity: endpoint, ID: id, Err: err}
	}
	if src, ok := out.(interface{ SetSource([]byte) }); ok {
		src.SetSource(bytes.Clone(body))
	}

	return nil
}

func (c *catalogClient) get(ctx context.Context, path string) (*resty.Response, error) {
	return c.httpClient.R().
		SetContext(ctx).
		Get(path)
}

// retryWithNextProxy switches proxy once and repeats a refused request.
// Without proxies the refusal itself is returned as an UpstreamError.
func (c *catalogClient) retryWithNextProxy(ctx context.Context, path string, refused *resty.Response) (*resty.Response, error) {
	if c.proxySupplier == nil || c.proxySupplier.Len() == 0 {
		return nil, &domain.UpstreamError{StatusCode: refused.StatusCode(), Status: refused.Status()}
	}

	newProxy := c.proxySupplier.Get()
	log.Infof("🔄 Switching to new proxy: %s", newProxy)
	c.httpClient.SetProxy(newProxy)

	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s via new proxy: %w", path, err)
	}
	if isBlocked(resp.StatusCode()) {
		return nil, &domain.UpstreamError{StatusCode: resp.StatusCode(), Status: resp.Status()}
	}

	log.Infof("✅ Retry successful with new proxy")
	return resp, nil
}

func isBlocked(status int) bool {
	return status == http.StatusForbidden || status == http.StatusTooManyRequests
}

func upstreamOutcome(err error) string {
	var (
		verr *domain.ValidationError
		uerr *domain.UpstreamError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.As(err, &verr):
		return "invalid"
	case errors.As(err, &uerr):
		return "upstream_error"
	default:
		return "transport_error"
	}
}
