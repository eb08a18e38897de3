package kalshi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://demo-api.kalshi.co/trade-api/v2"

	// Rate limits bajo los límites documentados del tier básico.
	// Lecturas: 10/s documentado → 8/s. Escrituras (orders): 5/s → 4/s.
	readRatePerSec  = 8
	writeRatePerSec = 4

	maxRetries = 3

	quoteTTL = 20 * time.Second
)

// APIError representa una respuesta de error de la API de Kalshi.
type APIError struct {
	StatusCode int
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kalshi api error %d: %s", e.StatusCode, string(e.Body))
}

// IsRetryable reporta si el error amerita reintento (429 o 5xx).
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client es el HTTP client de Kalshi con firma RSA-PSS, rate limiting y
// retries. creds puede ser nil: los endpoints públicos siguen funcionando
// y los autenticados devuelven ErrAuthNotConfigured.
type Client struct {
	http         *http.Client
	baseURL      string
	creds        *Credentials
	readLimiter  *rate.Limiter
	writeLimiter *rate.Limiter
	quotes       *quoteCache

	// sleep es inyectable para no dormir en tests.
	sleep func(ctx context.Context, attempt int)
}

// NewClient crea un Client contra el base URL dado. Si baseURL está vacío
// usa el entorno demo.
func NewClient(baseURL string, creds *Credentials) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		http:         &http.Client{Timeout: 10 * time.Second},
		baseURL:      baseURL,
		creds:        creds,
		readLimiter:  rate.NewLimiter(readRatePerSec, 4),
		writeLimiter: rate.NewLimiter(writeRatePerSec, 2),
		quotes:       newQuoteCache(quoteTTL),
	}
	c.sleep = c.backoffSleep
	return c
}

// Authenticated reporta si el cliente tiene credenciales cargadas.
func (c *Client) Authenticated() bool {
	return c.creds != nil
}

// get hace un GET con rate limiting y retries. Si auth es true, firma la
// request; sin credenciales falla cerrado antes de tocar la red.
func (c *Client) get(ctx context.Context, limiter *rate.Limiter, path string, auth bool, out any) error {
	if auth && c.creds == nil {
		return ErrAuthNotConfigured
	}
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if auth {
			if err := c.creds.Sign(req); err != nil {
				return nil, err
			}
		}
		return c.http.Do(req)
	}, out)
}

// post hace un POST JSON autenticado con rate limiting y retries.
func (c *Client) post(ctx context.Context, limiter *rate.Limiter, path string, body, out any) error {
	if c.creds == nil {
		return ErrAuthNotConfigured
	}
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if err := c.creds.Sign(req); err != nil {
			return nil, err
		}
		return c.http.Do(req)
	}, out)
}

// del hace un DELETE autenticado con rate limiting y retries.
func (c *Client) del(ctx context.Context, limiter *rate.Limiter, path string, out any) error {
	if c.creds == nil {
		return ErrAuthNotConfigured
	}
	return c.doWithRetry(ctx, limiter, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if err := c.creds.Sign(req); err != nil {
			return nil, err
		}
		return c.http.Do(req)
	}, out)
}

// doWithRetry ejecuta la función con backoff exponencial. 429 y 5xx se
// reintentan; otros 4xx son definitivos y devuelven APIError.
func (c *Client) doWithRetry(ctx context.Context, limiter *rate.Limiter, fn func() (*http.Response, error), out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		resp, err := fn()
		if err != nil {
			if attempt == maxRetries {
				return fmt.Errorf("request failed after %d retries: %w", maxRetries, err)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			if attempt == maxRetries {
				return fmt.Errorf("after %d retries: %w", maxRetries, &APIError{StatusCode: resp.StatusCode, Body: body})
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				slog.Warn("rate limited by Kalshi", "attempt", attempt+1)
			}
			c.sleep(ctx, attempt)
			continue
		}

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return &APIError{StatusCode: resp.StatusCode, Body: body}
		}

		defer resp.Body.Close()
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("exhausted %d retries", maxRetries)
}

// backoffSleep espera 2^attempt segundos respetando el contexto.
func (c *Client) backoffSleep(ctx context.Context, attempt int) {
	wait := time.Duration(math.Pow(2, float64(attempt))) * time.Second
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
