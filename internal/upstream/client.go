package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultLimit         = 100
	defaultTimeout       = 15 * time.Second
	defaultRetryAttempts = 3
	defaultRetryBackoff  = 200 * time.Millisecond
	maxBodyBytes         = 32 << 20
)

// Source 一个上游top榜单
type Source struct {
	Name string
	URL  string
}

// Config 客户端配置，零值字段使用默认值
type Config struct {
	HTTPClient    *http.Client
	Limit         int
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
	Logger        *zap.Logger
}

// FetchError 拉取某个数据源失败
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Client 拉取上游JSON榜单
type Client struct {
	httpClient    *http.Client
	limit         int
	timeout       time.Duration
	retryAttempts int
	retryBackoff  time.Duration
	log           *zap.Logger
}

// NewClient 创建客户端
func NewClient(cfg Config) *Client {
	c := &Client{
		httpClient:    cfg.HTTPClient,
		limit:         cfg.Limit,
		timeout:       cfg.Timeout,
		retryAttempts: cfg.RetryAttempts,
		retryBackoff:  cfg.RetryBackoff,
		log:           cfg.Logger,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.limit <= 0 {
		c.limit = defaultLimit
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.retryAttempts <= 0 {
		c.retryAttempts = defaultRetryAttempts
	}
	if c.retryBackoff <= 0 {
		c.retryBackoff = defaultRetryBackoff
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// FetchAll 并发拉取全部数据源，全部完成后按sources顺序返回
func (c *Client) FetchAll(ctx context.Context, sources []Source) ([][]gjson.Result, error) {
	results := make([][]gjson.Result, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range sources {
		g.Go(func() error {
			entries, err := c.Fetch(gctx, src)
			if err != nil {
				return err
			}
			results[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Fetch 拉取单个数据源，展开一层嵌套数组后截取前limit条
func (c *Client) Fetch(ctx context.Context, src Source) ([]gjson.Result, error) {
	policy := backoff.WithContext(c.newBackOff(), ctx)

	notify := func(err error, wait time.Duration) {
		c.log.Warn("拉取上游失败，准备重试",
			zap.String("source", src.Name),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	body, err := backoff.RetryNotifyWithData(func() ([]byte, error) {
		return c.get(ctx, src.URL)
	}, policy, notify)
	if err != nil {
		return nil, &FetchError{Source: src.Name, Err: err}
	}

	entries, err := ParseList(body, c.limit)
	if err != nil {
		return nil, &FetchError{Source: src.Name, Err: err}
	}

	c.log.Info("上游榜单拉取完成",
		zap.String("source", src.Name),
		zap.Int("entries", len(entries)),
	)
	return entries, nil
}

func (c *Client) newBackOff() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.retryBackoff
	exp.MaxInterval = 10 * c.retryBackoff
	exp.MaxElapsedTime = 0
	return backoff.WithMaxRetries(exp, uint64(c.retryAttempts-1))
}

// get 单次请求，4xx不重试
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(statusErr)
		}
		return nil, statusErr
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// ParseList 解析榜单：顶层必须是数组，展开一层后截取前limit条
func ParseList(body []byte, limit int) ([]gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON body")
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsArray() {
		return nil, fmt.Errorf("expected JSON array, got %s", doc.Type)
	}

	entries := Flatten(doc.Array())
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Flatten 展开一层嵌套数组
func Flatten(items []gjson.Result) []gjson.Result {
	out := make([]gjson.Result, 0, len(items))
	for _, item := range items {
		if item.IsArray() {
			out = append(out, item.Array()...)
			continue
		}
		out = append(out, item)
	}
	return out
}
