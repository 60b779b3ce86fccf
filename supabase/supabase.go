package supabase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	supa "github.com/nedpals/supabase-go"
)

const requestTimeout = time.Second * 10

// Filter is one postgrest filter applied to a Select call.
type Filter struct {
	Column string
	Op     string // "eq", "gte" or "lt"
	Value  string
}

func Eq(column, value string) Filter  { return Filter{Column: column, Op: "eq", Value: value} }
func Gte(column, value string) Filter { return Filter{Column: column, Op: "gte", Value: value} }
func Lt(column, value string) Filter  { return Filter{Column: column, Op: "lt", Value: value} }

// Client provides an interface onto the Supabase platform.
// It hides the underlying open source supabase library and adds reconnection and timeout logic.
// Safe for concurrent use: callers like the report builder fan out one goroutine per device
// over a single shared Client.
type Client struct {
	url     string
	anonKey string
	schema  string

	mu              sync.Mutex   // guards subClient and shouldReconnect
	subClient       *supa.Client // the raw client of the underlying supabase library we are using
	shouldReconnect bool         // when true, the subClient is 'dirty' and will be re-created next time a read or write call is made
	logger          *slog.Logger
}

func New(url, anonKey, schema string) *Client {
	return &Client{
		url:             url,
		anonKey:         anonKey,
		schema:          schema,
		shouldReconnect: true, // the connection is made lazily on the first request
		logger:          slog.Default().With("host", url),
	}
}

// Select reads rows from the given table into `results`, which must be a pointer to a
// slice. The supabase client library has no context support, so the call is wrapped in a
// timeout and honours ctx cancellation.
func (c *Client) Select(ctx context.Context, table string, filters []Filter, results interface{}) error {
	subClient := c.reconnectIfNeccesary()

	errCh := make(chan error, 1)
	go func() {
		query := &subClient.DB.From(table).Select("*").FilterRequestBuilder
		for _, filter := range filters {
			switch filter.Op {
			case "eq":
				query = query.Eq(filter.Column, filter.Value)
			case "gte":
				query = query.Gte(filter.Column, filter.Value)
			case "lt":
				query = query.Lt(filter.Column, filter.Value)
			default:
				errCh <- fmt.Errorf("unknown filter op: %q", filter.Op)
				return
			}
		}
		errCh <- query.Execute(results)
	}()

	select {
	case <-ctx.Done():
		c.setShouldReconnect()
		return ctx.Err()
	case <-time.After(requestTimeout):
		c.setShouldReconnect()
		return errors.New("timed out")
	case err := <-errCh:
		if err != nil {
			c.setShouldReconnect()
			return fmt.Errorf("select from %s: %w", table, err)
		}
		return nil
	}
}

// Insert writes the given rows to the given table, with the same timeout wrapping as Select.
func (c *Client) Insert(ctx context.Context, table string, rows interface{}) error {
	subClient := c.reconnectIfNeccesary()

	errCh := make(chan error, 1)
	go func() {
		errCh <- subClient.DB.From(table).Insert(rows).Execute(nil)
	}()

	select {
	case <-ctx.Done():
		c.setShouldReconnect()
		return ctx.Err()
	case <-time.After(requestTimeout):
		c.setShouldReconnect()
		return errors.New("timed out")
	case err := <-errCh:
		if err != nil {
			c.setShouldReconnect()
			return fmt.Errorf("insert into %s: %w", table, err)
		}
		return nil
	}
}

// createSubClient creates the open-source supabase library client with sensible defaults.
func (c *Client) createSubClient() {
	subClient := supa.CreateClient(c.url, c.anonKey)

	// The supabase client library doesn't have a fully featured interface, here we specify
	// options directly by adding headers to the postgrest requests.
	subClient.DB.AddHeader("Accept-Profile", c.schema)
	subClient.DB.AddHeader("Content-Profile", c.schema)

	c.subClient = subClient
}

// setShouldReconnect is called when there has been an error that should trigger a re-connect.
func (c *Client) setShouldReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldReconnect = true
}

// reconnectIfNeccesary recreates the underlying client if there have been problems with the
// connection, and returns the client the caller should use for this request. Callers hold
// onto the returned value rather than re-reading c.subClient, so a concurrent reconnect
// never swaps the client out from under an in-flight request.
func (c *Client) reconnectIfNeccesary() *supa.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shouldReconnect {
		c.createSubClient()
		c.shouldReconnect = false
		c.logger.Info("Created supabase client")
	}
	return c.subClient
}
