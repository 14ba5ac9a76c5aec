package pushover

import "sync"

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the shared client set up by Init, or nil before the first
// Init. Methods on that nil client do not panic: Token returns "" and the
// others fail with ErrNotInitialized.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultClient
}

// Init returns the shared client for appToken. A new client is built only when
// none exists yet or the shared one uses a different token; opts apply to that
// new client only. Prefer NewClient and passing the client explicitly.
func Init(appToken string, opts ...Option) (*Client, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultClient != nil && defaultClient.Token() == appToken {
		return defaultClient, nil
	}

	client, err := NewClient(appToken, opts...)
	if err != nil {
		return nil, err
	}
	defaultClient = client
	return client, nil
}
