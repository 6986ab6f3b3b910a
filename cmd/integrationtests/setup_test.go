package integrationtests

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	bidding "auction-ledger/internal/biddingService"
	"auction-ledger/internal/repository"
	"auction-ledger/internal/server"
	"auction-ledger/utils"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	utils.SetOutput(io.Discard)
	os.Exit(m.Run())
}

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// testClock is a manually advanced clock shared by the service and sweeper
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testEnv is a router wired to a real service over the memory repo
type testEnv struct {
	router *gin.Engine
	clock  *testClock
}

// SetupTestEnv initializes the router with in-memory repository for integration testing.
func SetupTestEnv() *testEnv {
	clock := &testClock{now: testStart}
	repo := repository.NewMemoryRepo()
	service := bidding.NewBiddingService(repo, nil).WithClock(clock.Now)
	return &testEnv{router: server.SetupRouter(service), clock: clock}
}

// caller identifies the request sender; the zero value is anonymous
type caller struct {
	UserID string
	Role   string
}

var (
	anonymous = caller{}
	seller    = caller{UserID: "seller"}
	alice     = caller{UserID: "alice"}
	bob       = caller{UserID: "bob"}
	admin     = caller{UserID: "root", Role: "admin"}
)

// ExecuteRequestAndParse executes an HTTP request on the router and parses the envelope
func (e *testEnv) ExecuteRequestAndParse(t *testing.T, as caller, method, url string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	var err error

	switch v := body.(type) {
	case nil:
	case string:
		reqBody = []byte(v)
	default:
		reqBody, err = json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if as.UserID != "" {
		req.Header.Set(server.HeaderUserID, as.UserID)
	}
	if as.Role != "" {
		req.Header.Set(server.HeaderUserRole, as.Role)
	}
	e.router.ServeHTTP(w, req)

	var resp map[string]any
	if len(w.Body.Bytes()) > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to unmarshal response: %v", err)
		}
	}

	return resp, w
}

// data returns the envelope's data object
func data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	d, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatalf("response has no data object: %v", resp)
	}
	return d
}
