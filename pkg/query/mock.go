package query

import (
	"context"
	"io/ioutil"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Mock is one request/response pair for MockTransport.
type Mock struct {
	Request MockRequest `yaml:"request"`
	Result  *Result     `yaml:"result"`
	// Error, if set, is returned as a transport error instead of Result.
	Error string        `yaml:"error"`
	Delay time.Duration `yaml:"delay"`
}

type MockRequest struct {
	Query     string    `yaml:"query"`
	Variables Variables `yaml:"variables"`
}

// SentRequest is a request MockTransport received.
type SentRequest struct {
	Query     string
	Variables Variables
}

type parsedMock struct {
	mock  Mock
	query string
	vars  string
}

// MockTransport answers queries from a fixed list of mocks, matching on
// the canonical query text and the variables by value.
type MockTransport struct {
	mocks []parsedMock

	mu       sync.Mutex
	requests []SentRequest
}

func NewMockTransport(mocks ...Mock) (*MockTransport, error) {
	mt := &MockTransport{}
	for idx, mock := range mocks {
		doc, err := Parse(mock.Request.Query)
		if err != nil {
			return nil, errors.Wrapf(err, "mock %d", idx)
		}
		mt.mocks = append(mt.mocks, parsedMock{
			mock:  mock,
			query: doc.String(),
			vars:  mock.Request.Variables.Key(),
		})
	}
	return mt, nil
}

// LoadMocks reads a YAML list of mocks.
func LoadMocks(path string) ([]Mock, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading mocks %s", path)
	}
	var mocks []Mock
	if err := yaml.Unmarshal(data, &mocks); err != nil {
		return nil, errors.Wrapf(err, "parsing mocks %s", path)
	}
	return mocks, nil
}

func (mt *MockTransport) Execute(ctx context.Context, doc *Document, vars Variables) (*Result, error) {
	text := doc.String()
	key := vars.Key()

	mt.mu.Lock()
	mt.requests = append(mt.requests, SentRequest{Query: text, Variables: copyVariables(vars)})
	mt.mu.Unlock()

	var found *Mock
	for idx := range mt.mocks {
		if mt.mocks[idx].query == text && mt.mocks[idx].vars == key {
			found = &mt.mocks[idx].mock
			break
		}
	}
	if found == nil {
		return nil, &noMockedResponse{Query: text, Variables: key}
	}

	timer := time.NewTimer(found.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	if found.Error != "" {
		return nil, errors.New(found.Error)
	}
	return found.Result, nil
}

// Requests returns every request received so far, in order.
func (mt *MockTransport) Requests() []SentRequest {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	requests := make([]SentRequest, len(mt.requests))
	copy(requests, mt.requests)
	return requests
}

func copyVariables(vars Variables) Variables {
	copied := make(Variables, len(vars))
	for k, v := range vars {
		copied[k] = v
	}
	return copied
}
