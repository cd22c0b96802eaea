package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/WikipediaBrown/Kew-Developer/codec"
	"github.com/WikipediaBrown/Kew-Developer/endpoint"
	"github.com/WikipediaBrown/Kew-Developer/http"
)

// MockClient provides a testify-based mock implementation of the http.Client interface.
//
// Example usage:
//
//	mockClient := &mocks.MockClient{}
//	mockClient.On("Send", mock.Anything, endpoint.Ollama, mock.Anything).
//		Return(&http.Response{StatusCode: 200, Body: []byte(`{"done":true}`)}, nil)
//	mockClient.On("Decoder").Return(codec.DefaultDecoder)
//
//	service := chat.NewService(mockClient)
type MockClient struct {
	mock.Mock
}

var _ http.Client = (*MockClient)(nil)

// Fetch implements http.Client. Call options are not passed to Called.
func (m *MockClient) Fetch(ctx context.Context, ep endpoint.Endpoint, _ ...http.CallOption) (*http.Response, error) {
	arguments := m.Called(ctx, ep)
	if arguments.Get(0) == nil {
		return nil, arguments.Error(1)
	}
	return arguments.Get(0).(*http.Response), arguments.Error(1)
}

// Send implements http.Client. Call options are not passed to Called.
func (m *MockClient) Send(ctx context.Context, ep endpoint.Endpoint, body any, _ ...http.CallOption) (*http.Response, error) {
	arguments := m.Called(ctx, ep, body)
	if arguments.Get(0) == nil {
		return nil, arguments.Error(1)
	}
	return arguments.Get(0).(*http.Response), arguments.Error(1)
}

// Decoder implements http.Client
func (m *MockClient) Decoder() codec.Decoder {
	arguments := m.Called()
	if arguments.Get(0) == nil {
		return nil
	}
	return arguments.Get(0).(codec.Decoder)
}

// ExpectSend sets up a Send expectation answering status and body.
func (m *MockClient) ExpectSend(ep endpoint.Endpoint, status int, body string) *mock.Call {
	return m.On("Send", mock.Anything, ep, mock.Anything).
		Return(&http.Response{StatusCode: status, Body: []byte(body)}, nil)
}

// ExpectSendError sets up a Send expectation failing with err.
func (m *MockClient) ExpectSendError(ep endpoint.Endpoint, err error) *mock.Call {
	return m.On("Send", mock.Anything, ep, mock.Anything).Return(nil, err)
}

// ExpectDecoder sets up the client's default decoder.
func (m *MockClient) ExpectDecoder(d codec.Decoder) *mock.Call {
	return m.On("Decoder").Return(d)
}
