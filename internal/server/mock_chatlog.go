package server

import (
	"github.com/disasternet/chatd/internal/types"
	"github.com/stretchr/testify/mock"
)

type MockMessageSink struct {
	mock.Mock
}

func (m *MockMessageSink) Log(msg types.Message) {
	m.Called(msg)
}
