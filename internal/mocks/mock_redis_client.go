package mocks

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

type MockRedisClient struct {
	mock.Mock
	redis.UniversalClient
}

func (m *MockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	args := m.Called(ctx, key, value, expiration)
	return args.Get(0).(*redis.BoolCmd)
}

func (m *MockRedisClient) EvalSha(ctx context.Context, sha1 string, keys []string, args ...interface{}) *redis.Cmd {
	callArgs := append([]interface{}{ctx, sha1, keys}, args...)
	result := m.Called(callArgs...)
	return result.Get(0).(*redis.Cmd)
}

func (m *MockRedisClient) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	callArgs := append([]interface{}{ctx, script, keys}, args...)
	result := m.Called(callArgs...)
	return result.Get(0).(*redis.Cmd)
}

func (m *MockRedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	args := m.Called(ctx)
	return args.Get(0).(*redis.StatusCmd)
}

type MockRedisError struct {
	Msg string
}

func (m MockRedisError) Error() string {
	return m.Msg
}

func (m MockRedisError) RedisError() {
	// This method is used to satisfy the redis.Error interface.
}
