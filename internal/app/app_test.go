package app

import (
	"testing"

	"chitfund-backend/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestRedisConnOpt(t *testing.T) {
	opt := RedisConnOpt(config.RedisConfig{Addr: "redis:6379", Password: "pw", DB: 2})
	assert.Equal(t, "redis:6379", opt.Addr)
	assert.Equal(t, "pw", opt.Password)
	assert.Equal(t, 2, opt.DB)
}

func TestClose_ReverseOrder(t *testing.T) {
	var order []int
	a := &App{closers: []func() error{
		func() error { order = append(order, 1); return nil },
		func() error { order = append(order, 2); return nil },
	}}
	a.Close()
	a.Close()
	assert.Equal(t, []int{2, 1}, order)
}
