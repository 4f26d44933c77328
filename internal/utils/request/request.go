package request

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

var Request = New(15*time.Second, 3)

// New builds a resty client that honours proxy env vars and retries upstream overload.
func New(timeout time.Duration, retries int) *resty.Client {
	return resty.New().SetTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment, // 通用适配环境变量
	}).
		SetTimeout(timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && (r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError)
		})
}
