package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func statusResponse(code int, headers map[string]string) *http.Response {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &http.Response{StatusCode: code, Header: h}
}

func TestClassify_Nil(t *testing.T) {
	assert.Equal(t, ErrorKind(""), Classify(nil))
}

func TestClassify_RateLimited(t *testing.T) {
	err := NewStatusError("nvd", statusResponse(http.StatusTooManyRequests, nil))
	assert.Equal(t, KindRateLimited, Classify(err))
	assert.True(t, KindRateLimited.Retryable())
}

func TestClassify_Authentication(t *testing.T) {
	unauthorized := NewStatusError("nvd", statusResponse(http.StatusUnauthorized, nil))
	forbidden := NewStatusError("nvd", statusResponse(http.StatusForbidden, nil))

	assert.Equal(t, KindAuthentication, Classify(unauthorized))
	assert.Equal(t, KindAuthentication, Classify(forbidden))
	assert.False(t, KindAuthentication.Retryable())
}

func TestClassify_TransientServer(t *testing.T) {
	err := NewStatusError("nvd", statusResponse(http.StatusServiceUnavailable, nil))
	assert.Equal(t, KindTransientServer, Classify(err))
	assert.True(t, KindTransientServer.Retryable())
}

func TestClassify_ClientError(t *testing.T) {
	err := NewStatusError("nvd", statusResponse(http.StatusNotFound, nil))
	assert.Equal(t, KindClientError, Classify(err))
	assert.False(t, KindClientError.Retryable())
}

func TestClassify_DataFormat(t *testing.T) {
	err := NewDataFormatError("nvd", errors.New("unexpected end of JSON input"))
	assert.Equal(t, KindDataFormat, Classify(err))
	assert.False(t, KindDataFormat.Retryable())
}

func TestClassify_Timeout(t *testing.T) {
	assert.Equal(t, KindTimeout, Classify(context.DeadlineExceeded))
}

func TestClassify_NetworkOpError(t *testing.T) {
	err := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	assert.Equal(t, KindNetwork, Classify(err))
	assert.True(t, KindNetwork.Retryable())
}

func TestClassify_Unknown(t *testing.T) {
	assert.Equal(t, KindUnknown, Classify(errors.New("something unexpected")))
	assert.True(t, KindUnknown.Retryable())
}

func TestParseRetryAfter_SecondsForm(t *testing.T) {
	resp := statusResponse(http.StatusTooManyRequests, map[string]string{"Retry-After": "30"})
	err := NewStatusError("nvd", resp)
	assert.Equal(t, 30*time.Second, err.RetryAfter)
}

func TestParseRetryAfter_EmptyHeaderYieldsZero(t *testing.T) {
	resp := statusResponse(http.StatusTooManyRequests, nil)
	err := NewStatusError("nvd", resp)
	assert.Equal(t, time.Duration(0), err.RetryAfter)
}

func TestStatusError_UnwrapsUnderlyingError(t *testing.T) {
	err := NewStatusError("nvd", statusResponse(http.StatusInternalServerError, nil))
	assert.Contains(t, err.Error(), "nvd")
	assert.Contains(t, err.Error(), "500")
}
