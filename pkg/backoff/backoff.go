package backoff

import (
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// backoff keys
const (
	DefaultKey           = ""
	WaitCredentialsReady = "wait_credentials_ready"
	MetadataRequest      = "metadata_request"
)

var backoffMap = map[string]wait.Backoff{
	DefaultKey: {
		Duration: time.Second * 2,
		Factor:   1.5,
		Jitter:   0.3,
		Steps:    6,
	},
	WaitCredentialsReady: {
		Duration: time.Second,
		Factor:   1,
		Jitter:   0.2,
		Steps:    60,
	},
	MetadataRequest: {
		Duration: time.Millisecond * 200,
		Factor:   2,
		Jitter:   0.2,
		Steps:    3,
	},
}

func OverrideBackoff(in map[string]wait.Backoff) {
	for k, v := range in {
		backoffMap[k] = v
	}
}

func Backoff(key string) wait.Backoff {
	b, ok := backoffMap[key]
	if !ok {
		return backoffMap[DefaultKey]
	}
	return b
}
