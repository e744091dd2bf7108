package signer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aliyun/oss-credentials/pkg/credential"
	"github.com/aliyun/oss-credentials/pkg/metric"
)

const (
	AlgorithmHmacSHA1   = "HmacSHA1"
	AlgorithmHmacSHA256 = "HmacSHA256"

	Version1 = "1"
	Version2 = "2"

	DefaultVersion = Version1
)

var ErrUnsupportedAlgorithm = errors.New("unsupported signature algorithm")

// SigningError malformed credential material reached the signer.
type SigningError struct {
	Algorithm string
	Version   string
	Reason    string
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("sign with %s version %s failed: %s", e.Algorithm, e.Version, e.Reason)
}

// Algorithm computes a signature over an already canonicalized string.
type Algorithm interface {
	Name() string
	Version() string
	Compute(stringToSign, secret string) string
}

type key struct {
	name    string
	version string
}

var (
	lock       sync.RWMutex
	algorithms = map[key]Algorithm{}
	// default algorithm of each version
	versions = map[string]Algorithm{}
)

// Register adds an algorithm, the first one registered for a version
// becomes the default of that version.
func Register(a Algorithm) {
	lock.Lock()
	defer lock.Unlock()

	algorithms[key{name: a.Name(), version: a.Version()}] = a
	if _, ok := versions[a.Version()]; !ok {
		versions[a.Version()] = a
	}
}

// Lookup by algorithm name and version.
func Lookup(name, version string) (Algorithm, error) {
	lock.RLock()
	defer lock.RUnlock()

	a, ok := algorithms[key{name: name, version: version}]
	if !ok {
		return nil, fmt.Errorf("%w: %s version %s", ErrUnsupportedAlgorithm, name, version)
	}
	return a, nil
}

// ForVersion returns the default algorithm of a signature version.
func ForVersion(version string) (Algorithm, error) {
	lock.RLock()
	defer lock.RUnlock()

	a, ok := versions[version]
	if !ok {
		return nil, fmt.Errorf("%w: version %s", ErrUnsupportedAlgorithm, version)
	}
	return a, nil
}

// Sign computes the signature of stringToSign with the default algorithm of version.
func Sign(creds *credential.Credentials, stringToSign, version string) (string, error) {
	a, err := ForVersion(version)
	if err != nil {
		metric.SignCount.WithLabelValues("", version, "true").Inc()
		return "", err
	}
	return SignWith(a, creds, stringToSign)
}

func SignWith(a Algorithm, creds *credential.Credentials, stringToSign string) (string, error) {
	if err := checkCredentials(a, creds); err != nil {
		return "", err
	}
	metric.SignCount.WithLabelValues(a.Name(), a.Version(), "false").Inc()
	return a.Compute(stringToSign, creds.AccessKeySecret), nil
}

func checkCredentials(a Algorithm, creds *credential.Credentials) error {
	reason := ""
	switch {
	case creds == nil:
		reason = "credentials are nil"
	case creds.AccessKeyID == "" || creds.AccessKeySecret == "":
		reason = "access key id or secret is empty"
	default:
		return nil
	}
	metric.SignCount.WithLabelValues(a.Name(), a.Version(), "true").Inc()
	return &SigningError{Algorithm: a.Name(), Version: a.Version(), Reason: reason}
}
