package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"

	"github.com/aliyun/alibaba-cloud-sdk-go/sdk/auth/signers"
)

func init() {
	Register(hmacSHA1{})
	Register(hmacSHA256{})
}

// hmacSHA1 is the signature of OSS header authentication version 1.
type hmacSHA1 struct{}

func (hmacSHA1) Name() string    { return AlgorithmHmacSHA1 }
func (hmacSHA1) Version() string { return Version1 }

func (hmacSHA1) Compute(stringToSign, secret string) string {
	return signers.ShaHmac1(stringToSign, secret)
}

type hmacSHA256 struct{}

func (hmacSHA256) Name() string    { return AlgorithmHmacSHA256 }
func (hmacSHA256) Version() string { return Version2 }

func (hmacSHA256) Compute(stringToSign, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
