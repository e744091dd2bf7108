package credential

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

const (
	encryptedFetcherName = "EncryptedConfig"

	// DefaultEncryptedCredentialPath written by the ack addon token controller
	DefaultEncryptedCredentialPath = "/var/addon/token-config"
	secretTokenKey                 = "addon.token.config"
	encryptedExpirationLayout      = "2006-01-02T15:04:05Z"
)

type EncryptedCredentialInfo struct {
	AccessKeyID     string `json:"access.key.id"`
	AccessKeySecret string `json:"access.key.secret"`
	SecurityToken   string `json:"security.token"`
	Expiration      string `json:"expiration"`
	Keyring         string `json:"keyring"`
}

// EncryptedFetcher get token from file or secret.
type EncryptedFetcher struct {
	credentialPath  string
	secretNamespace string
	secretName      string

	k8s kubernetes.Interface
}

// NewEncryptedFetcher reads credentialPath when set, the secret otherwise.
func NewEncryptedFetcher(credentialPath, secretNamespace, secretName string, k8s kubernetes.Interface) *EncryptedFetcher {
	return &EncryptedFetcher{
		credentialPath:  credentialPath,
		secretNamespace: secretNamespace,
		secretName:      secretName,
		k8s:             k8s,
	}
}

func (e *EncryptedFetcher) Fetch(ctx context.Context) (*Credentials, error) {
	encodeTokenCfg, err := e.read(ctx)
	if err != nil {
		kind := FetchErrorSource
		if errors.IsTimeout(err) || errors.IsServerTimeout(err) || errors.IsTooManyRequests(err) || errors.IsServiceUnavailable(err) {
			kind = FetchErrorNetwork
		}
		return nil, newFetchError(encryptedFetcherName, kind, err)
	}

	var akInfo EncryptedCredentialInfo
	err = json.Unmarshal(encodeTokenCfg, &akInfo)
	if err != nil {
		return nil, newFetchError(encryptedFetcherName, FetchErrorMalformed, fmt.Errorf("error unmarshal token config: %w", err))
	}
	keyring := []byte(akInfo.Keyring)
	ak, err := decrypt(akInfo.AccessKeyID, keyring)
	if err != nil {
		return nil, newFetchError(encryptedFetcherName, FetchErrorMalformed, fmt.Errorf("failed to decode ak, err: %w", err))
	}
	sk, err := decrypt(akInfo.AccessKeySecret, keyring)
	if err != nil {
		return nil, newFetchError(encryptedFetcherName, FetchErrorMalformed, fmt.Errorf("failed to decode sk, err: %w", err))
	}
	token, err := decrypt(akInfo.SecurityToken, keyring)
	if err != nil {
		return nil, newFetchError(encryptedFetcherName, FetchErrorMalformed, fmt.Errorf("failed to decode token, err: %w", err))
	}
	if len(ak) == 0 || len(sk) == 0 {
		return nil, newFetchError(encryptedFetcherName, FetchErrorMissingField, fmt.Errorf("empty access key in token config"))
	}
	t, err := time.Parse(encryptedExpirationLayout, akInfo.Expiration)
	if err != nil {
		return nil, newFetchError(encryptedFetcherName, FetchErrorMalformed, fmt.Errorf("failed to parse expiration time, err: %w", err))
	}

	c := NewCredentials(string(ak), string(sk), string(token), t)
	c.ProviderName = encryptedFetcherName
	return c, nil
}

func (e *EncryptedFetcher) read(ctx context.Context) ([]byte, error) {
	if e.credentialPath != "" {
		log.Debugf("resolve encrypted credential %s", e.credentialPath)
		b, err := os.ReadFile(e.credentialPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read token config %s, err: %w", e.credentialPath, err)
		}
		return b, nil
	}

	if e.k8s == nil {
		return nil, fmt.Errorf("kubernetes client is required to read secret %s/%s", e.secretNamespace, e.secretName)
	}
	log.Debugf("resolve secret %s/%s", e.secretNamespace, e.secretName)

	// a single get, a missing secret is retried by the next refresh
	secret, err := e.k8s.CoreV1().Secrets(e.secretNamespace).Get(ctx, e.secretName, metav1.GetOptions{})
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, fmt.Errorf("secret %s/%s not found: %w", e.secretNamespace, e.secretName, err)
		}
		return nil, fmt.Errorf("failed to get secret %s/%s: %w", e.secretNamespace, e.secretName, err)
	}
	b, ok := secret.Data[secretTokenKey]
	if !ok {
		return nil, fmt.Errorf("%s is not found in secret %s/%s", secretTokenKey, e.secretNamespace, e.secretName)
	}
	return b, nil
}

func (e *EncryptedFetcher) Name() string {
	return encryptedFetcherName
}

func pks5UnPadding(origData []byte) ([]byte, error) {
	length := len(origData)
	if length == 0 {
		return nil, fmt.Errorf("empty data")
	}
	unpadding := int(origData[length-1])
	if unpadding == 0 || unpadding > length {
		return nil, fmt.Errorf("invalid padding")
	}
	return origData[:(length - unpadding)], nil
}

func decrypt(s string, keyring []byte) ([]byte, error) {
	cdata, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 string, err: %w", err)
	}
	block, err := aes.NewCipher(keyring)
	if err != nil {
		return nil, fmt.Errorf("failed to new cipher, err:%w", err)
	}
	blockSize := block.BlockSize()
	if len(cdata) < 2*blockSize || len(cdata)%blockSize != 0 {
		return nil, fmt.Errorf("invalid cipher text length %d", len(cdata))
	}

	iv := cdata[:blockSize]
	blockMode := cipher.NewCBCDecrypter(block, iv)
	origData := make([]byte, len(cdata)-blockSize)

	blockMode.CryptBlocks(origData, cdata[blockSize:])

	return pks5UnPadding(origData)
}
