package credential

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
)

const testKeyring = "0123456789abcdef"

func encrypt(t *testing.T, plain string) string {
	block, err := aes.NewCipher([]byte(testKeyring))
	require.NoError(t, err)

	pad := aes.BlockSize - len(plain)%aes.BlockSize
	data := append([]byte(plain), bytes.Repeat([]byte{byte(pad)}, pad)...)

	out := make([]byte, aes.BlockSize+len(data))
	_, err = rand.Read(out[:aes.BlockSize])
	require.NoError(t, err)
	cipher.NewCBCEncrypter(block, out[:aes.BlockSize]).CryptBlocks(out[aes.BlockSize:], data)
	return base64.StdEncoding.EncodeToString(out)
}

func tokenConfig(t *testing.T, expiration time.Time) []byte {
	b, err := json.Marshal(EncryptedCredentialInfo{
		AccessKeyID:     encrypt(t, testAccessKeyID),
		AccessKeySecret: encrypt(t, testAccessKeySecret),
		SecurityToken:   encrypt(t, testSecurityToken),
		Expiration:      expiration.UTC().Format(encryptedExpirationLayout),
		Keyring:         testKeyring,
	})
	require.NoError(t, err)
	return b
}

func TestEncryptedFetcher_File(t *testing.T) {
	expiration := time.Now().Add(time.Hour).Truncate(time.Second)
	path := filepath.Join(t.TempDir(), "token-config")
	require.NoError(t, os.WriteFile(path, tokenConfig(t, expiration), 0o600))

	c, err := NewEncryptedFetcher(path, "", "", nil).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testAccessKeyID, c.AccessKeyID)
	assert.Equal(t, testAccessKeySecret, c.AccessKeySecret)
	assert.Equal(t, testSecurityToken, c.SecurityToken)
	assert.True(t, expiration.Equal(c.Expiration))
}

func TestEncryptedFetcher_Secret(t *testing.T) {
	expiration := time.Now().Add(time.Hour)
	client := fake.NewSimpleClientset(&corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Namespace: "kube-system", Name: "addon.oss.token"},
		Data:       map[string][]byte{secretTokenKey: tokenConfig(t, expiration)},
	})

	p, err := NewEncryptedProvider(EncryptedOptions{SecretNamespace: "kube-system", SecretName: "addon.oss.token", KubeClient: client})
	require.NoError(t, err)
	c := p.GetCredentials(context.Background())
	require.NotNil(t, c)
	assert.Equal(t, testAccessKeyID, c.AccessKeyID)
	assert.Equal(t, encryptedFetcherName, p.Name())
}

func TestEncryptedFetcher_SecretErrors(t *testing.T) {
	client := fake.NewSimpleClientset(&corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Namespace: "kube-system", Name: "wrong-key"},
		Data:       map[string][]byte{"other": []byte("x")},
	})

	_, err := NewEncryptedFetcher("", "kube-system", "missing", client).Fetch(context.Background())
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FetchErrorSource, fe.Kind)
	assert.True(t, apierrors.IsNotFound(err))

	_, err = NewEncryptedFetcher("", "kube-system", "wrong-key", client).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), secretTokenKey)

	_, err = NewEncryptedFetcher("", "kube-system", "wrong-key", nil).Fetch(context.Background())
	assert.True(t, IsFetchError(err))
}

func TestEncryptedFetcher_SingleSecretGet(t *testing.T) {
	client := fake.NewSimpleClientset()
	gets := 0
	client.PrependReactor("get", "secrets", func(action k8stesting.Action) (bool, runtime.Object, error) {
		gets++
		return false, nil, nil
	})

	start := time.Now()
	_, err := NewEncryptedFetcher("", "kube-system", "missing", client).Fetch(context.Background())
	assert.True(t, IsFetchError(err))
	assert.Equal(t, 1, gets)
	assert.Less(t, time.Since(start), time.Second)

	client.PrependReactor("get", "secrets", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, apierrors.NewTooManyRequests("slow down", 1)
	})
	_, err = NewEncryptedFetcher("", "kube-system", "missing", client).Fetch(context.Background())
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FetchErrorNetwork, fe.Kind)
	assert.Equal(t, 1, gets)
}

func TestEncryptedFetcher_Malformed(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, b []byte) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, b, 0o600))
		return path
	}

	tests := map[string][]byte{
		"not json":       []byte("{"),
		"bad base64":     []byte(`{"access.key.id":"%%%","keyring":"` + testKeyring + `"}`),
		"short keyring":  []byte(`{"access.key.id":"` + encrypt(t, "ak") + `","keyring":"short"}`),
		"bad expiration": []byte(`{"access.key.id":"` + encrypt(t, "ak") + `","access.key.secret":"` + encrypt(t, "sk") + `","security.token":"` + encrypt(t, "token") + `","expiration":"tomorrow","keyring":"` + testKeyring + `"}`),
	}
	for name, b := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewEncryptedFetcher(write(name, b), "", "", nil).Fetch(context.Background())
			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, FetchErrorMalformed, fe.Kind)
		})
	}

	_, err := NewEncryptedFetcher(filepath.Join(dir, "absent"), "", "", nil).Fetch(context.Background())
	assert.True(t, IsFetchError(err))
}

func TestNewEncryptedProvider_Validation(t *testing.T) {
	_, err := NewEncryptedProvider(EncryptedOptions{})
	assert.True(t, IsConfigurationError(err))

	_, err = NewEncryptedProvider(EncryptedOptions{SecretName: "name"})
	assert.True(t, IsConfigurationError(err))

	_, err = NewEncryptedProvider(EncryptedOptions{SecretNamespace: "ns", SecretName: "name"})
	assert.True(t, IsConfigurationError(err))

	_, err = NewEncryptedProvider(EncryptedOptions{CredentialPath: DefaultEncryptedCredentialPath})
	assert.NoError(t, err)
}

func TestDecrypt(t *testing.T) {
	out, err := decrypt(encrypt(t, "hello oss"), []byte(testKeyring))
	require.NoError(t, err)
	assert.Equal(t, "hello oss", string(out))

	_, err = decrypt(base64.StdEncoding.EncodeToString([]byte("short")), []byte(testKeyring))
	assert.Error(t, err)
}
