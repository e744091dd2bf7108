package signer

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/aliyun/oss-credentials/pkg/credential"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderDate          = "Date"
	HeaderContentMD5    = "Content-MD5"
	HeaderContentType   = "Content-Type"
	HeaderSecurityToken = "x-oss-security-token"

	ossHeaderPrefix = "x-oss-"
)

// subResources take part in the canonical resource, other query
// parameters do not.
var subResources = map[string]struct{}{
	"acl": {}, "append": {}, "bucketInfo": {}, "cname": {}, "comp": {}, "cors": {},
	"delete": {}, "endTime": {}, "img": {}, "inventory": {}, "lifecycle": {}, "live": {},
	"location": {}, "logging": {}, "objectMeta": {}, "partNumber": {}, "policy": {},
	"position": {}, "qos": {}, "referer": {}, "replication": {}, "replicationLocation": {},
	"replicationProgress": {}, "requestPayment": {}, "restore": {}, "security-token": {},
	"sequential": {}, "startTime": {}, "stat": {}, "status": {}, "style": {}, "styleName": {},
	"symlink": {}, "tagging": {}, "udf": {}, "uploadId": {}, "uploads": {}, "versionId": {},
	"versioning": {}, "versions": {}, "vod": {}, "website": {}, "worm": {}, "wormExtend": {},
	"wormId": {}, "x-oss-process": {},
	"response-cache-control": {}, "response-content-disposition": {}, "response-content-encoding": {},
	"response-content-language": {}, "response-content-type": {}, "response-expires": {},
}

// CanonicalResource builds /bucket/object?subresources.
func CanonicalResource(bucket, object string, query url.Values) string {
	resource := "/"
	if bucket != "" {
		resource += bucket + "/" + object
	}

	var keys []string
	for k := range query {
		if _, ok := subResources[k]; ok {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return resource
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := query.Get(k)
		if v == "" {
			parts = append(parts, k)
		} else {
			parts = append(parts, k+"="+v)
		}
	}
	return resource + "?" + strings.Join(parts, "&")
}

// StringToSign is
//
//	VERB\nContent-MD5\nContent-Type\nDate\nCanonicalizedOSSHeaders+CanonicalizedResource
func StringToSign(method string, header http.Header, resource string) string {
	var ossKeys []string
	ossHeaders := map[string]string{}
	for k, v := range header {
		lk := strings.ToLower(k)
		if !strings.HasPrefix(lk, ossHeaderPrefix) {
			continue
		}
		if _, ok := ossHeaders[lk]; !ok {
			ossKeys = append(ossKeys, lk)
		}
		ossHeaders[lk] = strings.TrimSpace(strings.Join(v, ","))
	}
	sort.Strings(ossKeys)

	b := strings.Builder{}
	b.WriteString(strings.ToUpper(method))
	b.WriteString("\n")
	b.WriteString(header.Get(HeaderContentMD5))
	b.WriteString("\n")
	b.WriteString(header.Get(HeaderContentType))
	b.WriteString("\n")
	b.WriteString(header.Get(HeaderDate))
	b.WriteString("\n")
	for _, k := range ossKeys {
		b.WriteString(k)
		b.WriteString(":")
		b.WriteString(ossHeaders[k])
		b.WriteString("\n")
	}
	b.WriteString(resource)
	return b.String()
}

// CanonicalResourceV2 is the url encoded /bucket/object followed by every
// query parameter, sorted and encoded.
func CanonicalResourceV2(bucket, object string, query url.Values) string {
	resource := v2Escape("/")
	if bucket != "" {
		resource = v2Escape("/"+bucket+"/") + v2Escape(object)
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return resource
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := query.Get(k)
		if v == "" {
			parts = append(parts, v2Escape(k))
		} else {
			parts = append(parts, v2Escape(k)+"="+v2Escape(v))
		}
	}
	return resource + "?" + strings.Join(parts, "&")
}

// CanonicalResourceFor picks the canonical resource form of version.
func CanonicalResourceFor(version, bucket, object string, query url.Values) string {
	if version == Version2 {
		return CanonicalResourceV2(bucket, object, query)
	}
	return CanonicalResource(bucket, object, query)
}

func v2Escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// AdditionalHeaders returns the lower cased names in names that are present
// in header, sorted and deduplicated.
func AdditionalHeaders(header http.Header, names []string) []string {
	present := map[string]struct{}{}
	for k := range header {
		present[strings.ToLower(k)] = struct{}{}
	}
	seen := map[string]struct{}{}
	var out []string
	for _, n := range names {
		ln := strings.ToLower(n)
		if _, ok := present[ln]; !ok {
			continue
		}
		if _, ok := seen[ln]; ok {
			continue
		}
		seen[ln] = struct{}{}
		out = append(out, ln)
	}
	sort.Strings(out)
	return out
}

// StringToSignV2 is
//
//	VERB\nContent-MD5\nContent-Type\nDate\nCanonicalizedHeaders+AdditionalHeaders\nCanonicalizedResource
//
// where CanonicalizedHeaders covers the x-oss- headers and the additional
// headers, and AdditionalHeaders is their names joined with ";".
func StringToSignV2(method string, header http.Header, additional []string, resource string) string {
	signed := map[string]struct{}{}
	for _, k := range additional {
		signed[k] = struct{}{}
	}

	var keys []string
	values := map[string]string{}
	for k, v := range header {
		lk := strings.ToLower(k)
		if _, ok := signed[lk]; !ok && !strings.HasPrefix(lk, ossHeaderPrefix) {
			continue
		}
		if _, ok := values[lk]; !ok {
			keys = append(keys, lk)
		}
		values[lk] = strings.TrimSpace(strings.Join(v, ","))
	}
	sort.Strings(keys)

	b := strings.Builder{}
	b.WriteString(strings.ToUpper(method))
	b.WriteString("\n")
	b.WriteString(header.Get(HeaderContentMD5))
	b.WriteString("\n")
	b.WriteString(header.Get(HeaderContentType))
	b.WriteString("\n")
	b.WriteString(header.Get(HeaderDate))
	b.WriteString("\n")
	for _, k := range keys {
		b.WriteString(k)
		b.WriteString(":")
		b.WriteString(values[k])
		b.WriteString("\n")
	}
	b.WriteString(strings.Join(additional, ";"))
	b.WriteString("\n")
	b.WriteString(resource)
	return b.String()
}

// SignRequest sets Date when absent, the security token header when the
// credentials carry one, and the Authorization header of version. resource
// must be in the canonical form of version, see CanonicalResourceFor.
// additionalHeaders only take part in version 2 signatures. The request is
// left untouched when the credentials can not sign.
func SignRequest(req *http.Request, creds *credential.Credentials, resource string, version string, additionalHeaders ...string) error {
	a, err := ForVersion(version)
	if err != nil {
		return err
	}
	if err = checkCredentials(a, creds); err != nil {
		return err
	}

	if req.Header == nil {
		req.Header = http.Header{}
	}
	if req.Header.Get(HeaderDate) == "" {
		req.Header.Set(HeaderDate, time.Now().UTC().Format(http.TimeFormat))
	}
	if creds.UseSecurityToken() {
		req.Header.Set(HeaderSecurityToken, creds.SecurityToken)
	} else {
		req.Header.Del(HeaderSecurityToken)
	}

	var additional []string
	stringToSign := ""
	if a.Version() == Version2 {
		additional = AdditionalHeaders(req.Header, additionalHeaders)
		stringToSign = StringToSignV2(req.Method, req.Header, additional, resource)
	} else {
		stringToSign = StringToSign(req.Method, req.Header, resource)
	}

	sig, err := SignWith(a, creds, stringToSign)
	if err != nil {
		return err
	}
	req.Header.Set(HeaderAuthorization, Authorization(a.Version(), creds.AccessKeyID, sig, additional...))
	return nil
}

func Authorization(version, accessKeyID, signature string, additional ...string) string {
	if version == Version2 {
		if len(additional) > 0 {
			return fmt.Sprintf("OSS2 AccessKeyId:%s,AdditionalHeaders:%s,Signature:%s", accessKeyID, strings.Join(additional, ";"), signature)
		}
		return fmt.Sprintf("OSS2 AccessKeyId:%s,Signature:%s", accessKeyID, signature)
	}
	return fmt.Sprintf("OSS %s:%s", accessKeyID, signature)
}
