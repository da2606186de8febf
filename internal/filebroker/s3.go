package filebroker

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// presignExpiry is the fixed 10-minute lifetime the spec mandates for
// every presigned request, balancing worker cold-start latency against
// credential exposure (§4.1, §9).
const presignExpiry = 10 * time.Minute

// S3Broker never streams bytes itself: every operation either rejects
// outright or hands back a presigned request, per §4.1's "S3 backend must
// reject direct access" rule.
type S3Broker struct {
	client   *s3.Client
	creds    aws.CredentialsProvider
	bucket   string
	region   string
	endpoint string
}

// NewS3Broker builds an S3Broker for bucket in region, optionally against a
// custom endpoint (S3-compatible services like MinIO/SeaweedFS). Path-style
// addressing is forced, matching §9's note about freshly created buckets
// whose virtual-hosted DNS has not propagated yet.
func NewS3Broker(ctx context.Context, bucket, region, endpoint string) (*S3Broker, error) {
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	clientOpts = append(clientOpts, func(o *s3.Options) {
		o.UsePathStyle = true
	})
	if endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	return &S3Broker{
		client:   s3.NewFromConfig(awsCfg, clientOpts...),
		creds:    awsCfg.Credentials,
		bucket:   bucket,
		region:   region,
		endpoint: endpoint,
	}, nil
}

// scopeKey validates path is an s3://<bucket>/<key> URI naming this
// broker's own bucket and returns the bare key, per §6's "validation
// rejects s3:// URIs whose bucket differs from the configured one."
func (b *S3Broker) scopeKey(path string) (string, error) {
	if !strings.HasPrefix(path, "s3://") {
		return path, nil // already a bare key
	}
	rest := strings.TrimPrefix(path, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] != b.bucket {
		return "", ErrPermissionDenied
	}
	return parts[1], nil
}

func (b *S3Broker) GetFile(ctx context.Context, path string) (io.ReadCloser, error) {
	return nil, ErrPermissionDenied
}

func (b *S3Broker) PostFile(ctx context.Context, path string, data io.Reader) error {
	return ErrPermissionDenied
}

func (b *S3Broker) GetFileURL(ctx context.Context, path, authHeader, urlSuffix, downloadSuffix string) (*FileHTTPRequest, error) {
	// path arrives terminated by urlSuffix (e.g. "s3://bucket/out.txt/url");
	// the object key is that same path with the suffix anchored off. The
	// presigned URL AWS hands back is unrelated to downloadSuffix — S3
	// callers fetch the presigned URL itself, not a rewritten /download
	// route, so downloadSuffix is unused here (unlike LocalBroker).
	key, err := b.scopeKey(strings.TrimSuffix(path, urlSuffix))
	if err != nil {
		return nil, err
	}

	presignClient := s3.NewPresignClient(b.client)
	req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = presignExpiry
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("presigning get: %w", err)
	}

	headers := map[string]string{}
	for k, v := range req.SignedHeader {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return &FileHTTPRequest{Method: req.Method, URL: req.URL, Headers: headers}, nil
}

// PostFileURL builds a presigned POST policy scoped with a "starts-with
// $key" condition, so the credentials it carries authorize writes only
// under the given prefix (plus whatever suffix the client appends via
// ${filename}), per §4.1's key policy.
func (b *S3Broker) PostFileURL(ctx context.Context, path, urlSuffix, uploadSuffix string) (*FileHTTPRequest, error) {
	prefix, err := b.scopeKey(path)
	if err != nil {
		return nil, err
	}

	creds, err := b.creds.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("retrieving aws credentials: %w", err)
	}

	now := time.Now().UTC()
	expiration := now.Add(presignExpiry)
	amzDate := now.Format("20060102T150405Z")
	dateStamp := now.Format("20060102")
	credentialScope := fmt.Sprintf("%s/%s/s3/aws4_request", dateStamp, b.region)
	xAmzCredential := fmt.Sprintf("%s/%s", creds.AccessKeyID, credentialScope)

	conditions := []interface{}{
		map[string]string{"bucket": b.bucket},
		[]interface{}{"starts-with", "$key", prefix},
		map[string]string{"x-amz-algorithm": "AWS4-HMAC-SHA256"},
		map[string]string{"x-amz-credential": xAmzCredential},
		map[string]string{"x-amz-date": amzDate},
	}
	if creds.SessionToken != "" {
		conditions = append(conditions, map[string]string{"x-amz-security-token": creds.SessionToken})
	}

	policyDoc := map[string]interface{}{
		"expiration": expiration.Format("2006-01-02T15:04:05.000Z"),
		"conditions": conditions,
	}
	policyJSON, err := json.Marshal(policyDoc)
	if err != nil {
		return nil, fmt.Errorf("encoding post policy: %w", err)
	}
	policyB64 := base64.StdEncoding.EncodeToString(policyJSON)

	signature := signPolicy(creds.SecretAccessKey, dateStamp, b.region, policyB64)

	data := map[string]string{
		"key":              prefix + "${filename}",
		"bucket":           b.bucket,
		"policy":           policyB64,
		"x-amz-algorithm":  "AWS4-HMAC-SHA256",
		"x-amz-credential": xAmzCredential,
		"x-amz-date":       amzDate,
		"x-amz-signature":  signature,
	}
	if creds.SessionToken != "" {
		data["x-amz-security-token"] = creds.SessionToken
	}

	return &FileHTTPRequest{
		Method: http.MethodPost,
		URL:    b.endpointURL(),
		Data:   data,
	}, nil
}

func (b *S3Broker) endpointURL() string {
	if b.endpoint != "" {
		return strings.TrimSuffix(b.endpoint, "/") + "/" + b.bucket + "/"
	}
	return fmt.Sprintf("https://s3.%s.amazonaws.com/%s/", b.region, b.bucket)
}

// signPolicy derives the SigV4 signing key by chaining HMAC-SHA256 over
// date/region/service/terminator, then signs the base64 policy document
// with it — the same derivation SigV4 request signing uses, applied to a
// policy document instead of a canonical request.
func signPolicy(secretKey, dateStamp, region, stringToSign string) string {
	hmacSHA256 := func(key, data []byte) []byte {
		h := hmac.New(sha256.New, key)
		h.Write(data)
		return h.Sum(nil)
	}
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(dateStamp))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte("s3"))
	kSigning := hmacSHA256(kService, []byte("aws4_request"))
	signature := hmacSHA256(kSigning, []byte(stringToSign))
	return hex.EncodeToString(signature)
}

func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}
