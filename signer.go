package sigv4

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-kit/log"

	"github.com/wpnpeiris/aws-sigv4/endpoints"
	"github.com/wpnpeiris/aws-sigv4/internal/logging"
)

// Credentials identify the caller and the scope requests are signed for.
// Region and Service may be left empty when they can be inferred from the
// request host.
type Credentials struct {
	AccessKey string
	SecretKey string
	Region    string
	Service   string
}

// EndpointResolver maps between hosts and (region, service) pairs, in both
// directions. Implementations must be pure, synchronous and side-effect
// free; the default is endpoints.Resolver.
type EndpointResolver interface {
	RegionService(host string) (region, service string, err error)
	Host(service, region string) string
}

// Signer computes SigV4 artifacts for HTTP requests. Signing never mutates
// the caller's request; applying a Result is a separate, explicit step.
//
// Independent signing operations on one Signer are safe to run
// concurrently, except when a shared KeyDeriver was attached: its
// single-entry cache requires external serialization.
type Signer struct {
	credentials  Credentials
	resolver     EndpointResolver
	keys         *KeyDeriver
	logger       log.Logger
	normalize    bool
	doubleEscape bool
	now          func() time.Time

	stats signerCounters
}

// Option configures a Signer.
type Option func(*Signer) error

// WithCredentials sets the access and secret key pair.
func WithCredentials(accessKey, secretKey string) Option {
	return func(s *Signer) error {
		s.credentials.AccessKey = accessKey
		s.credentials.SecretKey = secretKey
		return nil
	}
}

// WithRegionService pins the signing scope instead of inferring it from the
// request host.
func WithRegionService(region, service string) Option {
	return func(s *Signer) error {
		s.credentials.Region = region
		s.credentials.Service = service
		return nil
	}
}

// WithEndpointResolver replaces the host mapping collaborator.
func WithEndpointResolver(r EndpointResolver) Option {
	return func(s *Signer) error {
		if r == nil {
			return fmt.Errorf("%w: nil endpoint resolver", ErrConfiguration)
		}
		s.resolver = r
		return nil
	}
}

// WithKeyDeriver attaches a single-entry key cache shared across signing
// operations. The cache is not synchronized; see KeyDeriver.
func WithKeyDeriver(d *KeyDeriver) Option {
	return func(s *Signer) error {
		s.keys = d
		return nil
	}
}

// WithLogger attaches a logger. Canonical requests and strings-to-sign are
// logged at debug level.
func WithLogger(l log.Logger) Option {
	return func(s *Signer) error {
		if l == nil {
			l = log.NewNopLogger()
		}
		s.logger = l
		return nil
	}
}

// WithSingleURIEscaping percent-encodes canonical path segments once instead
// of twice, as S3-style services require.
func WithSingleURIEscaping() Option {
	return func(s *Signer) error {
		s.doubleEscape = false
		return nil
	}
}

// WithoutPathNormalization keeps dot segments in the canonical path instead
// of resolving them, as S3-style services require.
func WithoutPathNormalization() Option {
	return func(s *Signer) error {
		s.normalize = false
		return nil
	}
}

// WithClock replaces the time source used when a request carries no
// timestamp and none is supplied per call. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Signer) error {
		if now == nil {
			return fmt.Errorf("%w: nil clock", ErrConfiguration)
		}
		s.now = now
		return nil
	}
}

// New builds a Signer. Credentials are required; everything else defaults to
// double-escaped, normalized canonical paths with Amazon-style endpoint
// mapping and no logging.
func New(opts ...Option) (*Signer, error) {
	s := &Signer{
		resolver:     endpoints.Resolver{},
		logger:       log.NewNopLogger(),
		normalize:    true,
		doubleEscape: true,
		now:          time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.credentials.AccessKey == "" || s.credentials.SecretKey == "" {
		return nil, fmt.Errorf("%w: credentials are required", ErrConfiguration)
	}
	return s, nil
}

// SignOption adjusts a single signing operation.
type SignOption func(*signConfig)

type signConfig struct {
	time    time.Time
	expires time.Duration
}

// SigningTime fixes the operation's timestamp instead of reading the
// signer's clock. A timestamp already present on the request still wins in
// header mode.
func SigningTime(t time.Time) SignOption {
	return func(c *signConfig) { c.time = t }
}

// Expires sets the X-Amz-Expires parameter of a presigned URL, rounded down
// to whole seconds. It has no effect in header mode.
func Expires(d time.Duration) SignOption {
	return func(c *signConfig) { c.expires = d }
}

func newSignConfig(opts []SignOption) signConfig {
	var cfg signConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Result carries the artifacts of one signing operation. Nothing is written
// back to the request that produced it until Apply is called.
type Result struct {
	// Authorization is the Authorization header value (header mode only).
	Authorization string
	// Signature is the hex-encoded signature.
	Signature string
	// SignedHeaders lists the signed header names, semicolon-joined.
	SignedHeaders string
	// AmzDate is the timestamp the request was signed with.
	AmzDate string
	// Host is the resolved host the signature covers.
	Host string
	// Headers holds the computed headers Apply merges into the request.
	Headers http.Header
	// Query holds the computed query parameters Apply merges into the
	// request URL (query mode only).
	Query url.Values
	// TotalLength is the transmitted body length of a chunked request,
	// framing included (chunked mode only).
	TotalLength int64
	// CanonicalRequest and StringToSign expose the signed forms for
	// debugging and verification.
	CanonicalRequest *CanonicalRequest
	StringToSign     string

	presign bool
	key     SigningKey
}

// Apply merges the computed artifacts into req: headers, the resolved host,
// and in query mode the signing parameters. This is the only place the
// package writes to a caller's request.
func (r *Result) Apply(req *http.Request) {
	if req == nil {
		return
	}
	if r.Host != "" {
		req.Host = r.Host
		if req.URL != nil && req.URL.Host == "" {
			req.URL.Host = r.Host
		}
	}
	if len(r.Headers) > 0 && req.Header == nil {
		req.Header = make(http.Header, len(r.Headers))
	}
	for name := range r.Headers {
		setHeader(req.Header, name, r.Headers.Get(name))
	}
	if r.presign && req.URL != nil {
		q := req.URL.Query()
		for name := range r.Query {
			q.Set(name, r.Query.Get(name))
		}
		req.URL.RawQuery = strings.ReplaceAll(q.Encode(), "+", "%20")
	}
	if r.TotalLength > 0 {
		req.ContentLength = r.TotalLength
	}
}

// Sign computes the header-mode signature for req. The payload is described
// by body, never read from req.Body. The result carries the Authorization
// value plus the headers the signature assumed: a generated timestamp and
// the resolved host.
func (s *Signer) Sign(req *http.Request, body Body, opts ...SignOption) (*Result, error) {
	res, err := s.sign(req, cloneHeader(req.Header), body, newSignConfig(opts))
	if err != nil {
		s.stats.errors.Add(1)
		return nil, err
	}
	s.stats.signed.Add(1)
	return res, nil
}

func (s *Signer) sign(req *http.Request, headers http.Header, body Body, cfg signConfig) (*Result, error) {
	host, region, service, err := s.resolveEndpoint(req, headers)
	if err != nil {
		return nil, err
	}

	amzDate := headerValue(headers, AmzDateKey)
	generated := false
	switch {
	case amzDate != "":
		if _, err := time.Parse(TimeFormat, amzDate); err != nil {
			return nil, fmt.Errorf("%w: timestamp %q is not in %s form", ErrMalformedInput, amzDate, TimeFormat)
		}
	case !cfg.time.IsZero():
		amzDate = cfg.time.UTC().Format(TimeFormat)
		generated = true
	default:
		amzDate = s.now().UTC().Format(TimeFormat)
		generated = true
	}
	if generated {
		setHeader(headers, AmzDateKey, amzDate)
	}
	if !headerPresent(headers, hostHeader) {
		setHeader(headers, hostHeader, host)
	}

	canHeaders, signedHeaders, err := canonicalHeaders(headers)
	if err != nil {
		return nil, err
	}

	cr := &CanonicalRequest{
		Method:        requestMethod(req),
		URI:           canonicalURI(escapedPath(req.URL), s.normalize, s.doubleEscape),
		Query:         canonicalQuery(queryValues(req.URL)),
		Headers:       canHeaders,
		SignedHeaders: signedHeaders,
		BodyHash:      body.Hash(),
	}

	key := s.deriveKey(amzDate, region, service)
	sts := strings.Join([]string{Algorithm, amzDate, key.Scope, cr.Hash()}, "\n")
	signature := hex.EncodeToString(hmacSHA256(key.Key, sts))

	auth := Authorization{
		Algorithm:     Algorithm,
		Credential:    s.credentials.AccessKey + "/" + key.Scope,
		SignedHeaders: signedHeaders,
		Signature:     signature,
	}

	logging.Debug(s.logger, "msg", "computed request signature",
		"canonical_request", cr.String(),
		"string_to_sign", sts)

	result := &Result{
		Authorization:    auth.String(),
		Signature:        signature,
		SignedHeaders:    signedHeaders,
		AmzDate:          amzDate,
		Host:             host,
		Headers:          http.Header{},
		CanonicalRequest: cr,
		StringToSign:     sts,
		key:              key,
	}
	result.Headers.Set(authorizationHeader, auth.String())
	if generated {
		result.Headers.Set(AmzDateKey, amzDate)
	}
	return result, nil
}

// Presign computes query-mode artifacts for req: the X-Amz-Algorithm,
// X-Amz-Credential, X-Amz-Date, X-Amz-SignedHeaders and X-Amz-Signature
// parameters, plus X-Amz-Expires when requested. The signature parameter is
// excluded from the canonical query it signs.
func (s *Signer) Presign(req *http.Request, body Body, opts ...SignOption) (*Result, error) {
	res, err := s.presignRequest(req, body, newSignConfig(opts))
	if err != nil {
		s.stats.errors.Add(1)
		return nil, err
	}
	s.stats.presigned.Add(1)
	return res, nil
}

func (s *Signer) presignRequest(req *http.Request, body Body, cfg signConfig) (*Result, error) {
	headers := cloneHeader(req.Header)
	host, region, service, err := s.resolveEndpoint(req, headers)
	if err != nil {
		return nil, err
	}

	var amzDate string
	if !cfg.time.IsZero() {
		amzDate = cfg.time.UTC().Format(TimeFormat)
	} else {
		amzDate = s.now().UTC().Format(TimeFormat)
	}

	if !headerPresent(headers, hostHeader) {
		setHeader(headers, hostHeader, host)
	}
	canHeaders, signedHeaders, err := canonicalHeaders(headers)
	if err != nil {
		return nil, err
	}

	key := s.deriveKey(amzDate, region, service)
	credential := s.credentials.AccessKey + "/" + key.Scope

	query := queryValues(req.URL)
	query.Set(AmzAlgorithmKey, Algorithm)
	query.Set(AmzCredentialKey, credential)
	query.Set(AmzDateKey, amzDate)
	query.Set(AmzSignedHeadersKey, signedHeaders)
	if cfg.expires > 0 {
		query.Set(AmzExpiresKey, strconv.FormatInt(int64(cfg.expires/time.Second), 10))
	}
	// The signature cannot sign itself.
	query.Del(AmzSignatureKey)

	cr := &CanonicalRequest{
		Method:        requestMethod(req),
		URI:           canonicalURI(escapedPath(req.URL), s.normalize, s.doubleEscape),
		Query:         canonicalQuery(query),
		Headers:       canHeaders,
		SignedHeaders: signedHeaders,
		BodyHash:      body.Hash(),
	}

	sts := strings.Join([]string{Algorithm, amzDate, key.Scope, cr.Hash()}, "\n")
	signature := hex.EncodeToString(hmacSHA256(key.Key, sts))
	query.Set(AmzSignatureKey, signature)

	logging.Debug(s.logger, "msg", "computed presigned query",
		"canonical_request", cr.String(),
		"string_to_sign", sts)

	return &Result{
		Signature:        signature,
		SignedHeaders:    signedHeaders,
		AmzDate:          amzDate,
		Host:             host,
		Query:            query,
		CanonicalRequest: cr,
		StringToSign:     sts,
		presign:          true,
		key:              key,
	}, nil
}

// resolveEndpoint fills in whichever of host and (region, service) is
// missing, consulting the endpoint collaborator. Failing to resolve either
// direction is fatal.
func (s *Signer) resolveEndpoint(req *http.Request, headers http.Header) (host, region, service string, err error) {
	host = headerValue(headers, hostHeader)
	if host == "" && req != nil {
		host = req.Host
		if host == "" && req.URL != nil {
			host = req.URL.Host
		}
	}

	region, service = s.credentials.Region, s.credentials.Service
	if region == "" || service == "" {
		if host == "" {
			return "", "", "", fmt.Errorf("%w: no region/service configured and no host to infer them from", ErrConfiguration)
		}
		inferredRegion, inferredService, rerr := s.resolver.RegionService(host)
		if rerr != nil {
			return "", "", "", fmt.Errorf("%w: cannot infer region/service from host %q: %v", ErrConfiguration, host, rerr)
		}
		if region == "" {
			region = inferredRegion
		}
		if service == "" {
			service = inferredService
		}
	}

	if host == "" {
		host = s.resolver.Host(service, region)
		if host == "" {
			return "", "", "", fmt.Errorf("%w: cannot format a host for service %q in region %q", ErrConfiguration, service, region)
		}
	}
	return host, region, service, nil
}

func (s *Signer) deriveKey(date, region, service string) SigningKey {
	s.stats.keyDerivations.Add(1)
	if s.keys == nil {
		return DeriveKey(s.credentials.SecretKey, date, region, service)
	}
	key, hit := s.keys.derive(s.credentials.SecretKey, date, region, service)
	if hit {
		s.stats.keyCacheHits.Add(1)
	}
	return key
}

func requestMethod(req *http.Request) string {
	if req == nil || req.Method == "" {
		return http.MethodGet
	}
	return req.Method
}

func escapedPath(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.EscapedPath()
}

func queryValues(u *url.URL) url.Values {
	if u == nil {
		return url.Values{}
	}
	return u.Query()
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h)+4)
	for name, values := range h {
		out[name] = append([]string(nil), values...)
	}
	return out
}

// headerValue returns the first value of name, matching names
// case-insensitively so lookups agree with canonicalization even for
// non-canonical map keys.
func headerValue(h http.Header, name string) string {
	for k, vs := range h {
		if strings.EqualFold(k, name) && len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

func headerPresent(h http.Header, name string) bool {
	for k := range h {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// setHeader replaces every case variant of name with a single value.
func setHeader(h http.Header, name, value string) {
	for k := range h {
		if strings.EqualFold(k, name) {
			delete(h, k)
		}
	}
	h.Set(name, value)
}
