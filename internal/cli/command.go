package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	sigv4 "github.com/wpnpeiris/aws-sigv4"
	"github.com/wpnpeiris/aws-sigv4/internal/chunkstream"
	"github.com/wpnpeiris/aws-sigv4/internal/credential"
	"github.com/wpnpeiris/aws-sigv4/internal/logging"
)

// Run executes the operation described by opts, writing textual results to
// stdout. File outputs (the framed stream of chunk mode, the payload of
// dechunk mode) go to the path named by the output option.
func Run(opts *Options, stdout io.Writer) error {
	logger := logging.NewLogger(logging.Config{Format: opts.LogFormat, Level: opts.LogLevel})

	if opts.Mode == ModeDechunk {
		return runDechunk(opts, stdout)
	}

	accessKey, secretKey, region, service, err := resolveCredentials(opts)
	if err != nil {
		return err
	}

	signerOpts := []sigv4.Option{
		sigv4.WithCredentials(accessKey, secretKey),
		sigv4.WithLogger(logger),
	}
	if region != "" || service != "" {
		signerOpts = append(signerOpts, sigv4.WithRegionService(region, service))
	}
	if opts.SingleEscape {
		signerOpts = append(signerOpts, sigv4.WithSingleURIEscaping())
	}
	if opts.NoNormalize {
		signerOpts = append(signerOpts, sigv4.WithoutPathNormalization())
	}
	signer, err := sigv4.New(signerOpts...)
	if err != nil {
		return err
	}

	req, err := buildRequest(opts)
	if err != nil {
		return err
	}
	signOpts, err := buildSignOptions(opts)
	if err != nil {
		return err
	}

	switch opts.Mode {
	case ModeSign:
		return runSign(opts, signer, req, signOpts, stdout)
	case ModePresign:
		return runPresign(opts, signer, req, signOpts, stdout)
	case ModeChunk:
		return runChunk(opts, signer, req, signOpts, stdout)
	default:
		return fmt.Errorf("unknown mode %q", opts.Mode)
	}
}

// resolveCredentials merges the credential flags with the optional JSON
// store: the store supplies the secret for the given access key, plus
// default region and service for entries that carry them. Flags win.
func resolveCredentials(opts *Options) (accessKey, secretKey, region, service string, err error) {
	accessKey, secretKey = opts.AccessKey, opts.SecretKey
	region, service = opts.Region, opts.Service

	if opts.CredentialsFile != "" {
		if accessKey == "" {
			return "", "", "", "", fmt.Errorf("accessKey is required to look up the credentials file")
		}
		store, serr := credential.NewStaticFileStore(opts.CredentialsFile)
		if serr != nil {
			return "", "", "", "", serr
		}
		entry, found := store.Get(accessKey)
		if !found {
			return "", "", "", "", fmt.Errorf("access key %q: %w", accessKey, credential.ErrAccessKeyNotFound)
		}
		secretKey = entry.SecretKey
		if region == "" {
			region = entry.Region
		}
		if service == "" {
			service = entry.Service
		}
	}

	if accessKey == "" || secretKey == "" {
		return "", "", "", "", fmt.Errorf("credentials are required: pass accessKey and secretKey, or accessKey and a credentials file")
	}
	return accessKey, secretKey, region, service, nil
}

func buildRequest(opts *Options) (*http.Request, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("url is required")
	}
	req, err := http.NewRequest(opts.Method, opts.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	for _, h := range opts.Headers {
		name, value, found := strings.Cut(h, ":")
		if !found || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("malformed header flag %q, want 'Name: value'", h)
		}
		req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return req, nil
}

func buildSignOptions(opts *Options) ([]sigv4.SignOption, error) {
	var signOpts []sigv4.SignOption
	if opts.Date != "" {
		t, err := time.Parse(sigv4.TimeFormat, opts.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q, want %s form: %w", opts.Date, sigv4.TimeFormat, err)
		}
		signOpts = append(signOpts, sigv4.SigningTime(t))
	}
	if opts.Expires > 0 {
		signOpts = append(signOpts, sigv4.Expires(opts.Expires))
	}
	return signOpts, nil
}

// requestBody describes the payload for sign and presign modes without
// reading it into the request.
func requestBody(opts *Options) (sigv4.Body, error) {
	if opts.BodyFile != "" && opts.ContentSHA256 != "" {
		return sigv4.Body{}, fmt.Errorf("body and contentSha256 are mutually exclusive")
	}
	if opts.ContentSHA256 != "" {
		return sigv4.BodyHash(opts.ContentSHA256), nil
	}
	if opts.BodyFile != "" {
		data, err := os.ReadFile(opts.BodyFile)
		if err != nil {
			return sigv4.Body{}, fmt.Errorf("failed to read body file: %w", err)
		}
		return sigv4.BodyBytes(data), nil
	}
	return sigv4.Body{}, nil
}

func runSign(opts *Options, signer *sigv4.Signer, req *http.Request, signOpts []sigv4.SignOption, stdout io.Writer) error {
	body, err := requestBody(opts)
	if err != nil {
		return err
	}
	res, err := signer.Sign(req, body, signOpts...)
	if err != nil {
		return err
	}
	printResult(stdout, res)
	return nil
}

func runPresign(opts *Options, signer *sigv4.Signer, req *http.Request, signOpts []sigv4.SignOption, stdout io.Writer) error {
	body, err := requestBody(opts)
	if err != nil {
		return err
	}
	res, err := signer.Presign(req, body, signOpts...)
	if err != nil {
		return err
	}
	res.Apply(req)
	fmt.Fprintln(stdout, req.URL.String())
	return nil
}

func runChunk(opts *Options, signer *sigv4.Signer, req *http.Request, signOpts []sigv4.SignOption, stdout io.Writer) error {
	if opts.BodyFile == "" {
		return fmt.Errorf("chunk mode requires a body file")
	}
	if opts.Output == "" {
		return fmt.Errorf("chunk mode requires an output file for the framed stream")
	}

	in, err := os.Open(opts.BodyFile)
	if err != nil {
		return fmt.Errorf("failed to open body file: %w", err)
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat body file: %w", err)
	}

	res, chunkSigner, err := signer.SignChunked(req, fi.Size(), opts.ChunkLength, signOpts...)
	if err != nil {
		return err
	}

	out, err := os.Create(opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	enc := sigv4.NewChunkedEncoder(out, chunkSigner)
	if _, err := io.Copy(enc, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to write chunked stream: %w", err)
	}
	if err := enc.Close(); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}

	printResult(stdout, res)
	return nil
}

func runDechunk(opts *Options, stdout io.Writer) error {
	if opts.BodyFile == "" {
		return fmt.Errorf("dechunk mode requires a body file holding the framed stream")
	}

	in, err := os.Open(opts.BodyFile)
	if err != nil {
		return fmt.Errorf("failed to open body file: %w", err)
	}
	defer in.Close()

	var out io.Writer = io.Discard
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	dec := chunkstream.NewDecoder(in)
	n, err := io.Copy(out, dec)
	if err != nil {
		return fmt.Errorf("failed to decode chunked stream: %w", err)
	}

	signatures := dec.Signatures()
	fmt.Fprintf(stdout, "decoded %d bytes across %d frames\n", n, len(signatures))
	if len(signatures) > 0 {
		fmt.Fprintf(stdout, "final signature: %s\n", signatures[len(signatures)-1])
	}
	return nil
}

// printResult writes the resolved host and the computed headers, one
// 'Name: value' line each, in a stable order.
func printResult(w io.Writer, res *sigv4.Result) {
	fmt.Fprintf(w, "Host: %s\n", res.Host)
	names := make([]string, 0, len(res.Headers))
	for name := range res.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s: %s\n", name, res.Headers.Get(name))
	}
}
