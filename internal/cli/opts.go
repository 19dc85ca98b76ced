package cli

import (
	"flag"
	"strings"
	"time"
)

// Operation modes of the sigv4 command line tool.
const (
	ModeSign    = "sign"
	ModePresign = "presign"
	ModeChunk   = "chunk"
	ModeDechunk = "dechunk"
)

// headerList gathers repeated -header flags.
type headerList []string

func (h *headerList) String() string {
	return strings.Join(*h, ", ")
}

func (h *headerList) Set(value string) error {
	*h = append(*h, value)
	return nil
}

// Options holds all configuration options for the sigv4 command line tool.
type Options struct {
	Mode          string
	Method        string
	URL           string
	Headers       headerList
	BodyFile      string
	ContentSHA256 string

	AccessKey       string
	SecretKey       string
	Region          string
	Service         string
	CredentialsFile string

	Date         string
	Expires      time.Duration
	ChunkLength  int64
	SingleEscape bool
	NoNormalize  bool

	Output    string
	LogFormat string
	LogLevel  string
}

// ConfigureOptions parses command-line arguments and returns an Options struct.
// It handles -h/--help and -v/--version flags by calling the provided callbacks.
// Returns nil options and nil error when help or version flags are used.
func ConfigureOptions(fs *flag.FlagSet, args []string, printVersion, printHelp func()) (*Options, error) {
	opts := &Options{}
	var (
		showVersion bool
		showHelp    bool
	)
	fs.BoolVar(&showVersion, "v", false, "Print version information.")
	fs.BoolVar(&showVersion, "version", false, "Print version information.")
	fs.BoolVar(&showHelp, "h", false, "Print usage.")
	fs.BoolVar(&showHelp, "help", false, "Print usage.")

	fs.StringVar(&opts.Mode, "mode", ModeSign, "Operation: sign, presign, chunk or dechunk")
	fs.StringVar(&opts.Method, "method", "GET", "HTTP method of the request")
	fs.StringVar(&opts.URL, "url", "", "Request URL to sign")
	fs.Var(&opts.Headers, "header", "Request header as 'Name: value'; repeatable")
	fs.StringVar(&opts.BodyFile, "body", "", "Path to the request body file")
	fs.StringVar(&opts.ContentSHA256, "contentSha256", "", "Precomputed body SHA-256 hex, or a sentinel such as UNSIGNED-PAYLOAD")
	fs.StringVar(&opts.AccessKey, "accessKey", "", "AWS access key ID")
	fs.StringVar(&opts.SecretKey, "secretKey", "", "AWS secret access key")
	fs.StringVar(&opts.Region, "region", "", "Signing region (inferred from the host when omitted)")
	fs.StringVar(&opts.Service, "service", "", "Signing service (inferred from the host when omitted)")
	fs.StringVar(&opts.CredentialsFile, "credentials", "", "Path to credentials file (JSON format), looked up by access key")
	fs.StringVar(&opts.Date, "date", "", "Fixed signing time in 20060102T150405Z form (default: now)")
	fs.DurationVar(&opts.Expires, "expires", 0, "Presigned URL lifetime, e.g. 15m (presign mode)")
	fs.Int64Var(&opts.ChunkLength, "chunk.length", 65536, "Chunk length in bytes for aws-chunked framing")
	fs.BoolVar(&opts.SingleEscape, "uri.single-escape", false, "Percent-encode canonical path segments once (S3 style)")
	fs.BoolVar(&opts.NoNormalize, "uri.no-normalize", false, "Keep dot segments in the canonical path (S3 style)")
	fs.StringVar(&opts.Output, "output", "", "Destination file for chunk and dechunk payload output")
	fs.StringVar(&opts.LogFormat, "log.format", "logfmt", "log output format: logfmt or json")
	fs.StringVar(&opts.LogLevel, "log.level", "info", "log level: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if showVersion {
		printVersion()
		return nil, nil
	}

	if showHelp {
		printHelp()
		return nil, nil
	}

	return opts, nil
}
