// Package endpoints maps Amazon-style endpoint hosts to (region, service)
// pairs and back. The mapping is a pure, deterministic string
// transformation consumed by the signer when the caller supplies only one
// side of the pair.
package endpoints

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultRegion is assumed for endpoints that carry no region label, such
// as dynamodb.amazonaws.com.
const DefaultRegion = "us-east-1"

// RegionService infers the region and service from an endpoint host.
// Supported shapes are <service>.<region>.<domain...> and the regionless
// <service>.<domain>, which maps to DefaultRegion. Legacy dashed S3 hosts
// like s3-us-west-2.amazonaws.com are recognized as well. A port, if
// present, is ignored.
func RegionService(host string) (region, service string, err error) {
	h := host
	if hostOnly, _, serr := net.SplitHostPort(h); serr == nil {
		h = hostOnly
	}
	h = strings.TrimSuffix(strings.ToLower(h), ".")

	parts := strings.Split(h, ".")
	if len(parts) < 3 {
		return "", "", fmt.Errorf("host %q is not a recognizable endpoint", host)
	}

	service = parts[0]
	if len(parts) < 4 {
		// Something like <service>.amazonaws.com, with no region label.
		region = DefaultRegion
	} else {
		region = parts[1]
	}
	if rest, ok := strings.CutPrefix(service, "s3-"); ok && rest != "" {
		service, region = "s3", rest
	}

	if service == "" || region == "" {
		return "", "", fmt.Errorf("host %q is not a recognizable endpoint", host)
	}
	return region, service, nil
}

// Host formats the endpoint host for a service in a region.
func Host(service, region string) string {
	if service == "" || region == "" {
		return ""
	}
	return service + "." + region + ".amazonaws.com"
}

// HostPort is Host with an explicit port; port 0 means none.
func HostPort(service, region string, port int) string {
	h := Host(service, region)
	if h == "" || port == 0 {
		return h
	}
	return net.JoinHostPort(h, strconv.Itoa(port))
}

// Resolver adapts the package functions to the signer's collaborator
// interface.
type Resolver struct{}

// RegionService implements the host-to-pair direction.
func (Resolver) RegionService(host string) (region, service string, err error) {
	return RegionService(host)
}

// Host implements the pair-to-host direction.
func (Resolver) Host(service, region string) string {
	return Host(service, region)
}
