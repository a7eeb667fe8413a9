package features

import (
	"errors"
	"net"
	"strings"
)

// ErrInvalidNetloc is returned when the network location has unbalanced IPv6 brackets
var ErrInvalidNetloc = errors.New("invalid network location")

// URLParts holds the generic components of a URL string.
// Components are kept exactly as written; nothing is decoded or lowercased.
type URLParts struct {
	Scheme   string
	Netloc   string
	Path     string
	Params   string
	Query    string
	Fragment string
}

// Host returns the lowercased host of the network location without userinfo or port
func (p URLParts) Host() string {
	host := p.Netloc
	if idx := strings.LastIndex(host, "@"); idx >= 0 {
		host = host[idx+1:]
	}
	if strings.HasPrefix(host, "[") {
		if end := strings.Index(host, "]"); end > 0 {
			return strings.ToLower(host[1:end])
		}
	}
	if idx := strings.LastIndex(host, ":"); idx >= 0 {
		host = host[:idx]
	}
	return strings.ToLower(host)
}

// AllowListHost returns the host a browser would connect to, or false when the
// network location is ambiguous. Special schemes treat a backslash as a path
// separator, so any backslash in the netloc disqualifies it.
func (p URLParts) AllowListHost() (string, bool) {
	if strings.Contains(p.Netloc, `\`) {
		return "", false
	}
	switch p.Scheme {
	case "", "http", "https":
	default:
		return "", false
	}
	host := p.Host()
	if !isHostname(host) {
		return "", false
	}
	return host, true
}

// SplitURL splits a URL into scheme, network location, path, params, query
// and fragment.
//
// The split is lenient: relative references and schemeless hosts are accepted
// and simply end up in Path. For schemes that carry parameters, a ";params"
// suffix on the last path segment is split off into Params and is not part
// of Path.
func SplitURL(raw string) (URLParts, error) {
	raw = strings.TrimLeft(raw, controlOrSpace)
	raw = strings.NewReplacer("\t", "", "\r", "", "\n", "").Replace(raw)

	var parts URLParts
	if idx := strings.Index(raw, ":"); idx > 0 && isScheme(raw[:idx]) {
		parts.Scheme = strings.ToLower(raw[:idx])
		raw = raw[idx+1:]
	}

	if strings.HasPrefix(raw, "//") {
		rest := raw[2:]
		end := strings.IndexAny(rest, "/?#")
		if end < 0 {
			end = len(rest)
		}
		parts.Netloc = rest[:end]
		raw = rest[end:]

		open := strings.Contains(parts.Netloc, "[")
		closed := strings.Contains(parts.Netloc, "]")
		if open != closed {
			return URLParts{}, ErrInvalidNetloc
		}
	}

	if idx := strings.Index(raw, "#"); idx >= 0 {
		parts.Fragment = raw[idx+1:]
		raw = raw[:idx]
	}
	if idx := strings.Index(raw, "?"); idx >= 0 {
		parts.Query = raw[idx+1:]
		raw = raw[:idx]
	}
	if paramSchemes[parts.Scheme] {
		raw, parts.Params = splitParams(raw)
	}
	parts.Path = raw

	return parts, nil
}

// paramSchemes are the schemes whose paths may carry ";params"
var paramSchemes = map[string]bool{
	"": true, "ftp": true, "hdl": true, "prospero": true, "http": true,
	"imap": true, "https": true, "shttp": true, "rtsp": true, "rtsps": true,
	"rtspu": true, "sip": true, "sips": true, "mms": true, "sftp": true, "tel": true,
}

// splitParams cuts at the first ';' after the last '/'
func splitParams(path string) (string, string) {
	start := 0
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		start = idx
	}
	idx := strings.Index(path[start:], ";")
	if idx < 0 {
		return path, ""
	}
	idx += start
	return path[:idx], path[idx+1:]
}

// isHostname accepts LDH labels and IPv4/IPv6 literals
func isHostname(host string) bool {
	if host == "" || len(host) > 253 {
		return false
	}
	if strings.Contains(host, ":") {
		return net.ParseIP(host) != nil
	}
	for _, label := range strings.Split(strings.TrimSuffix(host, "."), ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		for _, c := range label {
			switch {
			case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
			default:
				return false
			}
		}
	}
	return true
}

// controlOrSpace is every C0 control character plus space
var controlOrSpace = func() string {
	var b strings.Builder
	for c := 0; c <= 0x20; c++ {
		b.WriteByte(byte(c))
	}
	return b.String()
}()

func isScheme(s string) bool {
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}
